package mempool

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

func TestPool_OnBlockAdded_RemovesConfirmed(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := addressFromKey(key)

	utxos := newMockUTXOs()
	prevOut := types.Outpoint{TxID: types.Hash{0x01}, Index: 0}
	utxos.add(prevOut, 5000, addr)

	pool := New(utxos, 100)
	transaction := buildTx(t, key, prevOut, 4000)
	if _, err := pool.Add(transaction); err != nil {
		t.Fatalf("Add: %v", err)
	}

	blk := block.NewBlock(&block.Header{Height: 1}, []*tx.Transaction{transaction})
	pool.OnBlockAdded(chain.BlockEvent{Block: blk, Height: 1})

	if pool.Has(transaction.Hash()) {
		t.Fatal("confirmed transaction should have been removed from the pool")
	}
}

func TestPool_OnBlockReverted_ReturnsTransactions(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := addressFromKey(key)

	utxos := newMockUTXOs()
	prevOut := types.Outpoint{TxID: types.Hash{0x02}, Index: 0}
	utxos.add(prevOut, 5000, addr)

	pool := New(utxos, 100)
	transaction := buildTx(t, key, prevOut, 4000)

	pool.OnBlockReverted(chain.DetachEvent{RevertedTxs: []*tx.Transaction{transaction}})

	if !pool.Has(transaction.Hash()) {
		t.Fatal("reverted transaction should have been returned to the pool")
	}
}

func TestRegisterHooks_WiresBothEvents(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := addressFromKey(key)

	utxos := newMockUTXOs()
	prevOut := types.Outpoint{TxID: types.Hash{0x03}, Index: 0}
	utxos.add(prevOut, 5000, addr)

	pool := New(utxos, 100)
	transaction := buildTx(t, key, prevOut, 4000)
	if _, err := pool.Add(transaction); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hooks := chain.NewHooks(nil)
	RegisterHooks(hooks, pool)

	blk := block.NewBlock(&block.Header{Height: 1}, []*tx.Transaction{transaction})
	if err := hooks.Fire(chain.HookBlockPostAdd, chain.BlockEvent{Block: blk, Height: 1}); err != nil {
		t.Fatalf("Fire HookBlockPostAdd: %v", err)
	}
	if pool.Has(transaction.Hash()) {
		t.Fatal("HookBlockPostAdd should have removed the confirmed transaction")
	}

	if err := hooks.Fire(chain.HookBlockchainDetached, chain.DetachEvent{RevertedTxs: []*tx.Transaction{transaction}}); err != nil {
		t.Fatalf("Fire HookBlockchainDetached: %v", err)
	}
	if !pool.Has(transaction.Hash()) {
		t.Fatal("HookBlockchainDetached should have returned the transaction to the pool")
	}
}
