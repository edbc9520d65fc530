package mempool

import (
	"github.com/Klingon-tech/klingnet-chain/internal/chain"
)

// OnBlockAdded removes every transaction the newly-accepted block confirmed,
// the same bookkeeping RemoveConfirmed already does -- this just gives it a
// name matching the hook bus's event, so a wiring caller doesn't need to
// reach into the block itself.
func (p *Pool) OnBlockAdded(event chain.BlockEvent) {
	if event.Block == nil {
		return
	}
	p.RemoveConfirmed(event.Block.Transactions)
}

// OnBlockReverted returns the transactions a reorg popped off the main
// chain back into the pool, re-validating each against the current UTXO
// set the same way Add always does. A transaction that no longer validates
// (e.g. one of its inputs was double-spent by the replacing branch) is
// dropped rather than re-added.
func (p *Pool) OnBlockReverted(event chain.DetachEvent) {
	for _, t := range event.RevertedTxs {
		if t == nil {
			continue
		}
		_, _ = p.Add(t)
	}
}

// RegisterHooks subscribes p to the chain's hook bus so confirmed
// transactions are pruned and reverted transactions are returned to the
// pool automatically, per the HookBlockPostAdd/HookBlockchainDetached
// wiring spec.md names.
func RegisterHooks(hooks *chain.Hooks, p *Pool) {
	hooks.Register(chain.HookBlockPostAdd, func(event any) error {
		be, ok := event.(chain.BlockEvent)
		if !ok {
			return nil
		}
		p.OnBlockAdded(be)
		return nil
	})
	hooks.Register(chain.HookBlockchainDetached, func(event any) error {
		de, ok := event.(chain.DetachEvent)
		if !ok {
			return nil
		}
		p.OnBlockReverted(de)
		return nil
	})
}
