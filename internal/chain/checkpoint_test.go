package chain

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

func TestCheckpointSet_ValidateRejectsConflict(t *testing.T) {
	cs := NewCheckpointSet()
	hash := types.Hash{0x01}
	if err := cs.Add(Checkpoint{Height: 10, Hash: hash, Enforced: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := cs.Validate(10, hash); err != nil {
		t.Fatalf("Validate matching hash: %v", err)
	}
	if err := cs.Validate(10, types.Hash{0x02}); !errors.Is(err, ErrCheckpointConflict) {
		t.Fatalf("Validate mismatched hash: got %v, want ErrCheckpointConflict", err)
	}
	if err := cs.Validate(11, types.Hash{0x02}); err != nil {
		t.Fatalf("Validate at uncheckpointed height should pass: %v", err)
	}
}

func TestCheckpointSet_AdvisoryNeverBlocks(t *testing.T) {
	cs := NewCheckpointSet()
	if err := cs.Add(Checkpoint{Height: 10, Hash: types.Hash{0x01}, Enforced: false}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cs.Validate(10, types.Hash{0x02}); err != nil {
		t.Fatalf("advisory checkpoint must never reject a conflicting hash: %v", err)
	}
}

func TestCheckpointSet_Add_RejectsEnforcedConflict(t *testing.T) {
	cs := NewCheckpointSet()
	if err := cs.Add(Checkpoint{Height: 10, Hash: types.Hash{0x01}, Enforced: true}); err != nil {
		t.Fatalf("Add first: %v", err)
	}
	err := cs.Add(Checkpoint{Height: 10, Hash: types.Hash{0x02}, Enforced: true})
	if !errors.Is(err, ErrCheckpointConflict) {
		t.Fatalf("Add conflicting enforced checkpoint: got %v, want ErrCheckpointConflict", err)
	}
}

func TestCheckpointSet_Add_AdvisoryCanBeUpgraded(t *testing.T) {
	cs := NewCheckpointSet()
	if err := cs.Add(Checkpoint{Height: 10, Hash: types.Hash{0x01}, Enforced: false}); err != nil {
		t.Fatalf("Add advisory: %v", err)
	}
	if err := cs.Add(Checkpoint{Height: 10, Hash: types.Hash{0x02}, Enforced: true}); err != nil {
		t.Fatalf("upgrading an advisory checkpoint should succeed: %v", err)
	}
	cp, ok := cs.Get(10)
	if !ok || !cp.Enforced || cp.Hash != (types.Hash{0x02}) {
		t.Fatalf("Get(10) = %+v, ok=%v, want enforced hash 0x02", cp, ok)
	}
}

func TestCheckpointSet_HighestEnforced(t *testing.T) {
	cs := NewCheckpointSet()
	if _, ok := cs.HighestEnforced(); ok {
		t.Fatal("empty set should have no enforced checkpoint")
	}
	if err := cs.Add(Checkpoint{Height: 5, Hash: types.Hash{0x01}, Enforced: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cs.Add(Checkpoint{Height: 20, Hash: types.Hash{0x02}, Enforced: false}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cs.Add(Checkpoint{Height: 15, Hash: types.Hash{0x03}, Enforced: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	best, ok := cs.HighestEnforced()
	if !ok || best.Height != 15 {
		t.Fatalf("HighestEnforced = %+v, ok=%v, want height 15", best, ok)
	}
}

func TestProcessBlock_RejectsEnforcedCheckpointConflict(t *testing.T) {
	ch, key, poa := testChainWithKey(t)

	blk := buildCoinbaseOnlyBlock(t, ch, poa, key, 1700000003)
	wrongHash := types.Hash{0xde, 0xad}
	if err := ch.AddCheckpoint(Checkpoint{Height: blk.Header.Height, Hash: wrongHash, Enforced: true}); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	err := ch.ProcessBlock(blk)
	if !errors.Is(err, ErrCheckpointConflict) {
		t.Fatalf("ProcessBlock = %v, want ErrCheckpointConflict", err)
	}
}

func TestProcessBlock_AcceptsMatchingEnforcedCheckpoint(t *testing.T) {
	ch, key, poa := testChainWithKey(t)

	blk := buildCoinbaseOnlyBlock(t, ch, poa, key, 1700000003)
	if err := ch.AddCheckpoint(Checkpoint{Height: blk.Header.Height, Hash: blk.Hash(), Enforced: true}); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	if err := ch.ProcessBlock(blk); err != nil {
		t.Fatalf("ProcessBlock with matching checkpoint: %v", err)
	}
}

func TestReorg_RejectsPopPastEnforcedCheckpoint(t *testing.T) {
	ch, key, poa := testChainWithKey(t)

	ts := uint64(1700000003)
	for i := 0; i < 3; i++ {
		mineBlock(t, ch, poa, key, ts)
		ts += 3
	}
	blk1, err := ch.blocks.GetBlockByHeight(1)
	if err != nil {
		t.Fatalf("GetBlockByHeight(1): %v", err)
	}
	if err := ch.AddCheckpoint(Checkpoint{Height: 1, Hash: blk1.Hash(), Enforced: true}); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	// Build a competing fork from genesis that would require popping past
	// height 1's enforced checkpoint.
	origSigner := poa.GetSigner()
	poa.SetSigner(key)
	genBlk, err := ch.blocks.GetBlockByHeight(0)
	if err != nil {
		t.Fatalf("get genesis: %v", err)
	}
	fork1 := buildForkBlock(t, poa, genBlk.Hash(), 1, 1700099999)
	poa.SetSigner(origSigner)

	// Storing fork1 and letting ProcessBlock detect the fork should reject
	// outright, since fork1's hash at height 1 differs from the checkpoint.
	err = ch.ProcessBlock(fork1)
	if !errors.Is(err, ErrCheckpointConflict) {
		t.Fatalf("ProcessBlock(fork1) = %v, want ErrCheckpointConflict", err)
	}
}

func TestReorg_ForcedByEnforcedCheckpointDespiteLessWork(t *testing.T) {
	ch, key, poa := testChainWithKey(t)

	// Main chain: genesis -> 1 -> 2 -> 3 (more cumulative work than the
	// single-block fork below).
	ts := uint64(1700000003)
	for i := 0; i < 3; i++ {
		mineBlock(t, ch, poa, key, ts)
		ts += 3
	}
	blk1, err := ch.blocks.GetBlockByHeight(1)
	if err != nil {
		t.Fatalf("GetBlockByHeight(1): %v", err)
	}

	// A single-block fork off height 1, shorter than the main chain and
	// thus with less cumulative work.
	origSigner := poa.GetSigner()
	poa.SetSigner(key)
	fork2 := buildForkBlock(t, poa, blk1.Hash(), 2, 1700099999)
	poa.SetSigner(origSigner)

	// Enforce a checkpoint at height 2 matching the fork's hash (a foreign
	// checkpoint arriving after the fact, per spec §4.6.a) -- this must
	// force the reorg even though the fork has less work than main chain's
	// height 2-3.
	if err := ch.AddCheckpoint(Checkpoint{Height: 2, Hash: fork2.Hash(), Enforced: true}); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	if err := ch.ProcessBlock(fork2); err != nil {
		t.Fatalf("ProcessBlock(fork2): %v", err)
	}

	if ch.TipHash() != fork2.Hash() {
		t.Fatalf("tip = %s, want forced reorg to fork2 %s", ch.TipHash(), fork2.Hash())
	}
	if ch.Height() != 2 {
		t.Fatalf("height = %d, want 2 after forced reorg", ch.Height())
	}
}
