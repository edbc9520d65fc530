package chain

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Checkpoint pins a (height, hash) pair, per spec §1/§4.6.a. An enforced
// checkpoint makes any block at that height with a different hash
// invalid and blocks reorganization past it; an advisory checkpoint is
// recorded (e.g. automatically every config.CheckpointInterval blocks)
// but never rejects a conflicting block on its own.
type Checkpoint struct {
	Height   uint64     `json:"height"`
	Hash     types.Hash `json:"hash"`
	Enforced bool       `json:"enforced"`
}

// ErrCheckpointConflict is returned when a block's hash at a checkpointed
// height differs from an enforced checkpoint.
var ErrCheckpointConflict = fmt.Errorf("block conflicts with enforced checkpoint")

// CheckpointSet holds the checkpoints known to a chain, keyed by height.
// Grounded in internal/subchain/registry.go's map+mutex shape, generalized
// from sub-chain registration metadata to checkpoint bookkeeping: both are
// small, infrequently-written, frequently-read maps guarded by a single
// RWMutex rather than going through the UTXO/block storage layer.
type CheckpointSet struct {
	mu     sync.RWMutex
	points map[uint64]Checkpoint
}

// NewCheckpointSet creates an empty checkpoint set.
func NewCheckpointSet() *CheckpointSet {
	return &CheckpointSet{points: make(map[uint64]Checkpoint)}
}

// Add records a checkpoint. Adding a second, conflicting enforced
// checkpoint at a height that already carries a different enforced hash
// is rejected — once enforced, a checkpoint's hash is final. An advisory
// checkpoint may be upgraded to enforced (or have its hash corrected)
// freely, since it never blocked anything on its own.
func (cs *CheckpointSet) Add(cp Checkpoint) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if existing, ok := cs.points[cp.Height]; ok && existing.Enforced && existing.Hash != cp.Hash {
		return fmt.Errorf("%w: height %d already enforced at %s, got %s",
			ErrCheckpointConflict, cp.Height, existing.Hash, cp.Hash)
	}
	cs.points[cp.Height] = cp
	return nil
}

// Get returns the checkpoint recorded at height, if any.
func (cs *CheckpointSet) Get(height uint64) (Checkpoint, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	cp, ok := cs.points[height]
	return cp, ok
}

// HighestEnforced returns the enforced checkpoint with the greatest
// height, and false if no enforced checkpoint has been recorded.
func (cs *CheckpointSet) HighestEnforced() (Checkpoint, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var best Checkpoint
	found := false
	for _, cp := range cs.points {
		if cp.Enforced && (!found || cp.Height > best.Height) {
			best = cp
			found = true
		}
	}
	return best, found
}

// Validate checks a candidate block hash at height against any enforced
// checkpoint recorded there. Advisory checkpoints and heights with no
// checkpoint always pass.
func (cs *CheckpointSet) Validate(height uint64, hash types.Hash) error {
	cp, ok := cs.Get(height)
	if !ok || !cp.Enforced {
		return nil
	}
	if cp.Hash != hash {
		return fmt.Errorf("%w: height %d", ErrCheckpointConflict, height)
	}
	return nil
}

// AddCheckpoint records a checkpoint on the chain (ours or foreign, per
// spec §1's "checkpointing (ours and foreign)").
func (c *Chain) AddCheckpoint(cp Checkpoint) error {
	return c.checkpoints.Add(cp)
}

// Checkpoints returns the chain's checkpoint set.
func (c *Chain) Checkpoints() *CheckpointSet {
	return c.checkpoints
}
