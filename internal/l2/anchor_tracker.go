package l2

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
)

var prefixAnchor = []byte("l2/") // l2/<height big-endian uint64> -> l2_reward

// AnchorTracker is the concrete Tracker backing a running node: it records
// each block's recorded l2_reward as the chain accepts it and answers
// L2RewardAt from that history, the same record-then-answer shape
// internal/token/store.go uses for token metadata (one entry per key,
// badger-backed, no secondary index).
type AnchorTracker struct {
	mu      sync.RWMutex
	history map[uint64]uint64
	db      storage.DB
}

// NewAnchorTracker creates an anchor tracker persisting to db.
func NewAnchorTracker(db storage.DB) *AnchorTracker {
	return &AnchorTracker{history: make(map[uint64]uint64), db: db}
}

// L2RewardAt implements Tracker.
func (a *AnchorTracker) L2RewardAt(height uint64) (uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.history[height]
	return v, ok
}

// Record stores the l2_reward observed at height, persisting it if the
// tracker has a backing store.
func (a *AnchorTracker) Record(height, value uint64) error {
	a.mu.Lock()
	a.history[height] = value
	a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	if err := a.db.Put(anchorKey(height), buf); err != nil {
		return fmt.Errorf("persist l2 anchor at height %d: %w", height, err)
	}
	return nil
}

func anchorKey(height uint64) []byte {
	key := make([]byte, len(prefixAnchor)+8)
	copy(key, prefixAnchor)
	binary.BigEndian.PutUint64(key[len(prefixAnchor):], height)
	return key
}

// LoadAnchorTracker loads recorded anchors from db.
func LoadAnchorTracker(db storage.DB) (*AnchorTracker, error) {
	a := NewAnchorTracker(db)
	err := db.ForEach(prefixAnchor, func(key, value []byte) error {
		if len(key) != len(prefixAnchor)+8 || len(value) != 8 {
			return nil // Malformed entry, skip.
		}
		height := binary.BigEndian.Uint64(key[len(prefixAnchor):])
		a.history[height] = binary.BigEndian.Uint64(value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load l2 anchor history: %w", err)
	}
	return a, nil
}

// RegisterHooks subscribes the tracker to the chain's hook bus so every
// accepted block's l2_reward is recorded without the chain manager needing
// to know the L2 tracker exists, in the same hook-bus wiring style as
// servicenode.RegisterHooks (which subscribes to HookBlockAdd instead).
func RegisterHooks(hooks *chain.Hooks, tracker *AnchorTracker) {
	hooks.Register(chain.HookBlockPostAdd, func(event any) error {
		be, ok := event.(chain.BlockEvent)
		if !ok || be.Block == nil || be.Block.Header == nil {
			return nil
		}
		if be.Block.Header.L2Reward == 0 {
			return nil
		}
		return tracker.Record(be.Height, be.Block.Header.L2Reward)
	})
}
