package chain

import (
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/consensus"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
)

// HookKind identifies one of the chain lifecycle events external packages
// (service-node registry, L2 tracker, name system, mempool) can subscribe
// to. This generalizes the teacher's ad-hoc RegistrationHandler/
// DeregistrationHandler/StakeHandler/UnstakeHandler/RevertedTxHandler
// fields -- each of which was really "notify me about one specific scan
// over block outputs" -- into a single ordered, typed registry covering
// the chain-wide lifecycle points a consumer might care about.
type HookKind int

const (
	// HookInit fires once, when a chain finishes InitFromGenesis.
	HookInit HookKind = iota
	// HookBlockAdd fires pre-commit when a block is about to be accepted
	// onto the main chain. Like HookValidateMinerTx, an error returned
	// here aborts the add.
	HookBlockAdd
	// HookAltBlockAdd fires pre-commit when a block is about to be accepted
	// onto a side branch (stored but not active -- see processor.go's
	// fork-detected path). An error returned here aborts the alt-insert.
	HookAltBlockAdd
	// HookBlockPostAdd fires after HookBlockAdd, once all per-block
	// bookkeeping (supply, cumulative difficulty, tip) has been persisted.
	HookBlockPostAdd
	// HookBlockchainDetached fires once per reorg, after old blocks have
	// been reverted and before the new branch replay begins.
	HookBlockchainDetached
	// HookValidateMinerTx fires during block validation so a subscriber can
	// reject a coinbase transaction that violates an externally-tracked
	// rule (e.g. an L2-anchored reward band). As with HookBlockAdd and
	// HookAltBlockAdd, an error returned here aborts block acceptance.
	HookValidateMinerTx
	// HookRewardSplit fires after a block is accepted by ProcessBlock's
	// fast path, once the block reward has been divided per
	// consensus.SplitBlockReward, and only when the governance or
	// service-node share is non-zero (blocks replayed during a reorg do
	// not fire it), so subscribers that
	// don't live in this package (the governance pool, the service-node
	// reward ledger) can accrue their share without this package importing
	// them.
	HookRewardSplit
)

// InitEvent is delivered on HookInit.
type InitEvent struct {
	GenesisHash  [32]byte
	GenesisBlock *block.Block
}

// BlockEvent is delivered on HookBlockAdd, HookAltBlockAdd, and HookBlockPostAdd.
type BlockEvent struct {
	Block  *block.Block
	Height uint64
}

// DetachEvent is delivered on HookBlockchainDetached.
type DetachEvent struct {
	ForkHeight  uint64
	FromHeight  uint64
	RevertedTxs []*tx.Transaction
}

// MinerTxEvent is delivered on HookValidateMinerTx.
type MinerTxEvent struct {
	Block   *block.Block
	MinerTx *tx.Transaction
}

// RewardSplitEvent is delivered on HookRewardSplit.
type RewardSplitEvent struct {
	Block  *block.Block
	Height uint64
	Split  consensus.RewardSplit
}

// Hook is a subscriber callback. For the abort-capable kinds --
// HookValidateMinerTx, HookBlockAdd, HookAltBlockAdd -- the first error
// returned aborts delivery and is propagated to the caller. For every
// other kind a returned error is logged by Fire and does not stop delivery
// to the remaining subscribers.
type Hook func(event any) error

// abortableHooks are the pre-commit kinds whose subscribers can veto the
// event: spec.md §2 requires a block_add/alt_block_add hook failure to
// abort the addition, the same way a rejected HookValidateMinerTx does.
var abortableHooks = map[HookKind]bool{
	HookValidateMinerTx: true,
	HookBlockAdd:        true,
	HookAltBlockAdd:     true,
}

// Hooks is an ordered, per-kind subscriber registry. Subscribers fire in
// registration order, matching the teacher's single-callback-per-concern
// convention generalized to "N subscribers per concern."
type Hooks struct {
	mu          sync.RWMutex
	subscribers map[HookKind][]Hook
	onError     func(kind HookKind, err error)
}

// NewHooks creates an empty hook bus. onError, if non-nil, is called for
// every notification-hook error (errors from the abortable kinds --
// HookValidateMinerTx, HookBlockAdd, HookAltBlockAdd -- are returned
// directly instead and never reach onError).
func NewHooks(onError func(kind HookKind, err error)) *Hooks {
	return &Hooks{
		subscribers: make(map[HookKind][]Hook),
		onError:     onError,
	}
}

// Register subscribes fn to kind, appended after any existing subscribers.
func (h *Hooks) Register(kind HookKind, fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[kind] = append(h.subscribers[kind], fn)
}

// Fire delivers event to every subscriber of kind in registration order.
// For an abortable kind (HookValidateMinerTx, HookBlockAdd,
// HookAltBlockAdd), the first subscriber error is returned immediately
// and halts delivery. For every other kind, Fire always delivers to every
// subscriber and returns nil, reporting individual errors via onError.
func (h *Hooks) Fire(kind HookKind, event any) error {
	h.mu.RLock()
	subs := append([]Hook(nil), h.subscribers[kind]...)
	onError := h.onError
	h.mu.RUnlock()

	abortable := abortableHooks[kind]
	for _, fn := range subs {
		if err := fn(event); err != nil {
			if abortable {
				return err
			}
			if onError != nil {
				onError(kind, err)
			}
		}
	}
	return nil
}
