package servicenode

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

var prefixReward = []byte("sr/") // sr/<pubkeyHex> -> []PendingInstallment JSON

// PendingInstallment is one block's worth of a winning node's batched
// reward share, paid out over config.ServiceNodeRules.RewardInstallments
// blocks rather than in the block it was won, matching the original's
// batched_governance-style deferred payout (spec §12). Grounded in
// internal/token/mint.go's accrual-then-mint two-phase pattern:
// ExtractAndStoreMetadata there records state at confirmation time and a
// later phase consumes it, same shape here with a height schedule instead.
type PendingInstallment struct {
	Amount uint64        `json:"amount"`
	Height uint64        `json:"height"` // Block height this installment becomes payable at
	Payee  types.Address `json:"payee"`
}

// RewardLedger tracks service-node reward installments awaiting payout,
// keyed by the hex-encoded winning node's public key.
type RewardLedger struct {
	mu      sync.Mutex
	pending map[string][]PendingInstallment
}

// NewRewardLedger creates an empty reward ledger.
func NewRewardLedger() *RewardLedger {
	return &RewardLedger{pending: make(map[string][]PendingInstallment)}
}

// Accrue splits amount into n equal (remainder-to-first) installments
// payable at consecutive heights starting at startHeight+1, and schedules
// them for pubKeyHex/payee.
func (l *RewardLedger) Accrue(pubKeyHex string, payee types.Address, amount uint64, startHeight uint64, n int) {
	if n <= 0 {
		n = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	share := amount / uint64(n)
	remainder := amount - share*uint64(n)
	for i := 0; i < n; i++ {
		amt := share
		if i == 0 {
			amt += remainder
		}
		l.pending[pubKeyHex] = append(l.pending[pubKeyHex], PendingInstallment{
			Amount: amt,
			Height: startHeight + uint64(i) + 1,
			Payee:  payee,
		})
	}
}

// Due returns every installment across all nodes payable at exactly
// height, removing them from the ledger.
func (l *RewardLedger) Due(height uint64) []PendingInstallment {
	l.mu.Lock()
	defer l.mu.Unlock()

	var due []PendingInstallment
	for key, installments := range l.pending {
		var remaining []PendingInstallment
		for _, inst := range installments {
			if inst.Height == height {
				due = append(due, inst)
			} else {
				remaining = append(remaining, inst)
			}
		}
		if len(remaining) == 0 {
			delete(l.pending, key)
		} else {
			l.pending[key] = remaining
		}
	}
	return due
}

// Outstanding returns the total amount still pending for pubKeyHex across
// every scheduled installment, used to answer balance-style RPC queries
// without waiting for each installment to mature.
func (l *RewardLedger) Outstanding(pubKeyHex string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total uint64
	for _, inst := range l.pending[pubKeyHex] {
		total += inst.Amount
	}
	return total
}

func rewardKey(pubKeyHex string) []byte {
	key := make([]byte, len(prefixReward)+len(pubKeyHex))
	copy(key, prefixReward)
	copy(key[len(prefixReward):], pubKeyHex)
	return key
}

// SaveTo persists every pending installment schedule to db.
func (l *RewardLedger) SaveTo(db storage.DB) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, installments := range l.pending {
		data, err := json.Marshal(installments)
		if err != nil {
			return fmt.Errorf("marshal reward schedule %s: %w", key, err)
		}
		if err := db.Put(rewardKey(key), data); err != nil {
			return fmt.Errorf("save reward schedule %s: %w", key, err)
		}
	}
	return nil
}

// LoadRewardLedger loads a reward ledger from db.
func LoadRewardLedger(db storage.DB) (*RewardLedger, error) {
	l := NewRewardLedger()
	err := db.ForEach(prefixReward, func(key, value []byte) error {
		if len(key) <= len(prefixReward) {
			return nil
		}
		pubKeyHex := string(key[len(prefixReward):])
		var installments []PendingInstallment
		if err := json.Unmarshal(value, &installments); err != nil {
			return fmt.Errorf("unmarshal reward schedule: %w", err)
		}
		l.pending[pubKeyHex] = installments
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reward ledger: %w", err)
	}
	return l, nil
}
