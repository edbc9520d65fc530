package token

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
)

var keyGovernancePool = []byte("g/pool") // single accumulator, not prefix-scanned

// GovernancePool is a running accumulator of the governance share carved
// out of each block reward by consensus.SplitBlockReward (spec §12's
// governance/founder reward pool), paid out periodically to a founder or
// DAO address rather than per-block. Grounded in Store's balance-tracking
// shape above: a single badger-backed counter instead of a per-key map,
// since there is exactly one pool rather than one entry per token.
type GovernancePool struct {
	mu      sync.Mutex
	balance uint64
}

// NewGovernancePool creates an empty governance pool accumulator.
func NewGovernancePool() *GovernancePool {
	return &GovernancePool{}
}

// Accrue adds amount to the pool balance.
func (p *GovernancePool) Accrue(amount uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance += amount
}

// Balance returns the current accumulated balance.
func (p *GovernancePool) Balance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Payout withdraws up to amount from the pool, returning the amount
// actually withdrawn (less than amount if the pool holds less).
func (p *GovernancePool) Payout(amount uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount > p.balance {
		amount = p.balance
	}
	p.balance -= amount
	return amount
}

// SaveTo persists the pool balance to db.
func (p *GovernancePool) SaveTo(db storage.DB) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, p.balance)
	if err := db.Put(keyGovernancePool, buf); err != nil {
		return fmt.Errorf("save governance pool: %w", err)
	}
	return nil
}

// LoadGovernancePool loads the pool balance from db, or returns an empty
// pool if none has been persisted yet.
func LoadGovernancePool(db storage.DB) (*GovernancePool, error) {
	data, err := db.Get(keyGovernancePool)
	if err != nil {
		return NewGovernancePool(), nil
	}
	if len(data) != 8 {
		return nil, fmt.Errorf("corrupt governance pool entry: %d bytes", len(data))
	}
	return &GovernancePool{balance: binary.BigEndian.Uint64(data)}, nil
}
