package token

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
)

func TestGovernancePool_AccrueAndPayout(t *testing.T) {
	p := NewGovernancePool()
	p.Accrue(100)
	p.Accrue(50)
	if p.Balance() != 150 {
		t.Fatalf("Balance = %d, want 150", p.Balance())
	}

	got := p.Payout(60)
	if got != 60 || p.Balance() != 90 {
		t.Fatalf("Payout(60) = %d, balance = %d, want 60 and 90", got, p.Balance())
	}

	got = p.Payout(1000)
	if got != 90 || p.Balance() != 0 {
		t.Fatalf("Payout(1000) over-withdraw = %d, balance = %d, want 90 and 0", got, p.Balance())
	}
}

func TestGovernancePool_SaveLoadRoundTrip(t *testing.T) {
	db := storage.NewMemory()
	p := NewGovernancePool()
	p.Accrue(12345)
	if err := p.SaveTo(db); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadGovernancePool(db)
	if err != nil {
		t.Fatalf("LoadGovernancePool: %v", err)
	}
	if loaded.Balance() != 12345 {
		t.Fatalf("loaded balance = %d, want 12345", loaded.Balance())
	}
}

func TestLoadGovernancePool_EmptyReturnsZero(t *testing.T) {
	db := storage.NewMemory()
	p, err := LoadGovernancePool(db)
	if err != nil {
		t.Fatalf("LoadGovernancePool: %v", err)
	}
	if p.Balance() != 0 {
		t.Fatalf("Balance = %d, want 0", p.Balance())
	}
}
