package servicenode

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

func testPubKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key.PublicKey()
}

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	reg := NewRegistry()
	n := &Node{PubKey: testPubKey(t), RegisteredAt: 10, Stake: 500}

	if err := reg.Register(n); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(n); err == nil {
		t.Fatal("Register should reject duplicate key")
	}

	got, ok := reg.Get(n.Key())
	if !ok || got != n {
		t.Fatalf("Get returned %+v, ok=%v", got, ok)
	}
	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}

	reg.Unregister(n.Key())
	if reg.Has(n.Key()) {
		t.Fatal("node still present after Unregister")
	}
}

func TestRegistry_SaveLoadRoundTrip(t *testing.T) {
	db := storage.NewMemory()
	reg := NewRegistry()
	n := &Node{PubKey: testPubKey(t), RegisteredAt: 5, Stake: 1000}
	if err := reg.Register(n); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.SaveTo(db); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadRegistry(db)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	got, ok := loaded.Get(n.Key())
	if !ok {
		t.Fatal("loaded registry missing node")
	}
	if got.Stake != n.Stake || got.RegisteredAt != n.RegisteredAt {
		t.Fatalf("loaded node = %+v, want stake=%d registeredAt=%d", got, n.Stake, n.RegisteredAt)
	}
}

func TestRegistry_PruneRemovable(t *testing.T) {
	reg := NewRegistry()
	unstaked := &Node{PubKey: testPubKey(t), Stake: 0}
	staked := &Node{PubKey: testPubKey(t), Stake: 1000}
	if err := reg.Register(unstaked); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(staked); err != nil {
		t.Fatalf("Register: %v", err)
	}

	removed := reg.PruneRemovable(100)
	if len(removed) != 1 || removed[0] != unstaked.Key() {
		t.Fatalf("PruneRemovable = %v, want only %s removed", removed, unstaked.Key())
	}
	if !reg.Has(staked.Key()) {
		t.Fatal("staked node should survive prune")
	}
}
