package names

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// NameSystemDB is the external interface the RPC surface and chain
// validation code query against, adapted from internal/subchain's
// registry shape the same way servicenode.Registry adapts it: a
// map+sync.RWMutex+badger-persisted store keyed by hash instead of by
// chain ID.
type NameSystemDB interface {
	Lookup(hash NameHash) (*Record, bool)
	Register(rec *Record) error
	Renew(hash NameHash, newExpiry uint64) error
	IsExpired(hash NameHash, height uint64) (bool, error)
}

// DB key prefix for name record persistence.
var prefixNames = []byte("n/")

// Store is the concrete, badger-backed NameSystemDB implementation.
type Store struct {
	records map[NameHash]*Record
	mu      sync.RWMutex
}

func NewStore() *Store {
	return &Store{records: make(map[NameHash]*Record)}
}

func (s *Store) Lookup(hash NameHash) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[hash]
	return r, ok
}

// Register adds a new name record. Returns an error if the name is already
// registered and not yet expired; an expired record may be re-registered
// by a new owner.
func (s *Store) Register(rec *Record) error {
	hash := HashName(rec.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[hash]; ok && !existing.IsExpired(rec.RegisteredAt) {
		return fmt.Errorf("name %q already registered", rec.Name)
	}
	s.records[hash] = rec
	return nil
}

// Renew extends an existing record's expiry height. The record must exist.
func (s *Store) Renew(hash NameHash, newExpiry uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[hash]
	if !ok {
		return fmt.Errorf("name %s not registered", NameHash(hash))
	}
	r.ExpiresAt = newExpiry
	return nil
}

func (s *Store) IsExpired(hash NameHash, height uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[hash]
	if !ok {
		return false, fmt.Errorf("name %s not registered", NameHash(hash))
	}
	return r.IsExpired(height), nil
}

// Owner looks up the owner of a registered, unexpired name at height.
func (s *Store) Owner(name string, height uint64) (types.Address, bool) {
	r, ok := s.Lookup(HashName(name))
	if !ok || r.IsExpired(height) {
		return types.Address{}, false
	}
	return r.Owner, true
}

func nameKey(hash NameHash) []byte {
	key := make([]byte, len(prefixNames)+types.HashSize)
	copy(key, prefixNames)
	copy(key[len(prefixNames):], hash[:])
	return key
}

func (s *Store) SaveTo(db storage.DB) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for hash, rec := range s.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal name record %s: %w", rec.Name, err)
		}
		if err := db.Put(nameKey(hash), data); err != nil {
			return fmt.Errorf("save name record %s: %w", rec.Name, err)
		}
	}
	return nil
}

func LoadStore(db storage.DB) (*Store, error) {
	s := NewStore()
	err := db.ForEach(prefixNames, func(key, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("unmarshal name record: %w", err)
		}
		s.records[HashName(rec.Name)] = &rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load name registry: %w", err)
	}
	return s, nil
}
