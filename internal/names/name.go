// Package names implements the on-chain name system (ONS): name
// registration, renewal, and expiry tracking, backing lookups like
// ons_names_to_owners.
package names

import (
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// NameHash identifies a registered name, derived the same way an address is
// derived from a public key (crypto.Hash of the name bytes as given, with
// no case folding, so "Alice" and "alice" are distinct names) rather than
// storing the plaintext name as the key, so lookups never leak
// the full namespace by prefix scan.
type NameHash types.Hash

func (h NameHash) String() string {
	return types.Hash(h).String()
}

// HashName derives the NameHash for a registered name.
func HashName(name string) NameHash {
	return NameHash(crypto.Hash([]byte(name)))
}

// Record holds the registration and renewal state of one name.
type Record struct {
	Name         string        `json:"name"`
	Owner        types.Address `json:"owner"`
	RegisteredAt uint64        `json:"registered_at"` // Height the registration confirmed at
	ExpiresAt    uint64        `json:"expires_at"`     // Height the record lapses at
	RegisterTx   types.Hash    `json:"register_tx"`
	Value        []byte        `json:"value"` // Owner-controlled record data (e.g. a wallet address payload)
}

// IsExpired reports whether the record has lapsed as of height.
func (r *Record) IsExpired(height uint64) bool {
	return height >= r.ExpiresAt
}
