// Package utxo manages the UTXO set.
package utxo

import "github.com/Klingon-tech/klingnet-chain/pkg/types"

// UTXO represents an unspent transaction output. Commitment/OneTimePubKey/
// UnlockTime are populated only for ring-protected outputs (§4.1/§4.4); a
// plain P2PKH/Mint/Stake output leaves them empty.
type UTXO struct {
	Outpoint      types.Outpoint   `json:"outpoint"`
	Value         uint64           `json:"value"`
	Script        types.Script     `json:"script"`
	Token         *types.TokenData `json:"token,omitempty"`
	Height        uint64           `json:"height"`
	Coinbase      bool             `json:"coinbase"`
	LockedUntil   uint64           `json:"locked_until,omitempty"`
	Commitment    []byte           `json:"commitment,omitempty"`
	OneTimePubKey []byte           `json:"one_time_pubkey,omitempty"`
	UnlockTime    uint64           `json:"unlock_time,omitempty"`
}

// IsRingOutput reports whether this UTXO carries ring-protected data
// (a Pedersen commitment in place of a plaintext value).
func (u *UTXO) IsRingOutput() bool {
	return len(u.Commitment) > 0
}

// RingOutputView is the read-only projection of a ring-protected UTXO a
// ring-signature verifier needs. It mirrors pkg/tx.RingOutput field for
// field; kept as a separate type here so this package doesn't import
// pkg/tx just to describe its own storage shape.
type RingOutputView struct {
	OneTimePubKey []byte
	Commitment    []byte
	UnlockTime    uint64
	SourceHeight  uint64
}

// Set is the interface for UTXO storage, plus the key-image spend-set
// operations (§4.1) ring-protected inputs use instead of outpoint removal:
// a ring input never removes its chosen member from the set (every member
// stays spendable by other rings), it only marks the signer's key image as
// spent.
type Set interface {
	Get(outpoint types.Outpoint) (*UTXO, error)
	Put(utxo *UTXO) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)

	HasKeyImage(img types.KeyImage) (bool, error)
	AddKeyImage(img types.KeyImage, spentIn types.Hash) error
	RemoveKeyImage(img types.KeyImage) error
	GetRingOutput(outpoint types.Outpoint) (RingOutputView, error)
}
