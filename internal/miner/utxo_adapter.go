package miner

import (
	"log"

	"github.com/Klingon-tech/klingnet-chain/internal/utxo"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// UTXOAdapter bridges utxo.Set to tx.UTXOProvider.
type UTXOAdapter struct {
	set utxo.Set
}

// NewUTXOAdapter creates a UTXOProvider from a utxo.Set.
func NewUTXOAdapter(set utxo.Set) *UTXOAdapter {
	return &UTXOAdapter{set: set}
}

// GetUTXO returns the value and script for a given outpoint.
func (a *UTXOAdapter) GetUTXO(outpoint types.Outpoint) (uint64, types.Script, error) {
	u, err := a.set.Get(outpoint)
	if err != nil {
		return 0, types.Script{}, err
	}
	return u.Value, u.Script, nil
}

// HasUTXO returns whether the outpoint exists in the UTXO set.
func (a *UTXOAdapter) HasUTXO(outpoint types.Outpoint) bool {
	has, err := a.set.Has(outpoint)
	if err != nil {
		log.Printf("utxo adapter: Has(%s) error: %v", outpoint, err)
		return false
	}
	return has
}

// RingAdapter bridges utxo.Set to tx.RingProvider for ring-input resolution.
type RingAdapter struct {
	set utxo.Set
}

// NewRingAdapter creates a tx.RingProvider from a utxo.Set.
func NewRingAdapter(set utxo.Set) *RingAdapter {
	return &RingAdapter{set: set}
}

// GetRingOutput resolves a ring-member outpoint to its public key/commitment.
func (a *RingAdapter) GetRingOutput(outpoint types.Outpoint) (tx.RingOutput, error) {
	ro, err := a.set.GetRingOutput(outpoint)
	if err != nil {
		return tx.RingOutput{}, err
	}
	return tx.RingOutput{
		OneTimePubKey: ro.OneTimePubKey,
		Commitment:    ro.Commitment,
		UnlockTime:    ro.UnlockTime,
		SourceHeight:  ro.SourceHeight,
	}, nil
}

// HasKeyImage reports whether img has already been spent.
func (a *RingAdapter) HasKeyImage(img types.KeyImage) bool {
	has, err := a.set.HasKeyImage(img)
	if err != nil {
		log.Printf("ring adapter: HasKeyImage(%s) error: %v", img, err)
		return false
	}
	return has
}
