package tx

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// UTXO-aware validation errors.
var (
	ErrInputNotFound     = errors.New("input UTXO not found")
	ErrInputSpent        = errors.New("input UTXO already spent")
	ErrInsufficientFee   = errors.New("insufficient fee")
	ErrInputOverflow     = errors.New("input values overflow")
	ErrScriptMismatch    = errors.New("pubkey does not match UTXO script")
	ErrUnspendableOutput = errors.New("output is unspendable")
	ErrNotUnlocked       = errors.New("output not yet spend-time unlocked")
	ErrRingMemberMissing = errors.New("ring member output not found")
)

// UTXOProvider provides read-only access to the UTXO set for validation of
// plain (non-ring) spends.
type UTXOProvider interface {
	GetUTXO(outpoint types.Outpoint) (value uint64, script types.Script, err error)
	HasUTXO(outpoint types.Outpoint) bool
}

// RingOutput is a single candidate member of a ring: the output's public
// key and commitment, plus enough context to check spend-time unlock.
type RingOutput struct {
	OneTimePubKey []byte
	Commitment    []byte
	UnlockTime    uint64
	SourceHeight  uint64
}

// RingProvider resolves ring member outpoints to their on-chain data for
// ring-signature verification (§4.4 step 2).
type RingProvider interface {
	GetRingOutput(outpoint types.Outpoint) (RingOutput, error)
	HasKeyImage(img types.KeyImage) bool
}

// ValidateWithUTXOs performs full validation of a transaction against the
// UTXO set for transactions using plain (non-ring) inputs: coinbase,
// state_change, stake, name_system, key_image_unlock, and L2-event
// transactions. Ring-protected (TxStandard) transactions are validated via
// ResolveRingMembers and VerifyRingProof instead, since ring membership
// requires a RingProvider rather than the single-outpoint UTXOProvider.
func (tx *Transaction) ValidateWithUTXOs(provider UTXOProvider) (uint64, error) {
	if err := tx.ValidateStructure(); err != nil {
		return 0, err
	}

	var totalInput uint64
	for i, in := range tx.Inputs {
		if in.IsRingInput() {
			return 0, fmt.Errorf("input %d: ring input requires ResolveRingMembers and VerifyRingProof", i)
		}
		// Coinbase inputs skip UTXO checks.
		if in.PrevOut.IsZero() {
			continue
		}

		if !provider.HasUTXO(in.PrevOut) {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrInputNotFound)
		}

		value, script, err := provider.GetUTXO(in.PrevOut)
		if err != nil {
			return 0, fmt.Errorf("input %d: %w", i, err)
		}

		// Reject spending unspendable outputs (register, anchor, burn).
		if script.Type == types.ScriptTypeRegister || script.Type == types.ScriptTypeAnchor || script.Type == types.ScriptTypeBurn {
			return 0, fmt.Errorf("input %d (%s): %w: %s output cannot be spent",
				i, in.PrevOut, ErrUnspendableOutput, script.Type)
		}

		if script.Type == types.ScriptTypeP2PKH {
			if err := verifyP2PKH(in.PubKey, script.Data); err != nil {
				return 0, fmt.Errorf("input %d: %w", i, err)
			}
		}

		if script.Type == types.ScriptTypeStake {
			if len(script.Data) != 33 {
				return 0, fmt.Errorf("input %d: %w: stake script data length %d, want 33", i, ErrScriptMismatch, len(script.Data))
			}
			if !bytes.Equal(in.PubKey, script.Data) {
				return 0, fmt.Errorf("input %d: %w: pubkey does not match stake", i, ErrScriptMismatch)
			}
		}

		if totalInput > math.MaxUint64-value {
			return 0, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalInput += value
	}

	if err := tx.VerifySignatures(); err != nil {
		return 0, err
	}

	totalOutput, ovfErr := tx.TotalOutputValue()
	if ovfErr != nil {
		return 0, fmt.Errorf("output overflow: %w", ovfErr)
	}
	if totalInput < totalOutput {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientFee, totalInput, totalOutput)
	}

	fee := totalInput - totalOutput
	return fee, nil
}

// ValidateStructure checks transaction structure without requiring UTXO access.
// Same as Validate() but renamed for clarity when used alongside ValidateWithUTXOs.
func (tx *Transaction) ValidateStructure() error {
	return tx.Validate()
}

// ResolveRingMembers looks up the candidate outputs for every ring input's
// RingMembers list, checking each is spend-time unlocked relative to
// tentativeHeight/tentativeTime, and returns the resolved rings in input
// order (spec §4.4 step 2).
func (tx *Transaction) ResolveRingMembers(provider RingProvider, tentativeHeight, tentativeTime uint64) ([][]RingOutput, error) {
	rings := make([][]RingOutput, 0, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if !in.IsRingInput() {
			continue
		}
		members := make([]RingOutput, 0, len(in.RingMembers))
		for j, outpoint := range in.RingMembers {
			ro, err := provider.GetRingOutput(outpoint)
			if err != nil {
				return nil, fmt.Errorf("input %d ring member %d (%s): %w: %v", i, j, outpoint, ErrRingMemberMissing, err)
			}
			if ro.UnlockTime > 0 {
				if ro.UnlockTime >= lockTimeHeightThreshold() {
					if tentativeTime < ro.UnlockTime {
						return nil, fmt.Errorf("input %d ring member %d: %w", i, j, ErrNotUnlocked)
					}
				} else if tentativeHeight < ro.UnlockTime {
					return nil, fmt.Errorf("input %d ring member %d: %w", i, j, ErrNotUnlocked)
				}
			}
			members = append(members, ro)
		}
		rings = append(rings, members)
	}
	return rings, nil
}

// lockTimeHeightThreshold mirrors the classical unlock-time
// convention: values below the threshold are block heights, values at or
// above it are unix timestamps.
func lockTimeHeightThreshold() uint64 {
	return 500_000_000
}

// verifyP2PKH checks that a public key hashes to the expected address in the script.
func verifyP2PKH(pubKey []byte, scriptData []byte) error {
	if len(scriptData) != types.AddressSize {
		return fmt.Errorf("%w: script data length %d", ErrScriptMismatch, len(scriptData))
	}
	if len(pubKey) == 0 {
		return ErrMissingPubKey
	}

	// Address = BLAKE3(compressed_pubkey)[:20].
	hash := crypto.Hash(pubKey)
	var expected types.Address
	copy(expected[:], scriptData)
	var derived types.Address
	copy(derived[:], hash[:types.AddressSize])

	if expected != derived {
		return fmt.Errorf("%w: expected %s, got %s", ErrScriptMismatch, expected, derived)
	}
	return nil
}
