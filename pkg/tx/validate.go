package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrOutputOverflow     = errors.New("output values overflow")
	ErrNegativeOutput     = errors.New("output value is zero")
	ErrInvalidScript      = errors.New("invalid script type")
	ErrMissingPubKey      = errors.New("input missing public key")
	ErrMissingSig         = errors.New("input missing signature")
	ErrInvalidSig         = errors.New("invalid signature")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrScriptDataTooLarge = errors.New("script data too large")
	ErrTypeNotPermitted   = errors.New("transaction type not permitted at this fork version")
	ErrMissingProof       = errors.New("ring-protected transaction missing proof")
	ErrDuplicateKeyImage  = errors.New("duplicate key image within transaction")
)

// Validate checks transaction structure and basic rules. This does NOT
// check UTXO/ring existence (that requires the UTXO set, see
// ValidateWithUTXOs and VerifyRingProof).
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	// Check for duplicate inputs: plain inputs by prevout, ring inputs by
	// key image (the ring-signature double-spend oracle).
	seenOutpoint := make(map[types.Outpoint]bool, len(tx.Inputs))
	seenImage := make(map[types.KeyImage]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if in.IsRingInput() {
			if seenImage[in.KeyImage] {
				return fmt.Errorf("input %d: %w", i, ErrDuplicateKeyImage)
			}
			seenImage[in.KeyImage] = true
			if len(in.RingMembers) == 0 {
				return fmt.Errorf("input %d: ring input has no ring members", i)
			}
			continue
		}
		if seenOutpoint[in.PrevOut] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seenOutpoint[in.PrevOut] = true
	}

	// Validate plain inputs have signatures and public keys. Coinbase
	// inputs (zero outpoint) are exempt -- they create coins.
	for i, in := range tx.Inputs {
		if in.IsRingInput() || in.PrevOut.IsZero() {
			continue
		}
		if len(in.PubKey) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingPubKey)
		}
		if len(in.Signature) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSig)
		}
	}

	// Ring-protected transactions must carry a proof bundle; its size is
	// checked against the rings by VerifyRingProof.
	if tx.hasRingInputs() && tx.Proof == nil {
		return ErrMissingProof
	}

	// Validate outputs.
	var totalOutput uint64
	for i, out := range tx.Outputs {
		if out.IsRingOutput() {
			if len(out.OneTimePubKey) == 0 {
				return fmt.Errorf("output %d: ring output missing one-time pubkey", i)
			}
			continue
		}
		if out.Value == 0 && out.Token == nil {
			return fmt.Errorf("output %d: %w", i, ErrNegativeOutput)
		}
		if len(out.Script.Data) > config.MaxScriptData {
			return fmt.Errorf("output %d: %w: %d bytes, max %d", i, ErrScriptDataTooLarge, len(out.Script.Data), config.MaxScriptData)
		}
		if totalOutput > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		totalOutput += out.Value
	}

	return nil
}

// hasRingInputs reports whether any input in the transaction spends via
// ring membership.
func (tx *Transaction) hasRingInputs() bool {
	for _, in := range tx.Inputs {
		if in.IsRingInput() {
			return true
		}
	}
	return false
}

// ValidateTypeAtForkVersion checks that tx.Type is permitted at the given
// hard-fork version. Stake, name_system, and L2-event types are only
// introduced at later fork versions; key_image_unlock is a privileged
// administrative type never accepted from ordinary block inclusion (only
// via the chain manager's blink rollback path), so it is rejected here
// unless allowKeyImageUnlock is set by that caller.
func (tx *Transaction) ValidateTypeAtForkVersion(forkVersion uint32, allowKeyImageUnlock bool) error {
	switch tx.Type {
	case types.TxStandard, types.TxStateChange:
		return nil
	case types.TxKeyImageUnlock:
		if !allowKeyImageUnlock {
			return fmt.Errorf("%w: key_image_unlock outside blink rollback", ErrTypeNotPermitted)
		}
		return nil
	case types.TxStake:
		if forkVersion < config.ForkVersionStakeTx {
			return fmt.Errorf("%w: stake tx requires fork %d, have %d", ErrTypeNotPermitted, config.ForkVersionStakeTx, forkVersion)
		}
		return nil
	case types.TxNameSystem:
		if forkVersion < config.ForkVersionNameSystem {
			return fmt.Errorf("%w: name_system tx requires fork %d, have %d", ErrTypeNotPermitted, config.ForkVersionNameSystem, forkVersion)
		}
		return nil
	default:
		if tx.Type.IsL2Event() {
			if forkVersion < config.ForkVersionETHBLS {
				return fmt.Errorf("%w: l2 event tx requires fork %d, have %d", ErrTypeNotPermitted, config.ForkVersionETHBLS, forkVersion)
			}
			return nil
		}
		return fmt.Errorf("%w: unknown type %d", ErrTypeNotPermitted, tx.Type)
	}
}

// VerifySignatures checks that all plain (non-ring) input signatures are
// valid for this transaction. Ring input proofs are checked separately via
// VerifyRingProof, since they require the resolved ring of candidate
// public keys from the UTXO set.
func (tx *Transaction) VerifySignatures() error {
	hash := tx.Hash()
	for i, in := range tx.Inputs {
		if in.IsRingInput() || in.PrevOut.IsZero() {
			continue
		}
		if !crypto.VerifySignature(hash[:], in.Signature, in.PubKey) {
			return fmt.Errorf("input %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}
