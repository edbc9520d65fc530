package tx

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Ring/RingCT proof errors.
var (
	ErrProofCountMismatch = errors.New("proof count does not match ring input count")
	ErrBadRingSignature   = errors.New("ring signature verification failed")
	ErrBadRangeProof      = errors.New("range proof verification failed")
	ErrProofSystemMismatch = errors.New("proof does not match the system required by transaction version")
)

// VerifyRingProof checks every ring input's signature against its resolved
// ring and, for versions that commit to hidden amounts, every output's
// range proof. Dispatch is purely by tx.Version via
// types.ProofSystemForVersion / crypto.RangeProofKindForVersion -- a tagged
// sum over {v1_ring, MLSAG, CLSAG} x {Borromean, Bulletproofs,
// Bulletproofs+} -- never by runtime type inspection of the proof values
// themselves.
func (tx *Transaction) VerifyRingProof(rings [][]RingOutput) error {
	system := types.ProofSystemForVersion(tx.Version)
	if system == types.ProofNone {
		return nil // plain transaction types carry no ring proof
	}
	if tx.Proof == nil {
		return ErrMissingProof
	}
	if len(tx.Proof.RingSigs) != len(rings) {
		return fmt.Errorf("%w: have %d signatures, %d ring inputs", ErrProofCountMismatch, len(tx.Proof.RingSigs), len(rings))
	}

	wantCLSAG := system == types.ProofCLSAG || system == types.ProofCLSAGPlus
	message := tx.Hash()

	for i, sig := range tx.Proof.RingSigs {
		if sig.CLSAG != wantCLSAG {
			return fmt.Errorf("input %d: %w", i, ErrProofSystemMismatch)
		}
		pubkeys := make([]*secp256k1.PublicKey, 0, len(rings[i]))
		for j, member := range rings[i] {
			pk, err := secp256k1.ParsePubKey(member.OneTimePubKey)
			if err != nil {
				return fmt.Errorf("input %d ring member %d: parse pubkey: %w", i, j, err)
			}
			pubkeys = append(pubkeys, pk)
		}
		if !sig.Verify(message[:], pubkeys) {
			return fmt.Errorf("input %d: %w", i, ErrBadRingSignature)
		}
	}

	if system == types.ProofRingSig {
		return nil // v1: visible amounts, no range proofs
	}

	kind := crypto.RangeProofKindForVersion(tx.Version)
	ringOutputs := 0
	for _, out := range tx.Outputs {
		if out.IsRingOutput() {
			ringOutputs++
		}
	}
	if len(tx.Proof.RangeProofs) != ringOutputs {
		return fmt.Errorf("%w: have %d range proofs, %d ring outputs", ErrProofCountMismatch, len(tx.Proof.RangeProofs), ringOutputs)
	}
	for i, rp := range tx.Proof.RangeProofs {
		if rp.Kind != kind {
			return fmt.Errorf("output %d: %w", i, ErrProofSystemMismatch)
		}
		if !rp.Verify() {
			return fmt.Errorf("output %d: %w", i, ErrBadRangeProof)
		}
	}

	return nil
}

// BuildRingProof signs every ring input of tx and attaches range proofs to
// every ring output, populating tx.Proof. secretIndices maps each ring
// input's position (among ring inputs only) to the index of the real spend
// within that input's RingMembers; blindings supplies the blinding factor
// used for each ring output's Pedersen commitment, in output order.
func (tx *Transaction) BuildRingProof(rings [][]RingOutput, privs []*crypto.PrivateKey, secretIndices []int, blindings [][]byte, amounts []uint64) error {
	system := types.ProofSystemForVersion(tx.Version)
	if system == types.ProofNone {
		return nil
	}
	if len(rings) != len(privs) || len(rings) != len(secretIndices) {
		return fmt.Errorf("rings/privs/secretIndices length mismatch")
	}

	clsag := system == types.ProofCLSAG || system == types.ProofCLSAGPlus
	message := tx.Hash()

	sigs := make([]*crypto.RingSignature, 0, len(rings))
	for i, ring := range rings {
		pubkeys := make([]*secp256k1.PublicKey, 0, len(ring))
		for j, member := range ring {
			pk, err := secp256k1.ParsePubKey(member.OneTimePubKey)
			if err != nil {
				return fmt.Errorf("input %d ring member %d: parse pubkey: %w", i, j, err)
			}
			pubkeys = append(pubkeys, pk)
		}
		sig, err := crypto.Sign(message[:], pubkeys, privs[i], secretIndices[i], clsag)
		if err != nil {
			return fmt.Errorf("input %d: sign ring: %w", i, err)
		}
		sigs = append(sigs, sig)
	}

	var rangeProofs []*crypto.RangeProof
	if system != types.ProofRingSig {
		kind := crypto.RangeProofKindForVersion(tx.Version)
		idx := 0
		for i, out := range tx.Outputs {
			if !out.IsRingOutput() {
				continue
			}
			if idx >= len(blindings) || idx >= len(amounts) {
				return fmt.Errorf("output %d: missing blinding/amount for range proof", i)
			}
			rp, err := crypto.ProveRange(kind, amounts[idx], blindings[idx])
			if err != nil {
				return fmt.Errorf("output %d: range proof: %w", i, err)
			}
			rangeProofs = append(rangeProofs, rp)
			idx++
		}
	}

	tx.Proof = &Proof{RingSigs: sigs, RangeProofs: rangeProofs}
	return nil
}
