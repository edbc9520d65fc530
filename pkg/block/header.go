package block

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// PulseProof is the quorum co-signature over a block produced by the Pulse
// (BFT) consensus path instead of proof-of-work. ValidatorBitset marks
// which quorum members' signatures are aggregated into Signature; the
// number of set bits must meet the quorum's signer threshold.
type PulseProof struct {
	Round           uint8  `json:"round"`
	ValidatorBitset uint32 `json:"validator_bitset"`
	Signature       []byte `json:"signature"`
}

// Header contains block metadata. FeatureVersion is the hard-fork version
// selecting the active consensus rule set at Height (distinct from
// Version, the wire-serialisation format of the header itself). Exactly
// one of Nonce (PoW) or Pulse (Pulse quorum) is meaningful for a given
// block; which one is determined by FeatureVersion and by whether
// Pulse.Signature is non-empty.
type Header struct {
	Version        uint32      `json:"version"`
	FeatureVersion uint32      `json:"feature_version"`
	PrevHash       types.Hash  `json:"prev_hash"`
	MerkleRoot     types.Hash  `json:"merkle_root"`
	MinerTxHash    types.Hash  `json:"miner_tx_hash"`
	Timestamp      uint64      `json:"timestamp"`
	Height         uint64      `json:"height"`
	Difficulty     uint64      `json:"difficulty,omitempty"` // PoW: target difficulty (config.PulseFixedDifficulty for Pulse blocks)
	Nonce          uint64      `json:"nonce"`
	Pulse          *PulseProof `json:"pulse,omitempty"`
	ValidatorSig   []byte      `json:"validator_sig,omitempty"`

	// L2Reward is the contract-anchored reward value recorded at this
	// block. Only meaningful at or after config.ForkVersionETHBLS; zero
	// otherwise.
	L2Reward uint64 `json:"l2_reward,omitempty"`
}

// headerJSON is the JSON representation of Header with hex-encoded byte fields.
type headerJSON struct {
	Version        uint32      `json:"version"`
	FeatureVersion uint32      `json:"feature_version"`
	PrevHash       types.Hash  `json:"prev_hash"`
	MerkleRoot     types.Hash  `json:"merkle_root"`
	MinerTxHash    types.Hash  `json:"miner_tx_hash"`
	Timestamp      uint64      `json:"timestamp"`
	Height         uint64      `json:"height"`
	Difficulty     uint64      `json:"difficulty,omitempty"`
	Nonce          uint64      `json:"nonce"`
	Pulse          *PulseProof `json:"pulse,omitempty"`
	ValidatorSig   string      `json:"validator_sig,omitempty"`
	L2Reward       uint64      `json:"l2_reward,omitempty"`
}

// MarshalJSON encodes the header with hex-encoded validator signature.
// MinerTxHash is emitted exactly once, via the struct field above.
func (h *Header) MarshalJSON() ([]byte, error) {
	j := headerJSON{
		Version:        h.Version,
		FeatureVersion: h.FeatureVersion,
		PrevHash:       h.PrevHash,
		MerkleRoot:     h.MerkleRoot,
		MinerTxHash:    h.MinerTxHash,
		Timestamp:      h.Timestamp,
		Height:         h.Height,
		Difficulty:     h.Difficulty,
		Nonce:          h.Nonce,
		Pulse:          h.Pulse,
		L2Reward:       h.L2Reward,
	}
	if h.ValidatorSig != nil {
		j.ValidatorSig = hex.EncodeToString(h.ValidatorSig)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a header with hex-encoded validator signature.
func (h *Header) UnmarshalJSON(data []byte) error {
	var j headerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	h.Version = j.Version
	h.FeatureVersion = j.FeatureVersion
	h.PrevHash = j.PrevHash
	h.MerkleRoot = j.MerkleRoot
	h.MinerTxHash = j.MinerTxHash
	h.Timestamp = j.Timestamp
	h.Height = j.Height
	h.Difficulty = j.Difficulty
	h.Nonce = j.Nonce
	h.Pulse = j.Pulse
	h.L2Reward = j.L2Reward
	if j.ValidatorSig != "" {
		b, err := hex.DecodeString(j.ValidatorSig)
		if err != nil {
			return err
		}
		h.ValidatorSig = b
	}
	return nil
}

// IsPulseBlock reports whether this header was produced by the Pulse
// quorum path rather than proof-of-work.
func (h *Header) IsPulseBlock() bool {
	return h.Pulse != nil
}

// Hash computes the block header hash.
// Excludes ValidatorSig so the hash is stable for signing.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes for hashing/signing.
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 160)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = binary.LittleEndian.AppendUint32(buf, h.FeatureVersion)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = append(buf, h.MinerTxHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint64(buf, h.Height)
	buf = binary.LittleEndian.AppendUint64(buf, h.Difficulty)
	buf = binary.LittleEndian.AppendUint64(buf, h.Nonce)
	if h.Pulse != nil {
		buf = append(buf, h.Pulse.Round)
		buf = binary.LittleEndian.AppendUint32(buf, h.Pulse.ValidatorBitset)
	}
	buf = binary.LittleEndian.AppendUint64(buf, h.L2Reward)
	return buf
}
