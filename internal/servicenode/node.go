// Package servicenode tracks the staked node list backing Pulse quorum
// selection and service-node reward payouts.
package servicenode

import (
	"encoding/hex"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Node holds the registration and stake state of a single service node,
// generalized from internal/subchain's SubChain metadata shape.
type Node struct {
	PubKey         []byte        `json:"pub_key"`         // Compressed secp256k1 public key (33 bytes)
	RegisteredAt   uint64        `json:"registered_at"`   // Height the registration output confirmed at
	RegistrationTx types.Hash    `json:"registration_tx"` // Tx hash that created this node
	OutputIndex    uint32        `json:"output_index"`
	Operator       types.Address `json:"operator"` // Address credited with reward payouts

	Stake uint64 `json:"stake"` // Currently locked stake, base units

	// RequestedUnlock is set once the operator submits an unstake request;
	// the node remains in the registry (still eligible for quorum duty)
	// until UnlockHeight passes.
	RequestedUnlock bool   `json:"requested_unlock"`
	UnlockHeight    uint64 `json:"unlock_height"`
}

// Key returns the hex-encoded public key used as the node's registry key.
func (n *Node) Key() string {
	return hex.EncodeToString(n.PubKey)
}
