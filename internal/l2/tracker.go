// Package l2 tracks the externally-anchored (ETH_BLS) reward value blocks
// record once config.ForkVersionETHBLS activates.
package l2

// Tracker reports the L2-anchored reward value observed for a given chain
// height, adapting the same adapter-interface shape
// internal/token/adapter.go's UTXOTokenAdapter uses to bridge UTXO state
// into token validation -- here bridging chain-recorded header values into
// whatever external consumer (RPC, the reward-band check) wants an
// anchor-backed view instead of reaching into block storage directly.
type Tracker interface {
	// L2RewardAt returns the l2_reward anchored at height, or ok=false if
	// no anchor has been observed for that height yet.
	L2RewardAt(height uint64) (value uint64, ok bool)
}
