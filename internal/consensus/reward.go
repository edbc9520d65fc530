package consensus

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/config"
)

// RewardSplit divides a block's base reward among its payees once a
// fork makes service-node staking and governance payouts meaningful.
// Before that fork the entire reward routes to Miner and the other
// fields stay zero.
type RewardSplit struct {
	Miner       uint64
	Governance  uint64
	ServiceNode uint64
}

// Total returns the sum of the split's shares, which always equals the
// reward SplitBlockReward was given.
func (s RewardSplit) Total() uint64 {
	return s.Miner + s.Governance + s.ServiceNode
}

// BaseReward computes the emission for a block at the given
// already-generated supply: base_reward(height, already_generated_coins,
// fork_version) from spec §4.5. Before ForkVersionLongTermWeight the
// chain's flat genesis-configured subsidy applies unchanged, matching
// the blocks mined before the emission curve existed. From that fork
// on, reward decays toward the unissued remainder of maxSupply (a
// Monero-style halving curve) floored at config.TailEmission, and never
// exceeds the flat subsidy it replaces. An uncapped chain (maxSupply
// == 0) has no remainder to decay toward, so it keeps the flat subsidy
// for its entire life.
func BaseReward(flatReward, alreadyGenerated, maxSupply uint64, forkVersion uint32) uint64 {
	if forkVersion < config.ForkVersionLongTermWeight || maxSupply == 0 {
		return flatReward
	}
	if alreadyGenerated >= maxSupply {
		return config.TailEmission
	}
	remaining := maxSupply - alreadyGenerated
	reward := remaining >> config.RewardEmissionShift
	if reward < config.TailEmission {
		reward = config.TailEmission
	}
	if reward > flatReward {
		reward = flatReward
	}
	return reward
}

// SplitBlockReward divides total among the miner, the governance pool
// accumulator, and the winning service node, once forkVersion reaches
// ForkVersionStakeTx (the height service-node staking itself activates
// -- splitting a reward before there is a service-node list to pay
// would be meaningless). The miner absorbs the remainder left over
// from integer division so the three shares always sum back to total.
func SplitBlockReward(total uint64, forkVersion uint32) RewardSplit {
	if forkVersion < config.ForkVersionStakeTx {
		return RewardSplit{Miner: total}
	}
	governance := total / config.GovernanceRewardDivisor
	serviceNode := total / config.ServiceNodeRewardDivisor
	return RewardSplit{
		Miner:       total - governance - serviceNode,
		Governance:  governance,
		ServiceNode: serviceNode,
	}
}

// L2RewardBand returns the inclusive [min, max] band a block's
// recorded l2_reward must fall within, derived from the previous
// block's l2_reward per spec §4.5.a (MAX_INCREASE / MAX_DECREASE).
func L2RewardBand(prev uint64) (min, max uint64) {
	max = prev + prev/config.L2MaxIncreaseDivisor
	decrease := prev / config.L2MaxDecreaseDivisor
	if prev > decrease {
		min = prev - decrease
	}
	return min, max
}

// ValidateL2Reward checks a candidate l2_reward against the band
// derived from the previous block's recorded value.
func ValidateL2Reward(candidate, prev uint64) error {
	min, max := L2RewardBand(prev)
	if candidate < min || candidate > max {
		return fmt.Errorf("l2 reward %d outside consensus band [%d,%d]", candidate, min, max)
	}
	return nil
}

// ConsensusL2Reward returns the reward used for payout splits at the
// current height: the minimum l2_reward observed across the trailing
// config.L2RewardConsensusBlocks window. If the window has not yet
// filled (the chain is still within L2RewardConsensusBlocks of the
// ETH_BLS fork), initial is returned instead per spec §4.5.a.
func ConsensusL2Reward(window []uint64, initial uint64) uint64 {
	if len(window) < config.L2RewardConsensusBlocks {
		return initial
	}
	min := window[0]
	for _, v := range window[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
