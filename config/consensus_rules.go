package config

// Fork-version thresholds gating when a transaction type or feature becomes
// valid. Schedule is static, matching the hard-fork-version model used
// throughout the consensus rules.
const (
	ForkVersionLongTermWeight = 9  // long-term block-weight anti-spike window activates
	ForkVersionPulse          = 16 // Pulse (BFT quorum) block production activates
	ForkVersionStakeTx        = 9  // stake transactions accepted
	ForkVersionNameSystem     = 9  // name-system transactions accepted
	ForkVersionETHBLS         = 21 // L2-anchored service-node lifecycle and reward band activate
)

// Weight-engine constants (spec §4.2).
const (
	WeightShortWindow = 100   // W_short: short rolling-median window, in blocks
	WeightLongWindow  = 5000  // W_long: long-term anti-spike window, in blocks
	// MinMedianWeight is the consensus floor for the short-window median
	// (BLOCK_GRANTED_FULL_REWARD_ZONE_V5 in the original reward-zone
	// terminology): an empty or lightly-used chain still reports this
	// median rather than zero.
	MinMedianWeight = 300_000
	// LongTermWeightClampNumerator/Denominator bound how far a single
	// block's long-term weight may exceed the previous long-term
	// effective median: ltw(b) <= (Numerator/Denominator) * prev_median.
	LongTermWeightClampNumerator   = 14
	LongTermWeightClampDenominator = 10
)

// Difficulty-engine constants (spec §4.3).
const (
	DifficultyWindowK = 60  // number of trailing timestamps/cumulative-difficulties considered
	DifficultyCutN    = 6   // outliers trimmed from each end of the sorted window
	DifficultyTargetSeconds = 120 // target seconds per block
	// PulseFixedDifficulty is the sentinel difficulty recorded for blocks
	// produced by the Pulse quorum path; it is never computed, only
	// compared for PoW/Pulse tie-breaking during fork choice.
	PulseFixedDifficulty = 1
)

// Timestamp validation constants.
const (
	TimestampWindow = 60           // W_ts: number of previous block timestamps the median is drawn from
	TimestampFutureSlack = 120     // seconds a block's timestamp may exceed "now" by
)

// L2 / ETH_BLS reward-band constants (spec §4.5.a).
const (
	L2RewardConsensusBlocks = 10 // window over which the consensus reward is the minimum observed
	L2MaxIncreaseDivisor    = 20 // next <= prev * (divisor+1)/divisor
	L2MaxDecreaseDivisor    = 20 // next >= prev * (divisor-1)/divisor
	// InitialL2Reward seeds the consensus L2 reward for the blocks
	// produced between the ETH_BLS fork activating and the window
	// filling up with L2RewardConsensusBlocks real observations.
	InitialL2Reward = 0
)

// Block-reward emission and split constants (spec §4.5).
const (
	// RewardEmissionShift sets how fast the base reward decays toward
	// the unissued remainder: base_reward = (maxSupply-alreadyGenerated)
	// >> RewardEmissionShift, floored at TailEmission. Below
	// ForkVersionLongTermWeight the flat genesis-configured subsidy is
	// used unchanged (matches the chain's early, pre-curve blocks).
	RewardEmissionShift = 20
	// TailEmission is the minimum per-block subsidy once the curve
	// decays below it, keeping miners paid after the bulk of supply has
	// been issued.
	TailEmission = 1
	// GovernanceRewardDivisor and ServiceNodeRewardDivisor carve the
	// post-ForkVersionStakeTx base reward into a governance pool share
	// and a service-node winner share; the remainder (after integer
	// division) goes to the miner so the three shares always sum back
	// to the base reward exactly.
	GovernanceRewardDivisor  = 20 // governance pool receives base/20 (5%)
	ServiceNodeRewardDivisor = 2  // service-node winner receives base/2 (50%)
)

// Checkpoint constants.
const (
	// CheckpointInterval is the spacing, in blocks, at which advisory
	// checkpoints are recorded automatically by a synced node.
	CheckpointInterval = 500
)
