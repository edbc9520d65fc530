package consensus

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/config"
)

func TestBaseReward_PreCurveForkIsFlat(t *testing.T) {
	got := BaseReward(1000, 500_000, 1_000_000, config.ForkVersionLongTermWeight-1)
	if got != 1000 {
		t.Fatalf("BaseReward pre-curve = %d, want flat 1000", got)
	}
}

func TestBaseReward_DecaysTowardRemainder(t *testing.T) {
	flat := uint64(1 << 30)
	already := uint64(0)
	maxSupply := uint64(1) << 40

	r1 := BaseReward(flat, already, maxSupply, config.ForkVersionLongTermWeight)
	r2 := BaseReward(flat, already+(maxSupply/4), maxSupply, config.ForkVersionLongTermWeight)
	if r2 >= r1 {
		t.Fatalf("reward did not decay as supply issued: r1=%d r2=%d", r1, r2)
	}
}

func TestBaseReward_NeverExceedsFlatSubsidy(t *testing.T) {
	got := BaseReward(5, 0, 1<<40, config.ForkVersionLongTermWeight)
	if got > 5 {
		t.Fatalf("BaseReward = %d, must not exceed flat subsidy 5", got)
	}
}

func TestBaseReward_FloorsAtTailEmission(t *testing.T) {
	got := BaseReward(1<<40, 1<<40, 1<<40, config.ForkVersionLongTermWeight)
	if got != config.TailEmission {
		t.Fatalf("BaseReward at full supply = %d, want TailEmission %d", got, config.TailEmission)
	}
}

func TestSplitBlockReward_PreStakeForkAllToMiner(t *testing.T) {
	s := SplitBlockReward(1000, config.ForkVersionStakeTx-1)
	if s.Miner != 1000 || s.Governance != 0 || s.ServiceNode != 0 {
		t.Fatalf("pre-fork split = %+v, want all-miner", s)
	}
}

func TestSplitBlockReward_SumsToTotal(t *testing.T) {
	for _, total := range []uint64{0, 1, 999, 1_000_000, 7} {
		s := SplitBlockReward(total, config.ForkVersionStakeTx)
		if s.Total() != total {
			t.Fatalf("split(%d) = %+v, shares sum to %d", total, s, s.Total())
		}
	}
}

func TestL2RewardBand_WidensAroundPrev(t *testing.T) {
	min, max := L2RewardBand(1000)
	if min >= 1000 || max <= 1000 {
		t.Fatalf("band [%d,%d] does not bracket prev 1000", min, max)
	}
}

func TestL2RewardBand_ZeroPrevAllowsOnlyZero(t *testing.T) {
	min, max := L2RewardBand(0)
	if min != 0 || max != 0 {
		t.Fatalf("band for prev=0 = [%d,%d], want [0,0]", min, max)
	}
}

func TestValidateL2Reward_InBand(t *testing.T) {
	if err := ValidateL2Reward(1000, 1000); err != nil {
		t.Fatalf("unexpected error for unchanged reward: %v", err)
	}
}

func TestValidateL2Reward_OutOfBand(t *testing.T) {
	if err := ValidateL2Reward(10_000, 1000); err == nil {
		t.Fatal("expected error for reward far outside band")
	}
}

func TestConsensusL2Reward_UsesInitialBeforeWindowFills(t *testing.T) {
	got := ConsensusL2Reward([]uint64{100, 200}, 42)
	if got != 42 {
		t.Fatalf("ConsensusL2Reward with short window = %d, want initial 42", got)
	}
}

func TestConsensusL2Reward_MinimumOverFullWindow(t *testing.T) {
	window := make([]uint64, config.L2RewardConsensusBlocks)
	for i := range window {
		window[i] = uint64(100 + i*10)
	}
	window[3] = 5 // inject a minimum
	got := ConsensusL2Reward(window, 42)
	if got != 5 {
		t.Fatalf("ConsensusL2Reward = %d, want 5", got)
	}
}
