package chain

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/internal/consensus"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// buildETHBLSBlock builds a coinbase-only block at the chain's next height,
// tagged with the ETH_BLS fork version and the given l2Reward.
func buildETHBLSBlock(t *testing.T, ch *Chain, l2Reward uint64) *block.Block {
	t.Helper()

	coinbase := testCoinbaseTx()
	txs := []*tx.Transaction{coinbase}
	hashes := []types.Hash{coinbase.Hash()}
	merkle := block.ComputeMerkleRoot(hashes)

	state := ch.State()
	header := &block.Header{
		Version:        block.CurrentVersion,
		FeatureVersion: config.ForkVersionETHBLS,
		PrevHash:       state.TipHash,
		MerkleRoot:     merkle,
		Timestamp:      1700000001 + state.Height,
		Height:         state.Height + 1,
		L2Reward:       l2Reward,
	}
	blk := block.NewBlock(header, txs)

	poa := ch.engine.(*consensus.PoA)
	if err := poa.Seal(blk); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return blk
}

func TestValidateBlockState_L2RewardBand_FirstActivationBlockSkipsCheck(t *testing.T) {
	ch, _, _ := testChain(t)

	// Activation block: parent is pre-ETH_BLS (FeatureVersion 0), so no
	// band check applies regardless of the recorded l2_reward.
	blk := buildETHBLSBlock(t, ch, 1_000_000)
	if err := ch.ProcessBlock(blk); err != nil {
		t.Fatalf("activation block should bypass the band check: %v", err)
	}
}

func TestValidateBlockState_L2RewardBand_RejectsOutOfBand(t *testing.T) {
	ch, _, _ := testChain(t)

	first := buildETHBLSBlock(t, ch, 1000)
	if err := ch.ProcessBlock(first); err != nil {
		t.Fatalf("ProcessBlock(first): %v", err)
	}

	second := buildETHBLSBlock(t, ch, 1_000_000)
	err := ch.ProcessBlock(second)
	if err == nil {
		t.Fatal("expected error for l2_reward far outside the consensus band")
	}
}

func TestValidateBlockState_L2RewardBand_AcceptsInBand(t *testing.T) {
	ch, _, _ := testChain(t)

	first := buildETHBLSBlock(t, ch, 1000)
	if err := ch.ProcessBlock(first); err != nil {
		t.Fatalf("ProcessBlock(first): %v", err)
	}

	min, max := consensus.L2RewardBand(1000)
	second := buildETHBLSBlock(t, ch, (min+max)/2)
	if err := ch.ProcessBlock(second); err != nil {
		t.Fatalf("ProcessBlock(second) within band: %v", err)
	}
}

func TestChain_ConsensusL2Reward_BeforeActivation(t *testing.T) {
	ch, _, _ := testChain(t)

	got, err := ch.ConsensusL2Reward()
	if err != nil {
		t.Fatalf("ConsensusL2Reward: %v", err)
	}
	if got != config.InitialL2Reward {
		t.Fatalf("ConsensusL2Reward before activation = %d, want InitialL2Reward", got)
	}
}

func TestChain_BlockRewardSplit_DelegatesToConsensus(t *testing.T) {
	ch, _, _ := testChain(t)

	got := ch.BlockRewardSplit(1000, config.ForkVersionStakeTx)
	want := consensus.SplitBlockReward(1000, config.ForkVersionStakeTx)
	if got != want {
		t.Fatalf("BlockRewardSplit = %+v, want %+v", got, want)
	}
}
