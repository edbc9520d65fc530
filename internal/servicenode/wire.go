package servicenode

import (
	"encoding/hex"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// RegisterHooks subscribes reg to the chain's hook bus so service-node
// registrations (ScriptTypeSNReg) and stake changes (ScriptTypeStake) are
// applied as blocks are added, generalizing the teacher's
// SetRegistrationHandler/SetStakeHandler single-callback wiring
// (internal/node/node.go) onto the newer, typed HookBus -- one subscriber
// scanning the whole block rather than a callback per script type.
func RegisterHooks(hooks *chain.Hooks, reg *Registry) {
	hooks.Register(chain.HookBlockAdd, func(event any) error {
		be, ok := event.(chain.BlockEvent)
		if !ok || be.Block == nil {
			return nil
		}
		for _, t := range be.Block.Transactions {
			if t == nil {
				continue
			}
			for i, out := range t.Outputs {
				switch out.Script.Type {
				case types.ScriptTypeSNReg:
					registerFromOutput(reg, t.Hash(), uint32(i), out, be.Height)
				case types.ScriptTypeStake:
					if len(out.Script.Data) == 33 {
						reg.SetStake(hex.EncodeToString(out.Script.Data), out.Value)
					}
				}
			}
		}
		return nil
	})
}

// RegisterRewardHooks subscribes reg/ledger to chain.HookRewardSplit so the
// service-node share of each block reward is credited to whichever
// registered node SelectQuorum picks first for that block -- the same
// rotating window quorum co-signing already uses, so the node that signs
// the Pulse round is the node that gets paid. A block whose quorum is
// empty (no registered nodes yet) carries no winner and its share is
// simply not accrued, rather than left stranded against a ledger key
// reward installments could never drain.
func RegisterRewardHooks(hooks *chain.Hooks, reg *Registry, ledger *RewardLedger, installments int) {
	hooks.Register(chain.HookRewardSplit, func(event any) error {
		re, ok := event.(chain.RewardSplitEvent)
		if !ok || re.Block == nil || re.Split.ServiceNode == 0 {
			return nil
		}
		quorum := SelectQuorum(reg, re.Block.Hash(), 1)
		if len(quorum) == 0 {
			return nil
		}
		winner, ok := reg.Get(hex.EncodeToString(quorum[0]))
		if !ok {
			return nil
		}
		ledger.Accrue(winner.Key(), winner.Operator, re.Split.ServiceNode, re.Height, installments)
		return nil
	})
}

func registerFromOutput(reg *Registry, txHash types.Hash, index uint32, out tx.Output, height uint64) {
	data, err := ParseRegistrationData(out.Script.Data)
	if err != nil {
		return
	}
	pubKey, err := hex.DecodeString(data.PubKey)
	if err != nil || len(pubKey) != 33 {
		return
	}
	// A malformed operator address just means payouts have nowhere to
	// land; registration itself (quorum eligibility) still proceeds.
	operator, _ := types.ParseAddress(data.Operator)

	_ = reg.Register(&Node{
		PubKey:         pubKey,
		RegisteredAt:   height,
		RegistrationTx: txHash,
		OutputIndex:    index,
		Operator:       operator,
		Stake:          out.Value,
	})
}
