package names

import (
	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/pkg/tx"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// RegisterHooks subscribes store to the chain's hook bus so name
// registrations and renewals (ScriptTypeNameReg) are applied as blocks are
// added, the same single-subscriber-scans-the-block wiring style
// servicenode.RegisterHooks uses.
func RegisterHooks(hooks *chain.Hooks, store *Store, registrationBlocks uint64) {
	hooks.Register(chain.HookBlockAdd, func(event any) error {
		be, ok := event.(chain.BlockEvent)
		if !ok || be.Block == nil {
			return nil
		}
		for _, t := range be.Block.Transactions {
			if t == nil {
				continue
			}
			for _, out := range t.Outputs {
				if out.Script.Type != types.ScriptTypeNameReg {
					continue
				}
				applyRegistration(store, t.Hash(), out, be.Height, registrationBlocks)
			}
		}
		return nil
	})
}

func applyRegistration(store *Store, txHash types.Hash, out tx.Output, height, registrationBlocks uint64) {
	data, err := ParseRegistrationData(out.Script.Data)
	if err != nil {
		return
	}

	expiry := height + registrationBlocks
	if data.Renewal {
		if err := store.Renew(HashName(data.Name), expiry); err == nil {
			return
		}
		// No existing record to renew; fall through and register fresh.
	}

	owner, _ := types.ParseAddress(data.Owner)
	_ = store.Register(&Record{
		Name:         data.Name,
		Owner:        owner,
		RegisteredAt: height,
		ExpiresAt:    expiry,
		RegisterTx:   txHash,
		Value:        data.Value,
	})
}
