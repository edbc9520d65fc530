package consensus

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

// Validator validates blocks against structural and header-level
// consensus rules. Reward-split and L2-band checks (spec §4.5/§4.5.a,
// see reward.go) are state-dependent -- they need the chain's current
// supply and its trailing block history -- so they live in the chain
// manager's validateBlockState alongside the rest of the UTXO-aware
// rules, not here.
type Validator struct {
	engine Engine
}

// NewValidator creates a block validator with the given consensus engine.
func NewValidator(engine Engine) *Validator {
	return &Validator{engine: engine}
}

// ValidateBlock checks a block against both structural and consensus rules.
func (v *Validator) ValidateBlock(blk *block.Block) error {
	// Structural validation.
	if err := blk.Validate(); err != nil {
		return fmt.Errorf("block structure: %w", err)
	}

	// Consensus-specific header verification.
	if err := v.engine.VerifyHeader(blk.Header); err != nil {
		return fmt.Errorf("consensus: %w", err)
	}

	return nil
}
