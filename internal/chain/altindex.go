package chain

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// BlockInfo is a lightweight summary of a known block's position in the
// chain, used to answer get_alternate_chains-style queries without
// loading full block bodies into the caller.
type BlockInfo struct {
	Hash                 types.Hash `json:"hash"`
	PrevHash             types.Hash `json:"prev_hash"`
	Height               uint64     `json:"height"`
	Difficulty           uint64     `json:"difficulty"`
	CumulativeDifficulty uint64     `json:"cumulative_difficulty"`
	MainChain            bool       `json:"main_chain"`
}

// AltChainIndex answers queries about known blocks that branch off the
// main chain: competing blocks processor.go's fork-detected path stores
// (via BlockStore.StoreBlock -- hash-only, no height/tx index) but that
// were never committed as the tip. It holds no state of its own beyond
// the BlockStore reference, a pure reader in the same spirit as
// locator.go's pure functions over BlockStore.
type AltChainIndex struct {
	blocks *BlockStore
}

// NewAltChainIndex creates an alt-chain index reader over blocks.
func NewAltChainIndex(blocks *BlockStore) *AltChainIndex {
	return &AltChainIndex{blocks: blocks}
}

// Branch walks backward from tipHash to its common ancestor with the
// main chain -- the first visited block whose PrevHash matches the main
// chain's block at height-1 -- returning BlockInfo entries tip-first.
// Grounded in reorg.go's collectBranch, generalized into a read-only
// query any caller can run without mutating chain state (RPC's
// get_alternate_chains, §6), with the same MaxReorgDepth guard against
// walking an unbounded or cyclic chain of stored blocks.
func (a *AltChainIndex) Branch(tipHash types.Hash) ([]BlockInfo, error) {
	var branch []BlockInfo
	hash := tipHash

	for {
		blk, err := a.blocks.GetBlock(hash)
		if err != nil {
			return nil, fmt.Errorf("load block %s: %w", hash, err)
		}

		branch = append(branch, BlockInfo{
			Hash:       blk.Hash(),
			PrevHash:   blk.Header.PrevHash,
			Height:     blk.Header.Height,
			Difficulty: blk.Header.Difficulty,
		})
		if len(branch) > MaxReorgDepth {
			return nil, fmt.Errorf("%w: branch exceeds %d blocks", ErrReorgTooDeep, MaxReorgDepth)
		}

		if blk.Header.Height == 0 {
			break
		}
		parentHeight := blk.Header.Height - 1
		mainBlock, err := a.blocks.GetBlockByHeight(parentHeight)
		if err == nil && mainBlock.Hash() == blk.Header.PrevHash {
			branch = append(branch, BlockInfo{
				Hash:       mainBlock.Hash(),
				PrevHash:   mainBlock.Header.PrevHash,
				Height:     mainBlock.Header.Height,
				Difficulty: mainBlock.Header.Difficulty,
				MainChain:  true,
			})
			break
		}
		hash = blk.Header.PrevHash
	}

	// Accumulate cumulative difficulty outward from the ancestor (last
	// entry in the tip-first slice) toward the tip (first entry).
	var running uint64
	for i := len(branch) - 1; i >= 0; i-- {
		running += branch[i].Difficulty
		branch[i].CumulativeDifficulty = running
	}
	return branch, nil
}

// KnownAltTips scans every stored block and returns the hashes of those
// with no stored child -- the tip of each known alternate branch. A
// block counts as a main-chain block (and is excluded) when the height
// index resolves it by height; everything else reachable only through
// BlockStore.GetBlock is an alt-chain candidate.
func (a *AltChainIndex) KnownAltTips() ([]types.Hash, error) {
	hasChild := make(map[types.Hash]bool)
	var altHashes []types.Hash

	err := a.blocks.db.ForEach(prefixBlock, func(key, value []byte) error {
		var blk block.Block
		if err := json.Unmarshal(value, &blk); err != nil {
			return nil // Skip corrupt entries.
		}
		hash := blk.Hash()

		mainBlk, err := a.blocks.GetBlockByHeight(blk.Header.Height)
		if err == nil && mainBlk.Hash() == hash {
			return nil // On the main chain, not an alt tip candidate.
		}

		altHashes = append(altHashes, hash)
		hasChild[blk.Header.PrevHash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan blocks: %w", err)
	}

	var tips []types.Hash
	for _, hash := range altHashes {
		if !hasChild[hash] {
			tips = append(tips, hash)
		}
	}
	return tips, nil
}
