package chain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// BuildLocator produces a short-chain-history locator for sync (spec
// §4.6): the most recent 11 main-chain hashes at and below tip, then
// exponentially-spaced hashes stepping back by a doubling stride (2, 4,
// 8, ...), down to height 1, plus genesis. A pure function of
// BlockStore -- it reads the height index only, never touches mempool or
// network state -- so any caller (a future P2P sync handshake) can build
// one without coupling to Chain's mutex.
func BuildLocator(blocks *BlockStore, tipHeight uint64) ([]types.Hash, error) {
	var locator []types.Hash
	seen := make(map[uint64]bool)

	addHeight := func(h uint64) error {
		if seen[h] {
			return nil
		}
		seen[h] = true
		blk, err := blocks.GetBlockByHeight(h)
		if err != nil {
			return fmt.Errorf("get block at height %d: %w", h, err)
		}
		locator = append(locator, blk.Hash())
		return nil
	}

	// Most recent 11 hashes (or fewer on a short chain).
	height := tipHeight
	for i := 0; i < 11; i++ {
		if err := addHeight(height); err != nil {
			return nil, err
		}
		if height == 0 {
			return locator, nil
		}
		height--
	}

	// Exponentially-spaced hashes: step doubles each time (2, 4, 8, ...)
	// walking back toward height 1.
	step := uint64(2)
	for height > 0 {
		if height <= step {
			height = 0
		} else {
			height -= step
		}
		if height == 0 {
			break
		}
		if err := addHeight(height); err != nil {
			return nil, err
		}
		step *= 2
	}

	// Genesis always terminates the locator.
	if err := addHeight(0); err != nil {
		return nil, err
	}
	return locator, nil
}

// FindSupplement consumes a peer's locator (oldest-common-ancestor-first
// search, per spec §4.6's "Supplement finding"): it walks the locator in
// order, returns the first hash that is on our main chain, plus up to
// maxBlocks subsequent main-chain hashes starting right after it. If
// none of the locator's hashes are known to us, it falls back to
// genesis as the common ancestor. maxHeight clips the supplement to an
// unpruned height ceiling when the caller has pruned older blocks.
func FindSupplement(blocks *BlockStore, locator []types.Hash, maxBlocks int, maxHeight uint64) (common types.Hash, supplement []types.Hash, err error) {
	var commonHeight uint64
	found := false

	for _, hash := range locator {
		blk, err := blocks.GetBlock(hash)
		if err != nil {
			continue // Not a block we know about.
		}
		// Confirm it's actually on our main chain, not an orphaned alt block
		// that merely shares a hash we once stored.
		mainBlk, err := blocks.GetBlockByHeight(blk.Header.Height)
		if err != nil || mainBlk.Hash() != hash {
			continue
		}
		common = hash
		commonHeight = blk.Header.Height
		found = true
		break
	}

	if !found {
		genesis, err := blocks.GetBlockByHeight(0)
		if err != nil {
			return types.Hash{}, nil, fmt.Errorf("get genesis: %w", err)
		}
		common = genesis.Hash()
		commonHeight = 0
	}

	for h := commonHeight + 1; len(supplement) < maxBlocks; h++ {
		if maxHeight > 0 && h > maxHeight {
			break
		}
		blk, err := blocks.GetBlockByHeight(h)
		if err != nil {
			break // Reached our own tip.
		}
		supplement = append(supplement, blk.Hash())
	}

	return common, supplement, nil
}
