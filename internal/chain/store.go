package chain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/config"
	"github.com/Klingon-tech/klingnet-chain/internal/consensus"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Key prefixes and state keys for the block store.
var (
	prefixBlock  = []byte("b/") // b/<hash(32)> -> block JSON
	prefixHeight = []byte("h/") // h/<height(8)> -> hash(32)
	prefixTx     = []byte("x/") // x/<txhash(32)> -> height(8) + blockHash(32)
	prefixUndo   = []byte("d/") // d/<hash(32)> -> undo data JSON
	prefixWeight = []byte("w/") // w/<height(8)> -> weight(8) + longTermWeight(8)
	keyTipHash          = []byte("s/tip")
	keyHeight           = []byte("s/height")
	keySupply           = []byte("s/supply")
	keyCumDifficulty    = []byte("s/cumdiff")
	keyReorgCheckpoint  = []byte("s/reorg")
	keyPruningSeed      = []byte("s/pruneseed")
)

// Pruning mirrors the original's stripe-based scheme (spec §4.1): blocks are
// split into 2^pruningLogStripes interleaved stripes by height, a node keeps
// one stripe plus the last pruningTipBlocks unconditionally, and discards
// transaction bodies (not headers) for every other stored block.
const (
	pruningLogStripes = 3
	pruningStripes    = 1 << pruningLogStripes
	pruningTipBlocks  = 5500
)

// MakePruningSeed packs a stripe index (1..pruningStripes) and a log2 stripe
// count into a single seed value a peer can advertise and match against.
func MakePruningSeed(stripe, logStripes uint32) uint32 {
	if stripe == 0 {
		return 0
	}
	if logStripes == 0 {
		logStripes = pruningLogStripes
	}
	return stripe | (logStripes << 7)
}

func seedStripe(seed uint32) uint32     { return seed & 0x7f }
func seedLogStripes(seed uint32) uint32 { return seed >> 7 }

// pruningStripeFor returns which stripe (1..stripes) height belongs to given
// the chain's current tip height, or 0 if height falls inside the
// unprunable tip window and must always be kept in full.
func pruningStripeFor(height, tipHeight uint64, logStripes uint32) uint32 {
	if logStripes == 0 {
		logStripes = pruningLogStripes
	}
	if height+pruningTipBlocks >= tipHeight {
		return 0
	}
	stripes := uint64(1) << logStripes
	return uint32(height%stripes) + 1
}

// BlockStore persists blocks and chain metadata to a storage.DB.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// StoreBlock stores a block by its hash only, without updating height or tx
// indexes. Use this for blocks that are not (yet) on the active chain.
func (bs *BlockStore) StoreBlock(blk *block.Block) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}
	hash := blk.Hash()
	if err := bs.db.Put(blockKey(hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	return nil
}

// PutBlock stores a block and indexes it by hash, height, and tx hashes.
func (bs *BlockStore) PutBlock(blk *block.Block) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}

	hash := blk.Hash()
	if err := bs.db.Put(blockKey(hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}

	if err := bs.db.Put(heightKey(blk.Header.Height), hash[:]); err != nil {
		return fmt.Errorf("height index put: %w", err)
	}

	// Index each transaction by hash → (height, blockHash).
	for _, t := range blk.Transactions {
		txHash := t.Hash()
		val := make([]byte, 8+types.HashSize)
		binary.BigEndian.PutUint64(val[:8], blk.Header.Height)
		copy(val[8:], hash[:])
		if err := bs.db.Put(txKey(txHash), val); err != nil {
			return fmt.Errorf("tx index put %s: %w", txHash, err)
		}
	}

	return nil
}

// GetBlock retrieves a block by its hash.
func (bs *BlockStore) GetBlock(hash types.Hash) (*block.Block, error) {
	data, err := bs.db.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("block get: %w", err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("block unmarshal: %w", err)
	}
	return &blk, nil
}

// GetBlockByHeight retrieves a block by its height.
func (bs *BlockStore) GetBlockByHeight(height uint64) (*block.Block, error) {
	hashBytes, err := bs.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("height index get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("corrupt height index: got %d bytes, want %d", len(hashBytes), types.HashSize)
	}
	var hash types.Hash
	copy(hash[:], hashBytes)
	return bs.GetBlock(hash)
}

// HasBlock checks if a block exists by hash.
func (bs *BlockStore) HasBlock(hash types.Hash) (bool, error) {
	return bs.db.Has(blockKey(hash))
}

// SetTip stores the current chain tip hash, height, and supply.
func (bs *BlockStore) SetTip(hash types.Hash, height, supply uint64) error {
	if err := bs.db.Put(keyTipHash, hash[:]); err != nil {
		return fmt.Errorf("set tip hash: %w", err)
	}
	var heightBuf, supplyBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], height)
	if err := bs.db.Put(keyHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("set tip height: %w", err)
	}
	binary.BigEndian.PutUint64(supplyBuf[:], supply)
	if err := bs.db.Put(keySupply, supplyBuf[:]); err != nil {
		return fmt.Errorf("set supply: %w", err)
	}
	return nil
}

// GetTip returns the current chain tip hash, height, and supply.
// Returns zero values if no tip is set (fresh chain).
func (bs *BlockStore) GetTip() (types.Hash, uint64, uint64, error) {
	hashBytes, err := bs.db.Get(keyTipHash)
	if err != nil {
		return types.Hash{}, 0, 0, nil // No tip yet.
	}
	if len(hashBytes) != types.HashSize {
		return types.Hash{}, 0, 0, fmt.Errorf("corrupt tip hash: got %d bytes", len(hashBytes))
	}

	heightBytes, err := bs.db.Get(keyHeight)
	if err != nil {
		return types.Hash{}, 0, 0, fmt.Errorf("tip height missing: %w", err)
	}
	if len(heightBytes) != 8 {
		return types.Hash{}, 0, 0, fmt.Errorf("corrupt tip height: got %d bytes", len(heightBytes))
	}

	var supply uint64
	supplyBytes, err := bs.db.Get(keySupply)
	if err == nil && len(supplyBytes) == 8 {
		supply = binary.BigEndian.Uint64(supplyBytes)
	}
	// Missing supply key is OK for backwards compat with old DBs.

	var hash types.Hash
	copy(hash[:], hashBytes)
	height := binary.BigEndian.Uint64(heightBytes)
	return hash, height, supply, nil
}

// GetTxLocation returns the block height and hash that contain the given transaction.
func (bs *BlockStore) GetTxLocation(txHash types.Hash) (uint64, types.Hash, error) {
	data, err := bs.db.Get(txKey(txHash))
	if err != nil {
		return 0, types.Hash{}, fmt.Errorf("tx index get: %w", err)
	}
	if len(data) != 8+types.HashSize {
		return 0, types.Hash{}, fmt.Errorf("corrupt tx index: got %d bytes, want %d", len(data), 8+types.HashSize)
	}
	height := binary.BigEndian.Uint64(data[:8])
	var blockHash types.Hash
	copy(blockHash[:], data[8:])
	return height, blockHash, nil
}

// DeleteTxIndex removes the transaction index entry for the given hash.
func (bs *BlockStore) DeleteTxIndex(txHash types.Hash) error {
	return bs.db.Delete(txKey(txHash))
}

func blockKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}

func txKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixTx)+types.HashSize)
	copy(key, prefixTx)
	copy(key[len(prefixTx):], hash[:])
	return key
}

func undoKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixUndo)+types.HashSize)
	copy(key, prefixUndo)
	copy(key[len(prefixUndo):], hash[:])
	return key
}

func weightKey(height uint64) []byte {
	key := make([]byte, len(prefixWeight)+8)
	copy(key, prefixWeight)
	binary.BigEndian.PutUint64(key[len(prefixWeight):], height)
	return key
}

// PutUndo stores undo data for a block (used for reorgs).
func (bs *BlockStore) PutUndo(hash types.Hash, data []byte) error {
	if err := bs.db.Put(undoKey(hash), data); err != nil {
		return fmt.Errorf("put undo: %w", err)
	}
	return nil
}

// GetUndo retrieves undo data for a block.
func (bs *BlockStore) GetUndo(hash types.Hash) ([]byte, error) {
	data, err := bs.db.Get(undoKey(hash))
	if err != nil {
		return nil, fmt.Errorf("get undo: %w", err)
	}
	return data, nil
}

// DeleteUndo removes undo data for a block.
func (bs *BlockStore) DeleteUndo(hash types.Hash) error {
	return bs.db.Delete(undoKey(hash))
}

// CommitBlock atomically persists a validated block together with its undo
// data and the resulting chain state (supply, cumulative difficulty): the
// block/height/tx indexes, the undo blob, and the two state counters all
// land in a single underlying batch, so a crash mid-write can never leave
// the block indexed without its undo data (or vice versa). Used by reorg
// replay, where each replayed block must be all-or-nothing.
func (bs *BlockStore) CommitBlock(blk *block.Block, undoData []byte, supply, cumDiff uint64) error {
	batch := bs.db.NewBatch()

	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}
	hash := blk.Hash()
	if err := batch.Put(blockKey(hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := batch.Put(heightKey(blk.Header.Height), hash[:]); err != nil {
		return fmt.Errorf("height index put: %w", err)
	}
	for _, t := range blk.Transactions {
		txHash := t.Hash()
		val := make([]byte, 8+types.HashSize)
		binary.BigEndian.PutUint64(val[:8], blk.Header.Height)
		copy(val[8:], hash[:])
		if err := batch.Put(txKey(txHash), val); err != nil {
			return fmt.Errorf("tx index put %s: %w", txHash, err)
		}
	}
	if err := batch.Put(undoKey(hash), undoData); err != nil {
		return fmt.Errorf("undo put: %w", err)
	}

	// Record this block's raw weight (serialized size, the same blob-size
	// proxy the original uses) and its long-term-clamped weight, so later
	// GetBlockWeights/GetLongTermBlockWeights callers don't need to
	// re-deserialize every block in the window just to size it.
	rawWeight := uint64(len(data))
	prevLongTerm, err := bs.GetLongTermBlockWeights(blk.Header.Height, config.WeightLongWindow)
	if err != nil {
		return fmt.Errorf("read long-term weight window: %w", err)
	}
	ltWeight := consensus.LongTermEffectiveWeight(blk.Header.FeatureVersion, rawWeight, consensus.LongTermMedianWeight(prevLongTerm))
	weightVal := make([]byte, 16)
	binary.BigEndian.PutUint64(weightVal[:8], rawWeight)
	binary.BigEndian.PutUint64(weightVal[8:], ltWeight)
	if err := batch.Put(weightKey(blk.Header.Height), weightVal); err != nil {
		return fmt.Errorf("weight index put: %w", err)
	}

	var heightBuf, supplyBuf, cumDiffBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], blk.Header.Height)
	binary.BigEndian.PutUint64(supplyBuf[:], supply)
	binary.BigEndian.PutUint64(cumDiffBuf[:], cumDiff)
	if err := batch.Put(keyTipHash, hash[:]); err != nil {
		return fmt.Errorf("tip hash put: %w", err)
	}
	if err := batch.Put(keyHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("tip height put: %w", err)
	}
	if err := batch.Put(keySupply, supplyBuf[:]); err != nil {
		return fmt.Errorf("supply put: %w", err)
	}
	if err := batch.Put(keyCumDifficulty, cumDiffBuf[:]); err != nil {
		return fmt.Errorf("cumulative difficulty put: %w", err)
	}

	return batch.Commit()
}

// SetCumulativeDifficulty persists the cumulative difficulty.
func (bs *BlockStore) SetCumulativeDifficulty(cumDiff uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], cumDiff)
	return bs.db.Put(keyCumDifficulty, buf[:])
}

// GetCumulativeDifficulty retrieves the cumulative difficulty (0 if unset).
func (bs *BlockStore) GetCumulativeDifficulty() uint64 {
	data, err := bs.db.Get(keyCumDifficulty)
	if err != nil || len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// PutReorgCheckpoint writes a marker indicating a reorg is in progress.
// If the node crashes during reorg, this marker triggers UTXO recovery on restart.
func (bs *BlockStore) PutReorgCheckpoint(forkHeight uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], forkHeight)
	return bs.db.Put(keyReorgCheckpoint, buf[:])
}

// GetReorgCheckpoint returns the fork height and true if a reorg checkpoint exists.
func (bs *BlockStore) GetReorgCheckpoint() (uint64, bool) {
	data, err := bs.db.Get(keyReorgCheckpoint)
	if err != nil || len(data) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(data), true
}

// DeleteReorgCheckpoint removes the reorg-in-progress marker.
func (bs *BlockStore) DeleteReorgCheckpoint() error {
	return bs.db.Delete(keyReorgCheckpoint)
}

// GetBlockWeights returns the raw weight of each block in the window
// [beforeHeight-count, beforeHeight-1] that has a recorded entry, oldest
// first. Missing entries (heights below genesis, or recorded before this
// index existed) are simply skipped rather than erroring, matching
// ShortMedianWeight/LongTermMedianWeight's tolerance of a short window.
func (bs *BlockStore) GetBlockWeights(beforeHeight uint64, count uint64) ([]uint64, error) {
	return bs.readWeightWindow(beforeHeight, count, false)
}

// GetLongTermBlockWeights is GetBlockWeights' long-term-clamped counterpart,
// feeding consensus.LongTermMedianWeight.
func (bs *BlockStore) GetLongTermBlockWeights(beforeHeight uint64, count uint64) ([]uint64, error) {
	return bs.readWeightWindow(beforeHeight, count, true)
}

func (bs *BlockStore) readWeightWindow(beforeHeight, count uint64, longTerm bool) ([]uint64, error) {
	if count == 0 || beforeHeight == 0 {
		return nil, nil
	}
	start := uint64(0)
	if beforeHeight > count {
		start = beforeHeight - count
	}
	weights := make([]uint64, 0, count)
	for h := start; h < beforeHeight; h++ {
		data, err := bs.db.Get(weightKey(h))
		if err != nil {
			continue
		}
		if len(data) != 16 {
			return nil, fmt.Errorf("corrupt weight entry at height %d: %d bytes", h, len(data))
		}
		if longTerm {
			weights = append(weights, binary.BigEndian.Uint64(data[8:]))
		} else {
			weights = append(weights, binary.BigEndian.Uint64(data[:8]))
		}
	}
	return weights, nil
}

// PruningSeed returns the stored pruning seed, or (0, false) if this node
// keeps full (unpruned) blocks.
func (bs *BlockStore) PruningSeed() (uint32, bool) {
	data, err := bs.db.Get(keyPruningSeed)
	if err != nil || len(data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data), true
}

// CheckPruned reports whether the block at height is expected to have had
// its transaction bodies discarded, given the stored seed and the chain's
// current tip height.
func (bs *BlockStore) CheckPruned(height, tipHeight uint64) bool {
	seed, ok := bs.PruningSeed()
	if !ok || seed == 0 {
		return false
	}
	stripe := pruningStripeFor(height, tipHeight, seedLogStripes(seed))
	return stripe != 0 && stripe != seedStripe(seed)
}

// Prune persists seed and discards transaction bodies (keeping headers, the
// height index, and the tx index intact) for every stored block whose
// stripe doesn't match it and that falls outside the tip retention window.
// Re-running Prune with a different seed only ever removes more data -- it
// never restores transactions a prior pass already discarded, since the
// full block is gone from the store once pruned.
func (bs *BlockStore) Prune(seed uint32, tipHeight uint64) error {
	seedBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(seedBuf, seed)
	if err := bs.db.Put(keyPruningSeed, seedBuf); err != nil {
		return fmt.Errorf("set pruning seed: %w", err)
	}

	// Collect the affected hashes with the scanning iterator closed before
	// writing any of them back, so a backend that can't nest a write inside
	// a read iterator (ForEach's badger implementation runs inside a
	// single read-only View) never has to.
	var toPrune []types.Hash
	err := bs.db.ForEach(prefixHeight, func(key, val []byte) error {
		if len(key) <= len(prefixHeight) {
			return nil
		}
		height := binary.BigEndian.Uint64(key[len(prefixHeight):])
		stripe := pruningStripeFor(height, tipHeight, seedLogStripes(seed))
		if stripe == 0 || stripe == seedStripe(seed) {
			return nil
		}
		var hash types.Hash
		copy(hash[:], val)
		toPrune = append(toPrune, hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan height index: %w", err)
	}

	for _, hash := range toPrune {
		blk, err := bs.GetBlock(hash)
		if err != nil || len(blk.Transactions) == 0 {
			continue
		}
		blk.Transactions = nil
		data, err := json.Marshal(blk)
		if err != nil {
			return fmt.Errorf("marshal pruned block %s: %w", hash, err)
		}
		if err := bs.db.Put(blockKey(hash), data); err != nil {
			return fmt.Errorf("put pruned block %s: %w", hash, err)
		}
	}
	return nil
}
