package servicenode

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// SelectQuorum deterministically picks size eligible nodes from the
// registry to co-sign the Pulse round following blockHash, for handing to
// consensus.NewPulse. Eligible nodes are sorted canonically (stake
// descending, then public key ascending, mirroring PoA's sortValidators
// tie-break) and then rotated by a window derived from blockHash -- the
// same "index = seed % N" idiom PoA's time-slot election uses
// (validators[timestamp/blockTime%N]), generalized from a timestamp seed
// to a block-hash seed since Pulse rounds aren't tied to a fixed slot
// clock. A node requesting unlock remains eligible until it actually
// clears IsNodeRemovable, matching the registry's own removal timing.
func SelectQuorum(reg *Registry, blockHash types.Hash, size int) [][]byte {
	nodes := eligibleNodes(reg)
	if len(nodes) == 0 || size <= 0 {
		return nil
	}
	if size > len(nodes) {
		size = len(nodes)
	}

	seed := binary.BigEndian.Uint64(blockHash[:8])
	start := int(seed % uint64(len(nodes)))

	quorum := make([][]byte, size)
	for i := 0; i < size; i++ {
		quorum[i] = nodes[(start+i)%len(nodes)].PubKey
	}
	return quorum
}

func eligibleNodes(reg *Registry) []*Node {
	all := reg.List()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Stake != all[j].Stake {
			return all[i].Stake > all[j].Stake
		}
		return bytes.Compare(all[i].PubKey, all[j].PubKey) < 0
	})
	return all
}
