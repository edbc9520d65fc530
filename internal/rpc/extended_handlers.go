package rpc

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/internal/names"
	"github.com/Klingon-tech/klingnet-chain/internal/servicenode"
	"github.com/Klingon-tech/klingnet-chain/internal/utxo"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetBlocks(req *Request) (interface{}, *Error) {
	var params HeightRangeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.EndHeight < params.StartHeight {
		return nil, &Error{Code: CodeInvalidParams, Message: "end_height must be >= start_height"}
	}

	cc, rpcErr := s.resolveChain(params.ChainID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var results []*BlockResult
	for h := params.StartHeight; h <= params.EndHeight; h++ {
		blk, err := cc.chain.GetBlockByHeight(h)
		if err != nil {
			break // Stop at the current tip rather than erroring on a range past it.
		}
		results = append(results, NewBlockResult(blk))
	}
	return &BlocksResult{Blocks: results}, nil
}

func (s *Server) handleChainGetAlternateChains(req *Request) (interface{}, *Error) {
	var params ChainIDParam
	_ = parseParams(req, &params) // Params optional; defaults to root chain.

	cc, rpcErr := s.resolveChain(params.ChainID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	index := chain.NewAltChainIndex(cc.chain.BlockStore())
	tips, err := index.KnownAltTips()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("scan alt tips: %v", err)}
	}

	var result AlternateChainsResult
	for _, tip := range tips {
		branch, err := index.Branch(tip)
		if err != nil || len(branch) == 0 {
			continue
		}
		result.Chains = append(result.Chains, AlternateChainResult{
			TipHash:              branch[0].Hash.String(),
			Height:               branch[0].Height,
			Length:               len(branch),
			CumulativeDifficulty: branch[0].CumulativeDifficulty,
		})
	}
	return &result, nil
}

// ── UTXO endpoints ──────────────────────────────────────────────────────

func (s *Server) handleUTXOGetOutputHistogram(req *Request) (interface{}, *Error) {
	var params OutputHistogramParam
	_ = parseParams(req, &params)

	cc, rpcErr := s.resolveChain(params.ChainID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	counts := make(map[uint64]uint64)
	err := cc.utxos.ForEach(func(u *utxo.UTXO) error {
		counts[u.Value]++
		return nil
	})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("scan utxos: %v", err)}
	}

	var result OutputHistogramResult
	for amount, count := range counts {
		if count < params.MinCount {
			continue
		}
		result.Histogram = append(result.Histogram, OutputHistogramEntry{Amount: amount, TotalCount: count})
	}
	return &result, nil
}

func (s *Server) handleUTXOGetOutputDistribution(req *Request) (interface{}, *Error) {
	var params HeightRangeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.EndHeight < params.StartHeight {
		return nil, &Error{Code: CodeInvalidParams, Message: "end_height must be >= start_height"}
	}

	cc, rpcErr := s.resolveChain(params.ChainID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	span := params.EndHeight - params.StartHeight + 1
	dist := make([]uint64, span)
	err := cc.utxos.ForEach(func(u *utxo.UTXO) error {
		if u.Height < params.StartHeight || u.Height > params.EndHeight {
			return nil
		}
		dist[u.Height-params.StartHeight]++
		return nil
	})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("scan utxos: %v", err)}
	}

	return &OutputDistributionResult{StartHeight: params.StartHeight, Distribution: dist}, nil
}

func (s *Server) handleUTXOGetOuts(req *Request) (interface{}, *Error) {
	var params GetOutsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	cc, rpcErr := s.resolveChain("")
	if rpcErr != nil {
		return nil, rpcErr
	}

	currentHeight := cc.chain.Height()
	var result GetOutsResult
	for _, op := range params.Outpoints {
		txIDBytes, err := hex.DecodeString(op.TxID)
		if err != nil || len(txIDBytes) != types.HashSize {
			result.Outs = append(result.Outs, OutKeyResult{})
			continue
		}
		var txID types.Hash
		copy(txID[:], txIDBytes)
		outpoint := types.Outpoint{TxID: txID, Index: op.Index}

		u, err := cc.utxos.Get(outpoint)
		if err != nil {
			result.Outs = append(result.Outs, OutKeyResult{TxID: op.TxID, Index: op.Index})
			continue
		}
		result.Outs = append(result.Outs, OutKeyResult{
			TxID:          op.TxID,
			Index:         op.Index,
			Height:        u.Height,
			Amount:        u.Value,
			OneTimePubKey: hex.EncodeToString(u.OneTimePubKey),
			Commitment:    hex.EncodeToString(u.Commitment),
			Unlocked:      u.UnlockTime == 0 || u.UnlockTime <= currentHeight,
		})
	}
	return &result, nil
}

// ── Service-node endpoints ──────────────────────────────────────────────

func (s *Server) handleServiceNodeGetQuorumState(_ *Request) (interface{}, *Error) {
	if s.snRegistry == nil {
		return nil, &Error{Code: CodeNotFound, Message: "service nodes not enabled"}
	}

	size := s.snRules.QuorumSize
	quorum := servicenode.SelectQuorum(s.snRegistry, s.chain.TipHash(), size)

	hexQuorum := make([]string, len(quorum))
	for i, pk := range quorum {
		hexQuorum[i] = hex.EncodeToString(pk)
	}

	threshold := len(quorum)*2/3 + 1
	return &QuorumStateResult{
		Quorum:    hexQuorum,
		Threshold: threshold,
		NodeCount: s.snRegistry.Count(),
	}, nil
}

// ── Name-system endpoints ───────────────────────────────────────────────

func (s *Server) handleNamesGetOwners(req *Request) (interface{}, *Error) {
	if s.nameStore == nil {
		return nil, &Error{Code: CodeNotFound, Message: "name system not enabled"}
	}
	var params NamesToOwnersParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	height := s.chain.Height()
	var result NamesToOwnersResult
	for _, n := range params.Names {
		hash := names.HashName(n)
		rec, ok := s.nameStore.Lookup(hash)
		if !ok {
			result.Owners = append(result.Owners, NameOwnerEntry{Name: n, Found: false})
			continue
		}
		expired, _ := s.nameStore.IsExpired(hash, height)
		result.Owners = append(result.Owners, NameOwnerEntry{
			Name:      n,
			Owner:     rec.Owner.String(),
			ExpiresAt: rec.ExpiresAt,
			Found:     !expired,
		})
	}
	return &result, nil
}

// ── L2 endpoints ────────────────────────────────────────────────────────

func (s *Server) handleServiceNodeGetPendingRewards(req *Request) (interface{}, *Error) {
	if s.rewardLedger == nil {
		return nil, &Error{Code: CodeNotFound, Message: "service-node rewards not enabled"}
	}
	var params PendingRewardsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	return &PendingRewardsResult{Outstanding: s.rewardLedger.Outstanding(params.PubKey)}, nil
}

// ── Governance endpoints ────────────────────────────────────────────────

func (s *Server) handleGovernanceGetPoolBalance(_ *Request) (interface{}, *Error) {
	if s.governancePool == nil {
		return nil, &Error{Code: CodeNotFound, Message: "governance pool not enabled"}
	}
	return &GovernancePoolResult{Balance: s.governancePool.Balance()}, nil
}

func (s *Server) handleL2GetAnchoredReward(req *Request) (interface{}, *Error) {
	if s.l2Tracker == nil {
		return nil, &Error{Code: CodeNotFound, Message: "l2 tracker not enabled"}
	}
	var params HeightParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	value, ok := s.l2Tracker.L2RewardAt(params.Height)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no l2 anchor recorded at height %d", params.Height)}
	}
	return map[string]uint64{"l2_reward": value}, nil
}
