package chain

import (
	"errors"
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// uncleAncestorDepth bounds how far back make_head_candidate looks for
// uncle candidates: children of each of the last 6 ancestor headers,
// depth 1 through 5 relative to the new block's parent (§4.H step 5).
const uncleAncestorDepth = 5

// skippableApplyErrors is the taxonomy of transaction-apply failures the
// candidate builder treats as "skip, try the next one" rather than as a
// structural fault (§4.H step 4).
var skippableApplyErrors = []error{
	execution.ErrInsufficientBalance,
	execution.ErrBlockGasLimitReached,
	execution.ErrInsufficientStartGas,
	execution.ErrInvalidNonce,
	execution.ErrUnsignedTransaction,
}

func isSkippableApplyError(err error) bool {
	for _, sentinel := range skippableApplyErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// MakeHeadCandidate assembles a mineable block atop the current head (or
// atop parent, if given): packs pool transactions highest-gasprice-first
// under the new block's gas limit, selects eligible uncles, and runs
// finalize. The returned block is unsealed — its nonce is the zero value,
// left for a miner to fill in.
func (c *Chain) MakeHeadCandidate(parent *block.Block, coinbase types.Address, timestamp uint64) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var state *execution.State
	var err error
	if parent == nil {
		parent, err = c.blocks.GetBlock(c.headHash)
		if err != nil {
			return nil, fmt.Errorf("load head: %w", err)
		}
		state = c.state.Clone()
	} else {
		state, err = c.blocks.MkPoststateOfBlockHash(c.backend, parent.Hash())
		if err != nil {
			return nil, fmt.Errorf("rebuild poststate at parent %s: %w", parent.Hash(), err)
		}
	}

	prevHeader := parent.Header.ToPrevHeader()
	header := &block.Header{
		Number:     parent.Header.Number + 1,
		PrevHash:   parent.Hash(),
		Timestamp:  timestamp,
		Difficulty: c.backend.CalcDifficulty(&prevHeader, timestamp),
		GasLimit:   c.backend.CalcGasLimit(&prevHeader),
		Coinbase:   coinbase,
	}

	blk := block.NewBlock(header, nil, nil)
	if err := c.backend.Initialize(state, header); err != nil {
		return nil, fmt.Errorf("initialize candidate state: %w", err)
	}

	receipts, err := c.packTransactions(state, blk)
	if err != nil {
		return nil, err
	}

	uncles, err := c.selectUncles(parent)
	if err != nil {
		return nil, fmt.Errorf("select uncles: %w", err)
	}
	blk.Uncles = uncles
	header.UnclesHash = block.ComputeUnclesHash(uncles)

	if err := c.backend.Finalize(state, blk); err != nil {
		return nil, fmt.Errorf("finalize candidate: %w", err)
	}

	header.ReceiptsRoot = c.backend.MkReceiptSHA(receipts)
	header.TxListRoot = c.backend.MkTransactionSHA(blk.Transactions)

	stateRoot, err := c.backend.Commit(state)
	if err != nil {
		return nil, fmt.Errorf("commit candidate state: %w", err)
	}
	header.StateRoot = stateRoot
	header.GasUsed = state.GasUsed
	header.Bloom = state.Bloom

	return blk, nil
}

// packTransactions repeatedly pulls the best eligible pending transaction
// and applies it, skipping any that fail with a taxonomized apply error.
// Every attempted hash (success or skip) is marked excluded so the loop
// always makes progress and terminates once the pool has nothing left
// that fits the remaining gas budget.
func (c *Chain) packTransactions(state *execution.State, blk *block.Block) ([]*execution.Receipt, error) {
	var receipts []*execution.Receipt
	excluded := make(map[types.Hash]bool)

	for {
		budget := blk.Header.GasLimit - state.GasUsed
		candidate := c.pool.GetCandidateTransaction(budget, excluded)
		if candidate == nil {
			break
		}
		hash := candidate.Hash()
		excluded[hash] = true

		receipt, err := c.backend.ApplyTransaction(state, candidate)
		if err != nil {
			if isSkippableApplyError(err) {
				continue
			}
			return nil, fmt.Errorf("apply candidate transaction %s: %w", hash, err)
		}

		blk.Transactions = append(blk.Transactions, candidate)
		receipts = append(receipts, receipt)
		state.Bloom.Or(receipt.Bloom)
	}

	return receipts, nil
}

// selectUncles enumerates children of each of parent's last 6 ancestors
// (depth 1..uncleAncestorDepth, excluding the direct parent line itself),
// admitting up to MaxUnclesPerBlock whose hash is not already an ancestor
// and has not already been cited as an uncle by parent or any of those
// last 6 ancestors (§4.H step 5 — "any of the last 6 blocks" includes
// parent itself).
func (c *Chain) selectUncles(parent *block.Block) ([]*block.Header, error) {
	ancestors, err := c.recentAncestors(parent, execution.RecentUncleWindow)
	if err != nil {
		return nil, err
	}

	onChain := make(map[types.Hash]bool, len(ancestors)+1)
	onChain[parent.Hash()] = true
	for _, a := range ancestors {
		onChain[a.Hash()] = true
	}

	ineligible := make(map[types.Hash]bool)
	for _, u := range parent.Uncles {
		ineligible[u.Hash()] = true
	}
	for _, a := range ancestors {
		for _, u := range a.Uncles {
			ineligible[u.Hash()] = true
		}
	}

	var uncles []*block.Header
	depth := 0
	for _, a := range ancestors {
		depth++
		if depth > uncleAncestorDepth {
			break
		}
		children, err := c.blocks.GetChildren(RefBlock(a))
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			hash := child.Hash()
			if onChain[hash] || ineligible[hash] {
				continue
			}
			uncles = append(uncles, child.Header)
			ineligible[hash] = true
			if len(uncles) >= block.MaxUnclesPerBlock {
				return uncles, nil
			}
		}
	}
	return uncles, nil
}

// recentAncestors walks up to depth ancestors of blk (not including blk
// itself), stopping at genesis.
func (c *Chain) recentAncestors(blk *block.Block, depth int) ([]*block.Block, error) {
	out := make([]*block.Block, 0, depth)
	cursor := blk
	for i := 0; i < depth; i++ {
		parent, err := c.blocks.GetParent(cursor)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		out = append(out, parent)
		cursor = parent
	}
	return out, nil
}
