package chain

import (
	"errors"
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// ErrDanglingParent is returned when poststate reconstruction walks off
// the end of the known chain before reaching genesis — a structural
// failure the caller must treat as store corruption (§7.2).
var ErrDanglingParent = errors.New("dangling non-genesis parent")

// MkPoststateOfBlockHash rebuilds execution state as it existed
// immediately after the block at h was applied (§4.D). If h names the
// genesis block, the genesis snapshot is returned directly. Otherwise a
// fresh state is built from the block's own header and walked back
// through its ancestors, populating prev_headers with up to
// execution.PrevHeaderWindow entries starting with the block's own header
// at index 0, and recording the first execution.RecentUncleWindow of
// those entries' uncle hashes into recent_uncles. If the walk reaches
// genesis before the window fills, prev_headers and recent_uncles are
// topped up from the stored genesis snapshot.
func (bs *BlockStore) MkPoststateOfBlockHash(backend execution.Backend, h types.Hash) (*execution.State, error) {
	isGenesis, err := bs.isGenesisHash(h)
	if err != nil {
		return nil, err
	}
	if isGenesis {
		snapshot, err := bs.GetGenesisState()
		if err != nil {
			return nil, fmt.Errorf("load genesis state: %w", err)
		}
		return execution.FromSnapshot(snapshot)
	}

	blk, err := bs.GetBlock(h)
	if err != nil {
		return nil, fmt.Errorf("load block %s for poststate: %w", h, err)
	}

	state := execution.NewState()
	state.StateRoot = blk.Header.StateRoot
	if err := backend.Initialize(state, blk.Header); err != nil {
		return nil, fmt.Errorf("initialize poststate at %s: %w", h, err)
	}
	state.GasUsed = blk.Header.GasUsed
	state.TxIndex = len(blk.Transactions)

	// blk's own header and uncles occupy slot 0 of the window before the
	// walk steps to ancestors, matching mk_poststate_of_blockhash's b =
	// block starting point.
	ancestor := blk
	count := 0
	for count < execution.PrevHeaderWindow {
		state.PrevHeaders = append(state.PrevHeaders, ancestor.Header.ToPrevHeader())
		if count < execution.RecentUncleWindow {
			uncleHashes := make([]types.Hash, 0, len(ancestor.Uncles))
			for _, u := range ancestor.Uncles {
				uncleHashes = append(uncleHashes, u.Hash())
			}
			state.RecentUncles[ancestor.Header.Number] = uncleHashes
		}
		count++
		if count >= execution.PrevHeaderWindow {
			break
		}

		parent, err := bs.GetParent(ancestor)
		if err != nil {
			return nil, fmt.Errorf("%w: loading parent of %s: %v", ErrDanglingParent, ancestor.Hash(), err)
		}
		if parent == nil {
			break // Reached genesis before the window filled.
		}
		ancestor = parent
	}

	if count < execution.PrevHeaderWindow {
		if err := bs.topUpFromGenesis(state, blk.Header.Number); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// isGenesisHash reports whether h is the hash of the configured genesis
// block, resolved via the height index rather than a stored sentinel
// value — equivalent to, and simpler than, special-casing a "GENESIS"
// marker at the block key itself.
func (bs *BlockStore) isGenesisHash(h types.Hash) (bool, error) {
	genesisNumber, ok, err := bs.GetGenesisNumber()
	if err != nil || !ok {
		return false, err
	}
	genesisHash, ok, err := bs.GetBlockHashByNumber(genesisNumber)
	if err != nil || !ok {
		return false, err
	}
	return h == genesisHash, nil
}

// topUpFromGenesis merges the stored genesis snapshot's prev_headers and
// the portion of its recent_uncles within execution.RecentUncleWindow
// heights of blockNumber into state, per §4.D step 4.
func (bs *BlockStore) topUpFromGenesis(state *execution.State, blockNumber uint64) error {
	snapshot, err := bs.GetGenesisState()
	if err != nil {
		return fmt.Errorf("top up poststate from genesis: %w", err)
	}
	genesisState, err := execution.FromSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("decode genesis state for top-up: %w", err)
	}

	state.PrevHeaders = append(state.PrevHeaders, genesisState.PrevHeaders...)
	for height, hashes := range genesisState.RecentUncles {
		if blockNumber >= height && blockNumber-height <= execution.RecentUncleWindow {
			state.RecentUncles[height] = hashes
		}
	}
	return nil
}
