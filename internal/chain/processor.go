package chain

import (
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
)

// AddBlock is the chain's single ingestion entrypoint (§4.E). now is the
// caller's notion of current time, threaded in rather than read from the
// clock so queue-draining callers (ProcessTimeQueue) can replay a fixed
// instant.
func (c *Chain) AddBlock(blk *block.Block, now uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlockLocked(blk, now)
}

// addBlockLocked implements the entry decision tree. Callers must hold c.mu.
func (c *Chain) addBlockLocked(blk *block.Block, now uint64) (bool, error) {
	if blk.Header.Timestamp > now {
		c.queues.enqueueFuture(blk)
		return false, nil
	}

	if blk.Header.PrevHash == c.headHash {
		return c.applyToHead(blk)
	}

	hasParent, err := c.blocks.HasBlock(blk.Header.PrevHash)
	if err != nil {
		return false, err
	}
	if hasParent {
		return c.applySideBranch(blk)
	}

	c.queues.enqueueOrphan(blk)
	return false, nil
}

// applyToHead applies blk directly atop the live state (entry case 2). An
// execution failure is reported as add_block -> false with no persistent
// mutation (§7.1); it is never propagated as a Go error, since it is not a
// structural fault.
func (c *Chain) applyToHead(blk *block.Block) (bool, error) {
	speculative := c.state.Clone()
	if err := c.backend.ApplyBlock(speculative, blk); err != nil {
		c.log.Debug().Err(err).Str("block", blk.Hash().String()).Msg("block rejected by execution layer")
		return false, nil
	}
	if err := c.commitAppliedBlock(blk, speculative); err != nil {
		return false, fmt.Errorf("commit block %s: %w", blk.Hash(), err)
	}
	return true, nil
}

// commitAppliedBlock stages and commits every write that must become durable
// together when a block extends the head (§4.E "on success path, always").
func (c *Chain) commitAppliedBlock(blk *block.Block, state *execution.State) error {
	hash := blk.Hash()
	batch := c.blocks.NewBatch()

	if err := c.blocks.StoreBlock(batch, blk); err != nil {
		return err
	}
	if err := c.blocks.AddChild(batch, blk.Header.PrevHash, hash); err != nil {
		return err
	}
	if err := c.blocks.SetHeightIndex(batch, blk.Header.Number, hash); err != nil {
		return err
	}
	if err := c.blocks.SetHead(batch, hash); err != nil {
		return err
	}
	for i, transaction := range blk.Transactions {
		if err := c.blocks.SetTxIndex(batch, transaction.Hash(), blk.Header.Number, i); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.headHash = hash
	c.state = state
	c.pool.RemoveConfirmed(blk.Transactions)
	return nil
}

// applySideBranch handles entry case 3: a block whose parent is known but
// isn't the current head. It rebuilds poststate at the parent and applies
// the block; once durably stored as an observed block it returns true
// regardless of whether its score beats the current head's — a reorg only
// additionally happens when it does. false is reserved for execution
// failure, where nothing is persisted.
func (c *Chain) applySideBranch(blk *block.Block) (bool, error) {
	parentState, err := c.blocks.MkPoststateOfBlockHash(c.backend, blk.Header.PrevHash)
	if err != nil {
		return false, fmt.Errorf("rebuild poststate at %s: %w", blk.Header.PrevHash, err)
	}
	if err := c.backend.ApplyBlock(parentState, blk); err != nil {
		c.log.Debug().Err(err).Str("block", blk.Hash().String()).Msg("side-branch block rejected by execution layer")
		return false, nil
	}

	hash := blk.Hash()
	batch := c.blocks.NewBatch()
	if err := c.blocks.StoreBlock(batch, blk); err != nil {
		return false, err
	}
	if err := c.blocks.AddChild(batch, blk.Header.PrevHash, hash); err != nil {
		return false, err
	}
	if err := batch.Commit(); err != nil {
		return false, fmt.Errorf("commit side-branch block %s: %w", hash, err)
	}
	c.pool.RemoveConfirmed(blk.Transactions)

	sideScore, err := c.blocks.GetScore(blk)
	if err != nil {
		return false, err
	}
	headBlk, err := c.blocks.GetBlock(c.headHash)
	if err != nil {
		return false, fmt.Errorf("load head %s: %w", c.headHash, err)
	}
	headScore, err := c.blocks.GetScore(headBlk)
	if err != nil {
		return false, err
	}

	if sideScore <= headScore {
		return true, nil
	}

	if err := c.reorg(blk, parentState); err != nil {
		return false, fmt.Errorf("reorg to %s: %w", hash, err)
	}
	return true, nil
}
