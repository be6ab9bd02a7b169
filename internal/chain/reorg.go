package chain

import (
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
)

// reorg replaces the canonical chain from the fork point forward with the
// ancestry of newTip, per §4.E's reorg protocol. newTipState is the
// poststate already computed by applying newTip atop its parent; it becomes
// the live state once the height-index rewrite commits.
//
// The algorithm walks newTip's ancestors, collecting every block not
// already canonical at its height into new_chain. The walk stops the
// moment it reaches a height whose existing canonical hash already matches
// the ancestor being examined — that ancestor is the common ancestor and
// needs no rewrite. From one past that height upward, every stored
// block/txindex entry is evicted and replaced with the new_chain entry (if
// any) until both sides run dry.
func (c *Chain) reorg(newTip *block.Block, newTipState *execution.State) error {
	newChain := make(map[uint64]*block.Block)

	cursor := newTip
	replaceFrom := cursor.Header.Number
	for {
		existingHash, ok, err := c.blocks.GetBlockHashByNumber(cursor.Header.Number)
		if err != nil {
			return err
		}
		if ok && existingHash == cursor.Hash() {
			replaceFrom = cursor.Header.Number + 1
			break
		}

		newChain[cursor.Header.Number] = cursor
		replaceFrom = cursor.Header.Number

		parent, err := c.blocks.GetParent(cursor)
		if err != nil {
			return fmt.Errorf("walk ancestor of %s during reorg: %w", cursor.Hash(), err)
		}
		if parent == nil {
			break // Reached genesis without finding a shared canonical ancestor.
		}
		cursor = parent
	}

	batch := c.blocks.NewBatch()
	for i := replaceFrom; ; i++ {
		oldHash, oldOk, err := c.blocks.GetBlockHashByNumber(i)
		if err != nil {
			return err
		}
		newBlk, newOk := newChain[i]
		if !oldOk && !newOk {
			break
		}

		if oldOk {
			if oldBlk, err := c.blocks.GetBlock(oldHash); err == nil {
				for _, transaction := range oldBlk.Transactions {
					if err := c.blocks.DeleteTxIndex(batch, transaction.Hash()); err != nil {
						return err
					}
				}
			}
			if err := c.blocks.DeleteHeightIndex(batch, i); err != nil {
				return err
			}
		}

		if newOk {
			if err := c.blocks.SetHeightIndex(batch, i, newBlk.Hash()); err != nil {
				return err
			}
			for idx, transaction := range newBlk.Transactions {
				if err := c.blocks.SetTxIndex(batch, transaction.Hash(), i, idx); err != nil {
					return err
				}
			}
		}
	}

	hash := newTip.Hash()
	if err := c.blocks.SetHead(batch, hash); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit reorg to %s: %w", hash, err)
	}

	c.headHash = hash
	c.state = newTipState
	c.pool.RemoveConfirmed(newTip.Transactions)
	return nil
}
