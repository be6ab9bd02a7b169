package chain

import (
	"sort"

	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// arrivalQueues holds the deferred-arrival state of §4.F. Both are
// in-memory only and rebuilt empty on restart.
type arrivalQueues struct {
	timeQueue   []*block.Block                 // Ascending by timestamp.
	parentQueue map[types.Hash][]*block.Block   // Missing-parent hash -> waiting children.
}

func newArrivalQueues() *arrivalQueues {
	return &arrivalQueues{parentQueue: make(map[types.Hash][]*block.Block)}
}

// enqueueFuture inserts blk into timeQueue keeping ascending-timestamp order.
func (q *arrivalQueues) enqueueFuture(blk *block.Block) {
	idx := sort.Search(len(q.timeQueue), func(i int) bool {
		return q.timeQueue[i].Header.Timestamp >= blk.Header.Timestamp
	})
	q.timeQueue = append(q.timeQueue, nil)
	copy(q.timeQueue[idx+1:], q.timeQueue[idx:])
	q.timeQueue[idx] = blk
}

// enqueueOrphan appends blk to the bucket waiting on its (currently
// unknown) parent.
func (q *arrivalQueues) enqueueOrphan(blk *block.Block) {
	parent := blk.Header.PrevHash
	q.parentQueue[parent] = append(q.parentQueue[parent], blk)
}

// drainTimeQueue pops every entry with timestamp <= now, in ascending
// order, leaving later entries in place.
func (q *arrivalQueues) drainTimeQueue(now uint64) []*block.Block {
	cut := sort.Search(len(q.timeQueue), func(i int) bool {
		return q.timeQueue[i].Header.Timestamp > now
	})
	if cut == 0 {
		return nil
	}
	ready := q.timeQueue[:cut]
	q.timeQueue = q.timeQueue[cut:]
	return ready
}

// ProcessTimeQueue pops every future-dated block whose timestamp has come
// due and re-submits it through AddBlock (§4.E "queues drain").
func (c *Chain) ProcessTimeQueue(now uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, blk := range c.queues.drainTimeQueue(now) {
		if _, err := c.addBlockLocked(blk, now); err != nil {
			return err
		}
	}
	return nil
}

// ProcessParentQueue re-ingests every block whose missing parent has since
// appeared in the store. Per §9's explicit resolution of the source's
// iterate-and-mutate ambiguity: this snapshots the set of parent hashes
// whose parent is now known before mutating the map, instead of ranging
// over c.queues.parentQueue while deleting from it.
func (c *Chain) ProcessParentQueue(now uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make([]types.Hash, 0)
	for parentHash := range c.queues.parentQueue {
		known, err := c.blocks.HasBlock(parentHash)
		if err != nil {
			return err
		}
		if known {
			resolved = append(resolved, parentHash)
		}
	}

	for _, parentHash := range resolved {
		waiting := c.queues.parentQueue[parentHash]
		delete(c.queues.parentQueue, parentHash)
		for _, blk := range waiting {
			if _, err := c.addBlockLocked(blk, now); err != nil {
				return err
			}
		}
	}
	return nil
}
