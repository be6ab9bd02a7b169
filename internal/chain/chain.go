// Package chain implements the blockchain state machine: a content-addressed
// block store, fork-choice by cumulative difficulty, poststate reconstruction,
// reorg, arrival queues, and candidate assembly.
package chain

import (
	"fmt"
	"sync"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/internal/log"
	"github.com/ethcore-labs/ethcore-chain/internal/mempool"
	"github.com/ethcore-labs/ethcore-chain/internal/storage"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
	"github.com/rs/zerolog"
)

// Chain owns the live poststate, the block store, and the in-memory arrival
// queues and transaction pool. Every public operation runs to completion
// before the next begins (§5): callers serialize access externally, but mu
// guards against accidental concurrent entry.
type Chain struct {
	mu sync.Mutex

	blocks  *BlockStore
	backend execution.Backend
	pool    *mempool.Pool
	queues  *arrivalQueues

	state         *execution.State // Poststate of headHash.
	headHash      types.Hash
	genesisHash   types.Hash
	genesisNumber uint64

	log zerolog.Logger
}

// New wires a chain atop db and backend. It does not establish genesis —
// call InitGenesis or resume from an existing head_hash via Resume.
func New(db storage.DB, backend execution.Backend, pool *mempool.Pool) (*Chain, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("execution backend is nil")
	}
	if pool == nil {
		pool = mempool.New(0, 0)
	}

	return &Chain{
		blocks: NewBlockStore(db),
		backend: backend,
		pool:    pool,
		queues:  newArrivalQueues(),
		log:     log.Chain,
	}, nil
}

// Resume loads the live state from a previously stored head_hash (genesis
// input mode (a), §6). Returns an error if no head has ever been set —
// configuration error at construction, fatal per §7.4.
func (c *Chain) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, ok, err := c.blocks.GetHead()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stored head_hash and no genesis provided")
	}

	genesisNumber, ok, err := c.blocks.GetGenesisNumber()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stored GENESIS_NUMBER")
	}
	genesisHash, ok, err := c.blocks.GetBlockHashByNumber(genesisNumber)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("genesis height %d has no canonical block", genesisNumber)
	}

	state, err := c.blocks.MkPoststateOfBlockHash(c.backend, head)
	if err != nil {
		return fmt.Errorf("rebuild poststate at resumed head %s: %w", head, err)
	}

	c.headHash = head
	c.genesisHash = genesisHash
	c.genesisNumber = genesisNumber
	c.state = state
	return nil
}

// Head returns the current canonical tip hash.
func (c *Chain) Head() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headHash
}

// HasBlock reports whether a block is known, canonical or not.
func (c *Chain) HasBlock(hash types.Hash) (bool, error) {
	return c.blocks.HasBlock(hash)
}

// GetBlock retrieves a block by its hash.
func (c *Chain) GetBlock(hash types.Hash) (*block.Block, error) {
	return c.blocks.GetBlock(hash)
}

// GetBlockByNumber retrieves the canonical block at a height.
func (c *Chain) GetBlockByNumber(number uint64) (*block.Block, error) {
	return c.blocks.GetBlockByNumber(number)
}

// GetChain returns every stored canonical block in [from, to), resolving
// §9's ambiguity over the source's dropped final return: this always
// returns its accumulator, including a partial one if to extends past the
// current head.
func (c *Chain) GetChain(from, to uint64) ([]*block.Block, error) {
	if to < from {
		return nil, fmt.Errorf("GetChain: to %d before from %d", to, from)
	}
	out := make([]*block.Block, 0, to-from)
	for n := from; n < to; n++ {
		hash, ok, err := c.blocks.GetBlockHashByNumber(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		blk, err := c.blocks.GetBlock(hash)
		if err != nil {
			return nil, err
		}
		out = append(out, blk)
	}
	return out, nil
}

// GetTransaction looks up a canonical transaction by hash via txindex.
func (c *Chain) GetTransaction(hash types.Hash) (*tx.Transaction, error) {
	loc, ok, err := c.blocks.GetTxIndex(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tx %s not indexed", hash)
	}
	blk, err := c.blocks.GetBlockByNumber(loc.Number)
	if err != nil {
		return nil, fmt.Errorf("load block for tx %s: %w", hash, err)
	}
	if int(loc.Index) >= len(blk.Transactions) {
		return nil, fmt.Errorf("txindex for %s out of range in block %d", hash, loc.Number)
	}
	return blk.Transactions[loc.Index], nil
}

// AddTransaction validates and queues a transaction for future candidate
// assembly. Rejection is a silent pool-side drop (§7.5), not an error the
// caller must handle as a fault — callers that care can still inspect it.
func (c *Chain) AddTransaction(transaction *tx.Transaction) error {
	return c.pool.Add(transaction)
}
