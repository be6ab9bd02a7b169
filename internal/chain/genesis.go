package chain

import (
	"fmt"
	"sort"

	"github.com/ethcore-labs/ethcore-chain/config"
	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// InitGenesis establishes genesis from an allocation dictionary plus scalar
// header fields (§6 modes (c) and (e)). Zero-valued scalar fields are
// filled in with the literal protocol defaults before the block is built.
// It is an error to call this on a chain that already has a stored head.
func (c *Chain) InitGenesis(gen *config.Genesis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.blocks.GetHead(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("chain already has a stored head, refusing to overwrite genesis")
	}

	g := *gen
	g.FillDefaults()
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}

	alloc, err := parseAlloc(g.Alloc)
	if err != nil {
		return err
	}

	state := execution.NewState()
	header := &block.Header{
		Number:     0,
		PrevHash:   g.PrevHash,
		Timestamp:  g.Timestamp,
		Difficulty: g.Difficulty,
		GasLimit:   g.GasLimit,
		GasUsed:    g.GasUsed,
		Coinbase:   g.Coinbase,
		ExtraData:  []byte(g.ExtraData),
		UnclesHash: block.ComputeUnclesHash(nil),
	}

	if err := c.backend.Initialize(state, header); err != nil {
		return fmt.Errorf("initialize genesis state: %w", err)
	}
	if err := c.backend.ApplyGenesisAlloc(state, alloc); err != nil {
		return fmt.Errorf("apply genesis alloc: %w", err)
	}

	stateRoot, err := c.backend.Commit(state)
	if err != nil {
		return fmt.Errorf("commit genesis state: %w", err)
	}
	header.StateRoot = stateRoot
	state.StateRoot = stateRoot
	state.GasLimit = header.GasLimit

	genesisBlock := block.NewBlock(header, nil, nil)
	return c.commitGenesis(genesisBlock, state)
}

// InitGenesisFromState establishes genesis from a pre-built genesis block
// and its already-computed poststate (§6 mode (b): an in-memory state
// object), bypassing allocation and Initialize/Commit entirely. The caller
// is responsible for the state's internal consistency with the block.
func (c *Chain) InitGenesisFromState(genesisBlock *block.Block, state *execution.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.blocks.GetHead(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("chain already has a stored head, refusing to overwrite genesis")
	}
	if genesisBlock == nil || genesisBlock.Header == nil {
		return fmt.Errorf("genesis block is nil")
	}
	if state == nil {
		return fmt.Errorf("genesis state is nil")
	}
	return c.commitGenesis(genesisBlock, state)
}

// InitGenesisFromSnapshot establishes genesis from a serialized state
// snapshot carrying its own prev_headers window (§6 mode (d)), used when a
// chain's genesis sits at a checkpoint deeper than height 0 rather than at
// the true start of the ancestry.
func (c *Chain) InitGenesisFromSnapshot(genesisBlock *block.Block, snapshot []byte) error {
	state, err := execution.FromSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("decode genesis state snapshot: %w", err)
	}
	return c.InitGenesisFromState(genesisBlock, state)
}

// commitGenesis persists the genesis block and its poststate in a single
// batch and adopts it as the live head. Callers must hold c.mu.
func (c *Chain) commitGenesis(genesisBlock *block.Block, state *execution.State) error {
	hash := genesisBlock.Hash()
	number := genesisBlock.Header.Number

	snapshot, err := state.ToSnapshot()
	if err != nil {
		return fmt.Errorf("serialize genesis state: %w", err)
	}

	batch := c.blocks.NewBatch()
	if err := c.blocks.StoreBlock(batch, genesisBlock); err != nil {
		return err
	}
	if err := c.blocks.SetHeightIndex(batch, number, hash); err != nil {
		return err
	}
	if err := c.blocks.SetHead(batch, hash); err != nil {
		return err
	}
	if err := c.blocks.SetGenesisNumber(batch, number); err != nil {
		return err
	}
	if err := c.blocks.SetGenesisState(batch, snapshot); err != nil {
		return err
	}
	if err := c.blocks.putScore(batch, hash, 0); err != nil {
		return err
	}
	for i, transaction := range genesisBlock.Transactions {
		if err := c.blocks.SetTxIndex(batch, transaction.Hash(), number, i); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}

	c.headHash = hash
	c.genesisHash = hash
	c.genesisNumber = number
	c.state = state
	return nil
}

// parseAlloc converts a hex-address allocation dictionary into typed
// addresses. Input addresses are checked in sorted order, so the error for
// an invalid entry is the same on every run; the returned map itself has no
// defined iteration order.
func parseAlloc(alloc map[string]uint64) (map[types.Address]uint64, error) {
	out := make(map[types.Address]uint64, len(alloc))
	addrs := make([]string, 0, len(alloc))
	for addr := range alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addrStr := range addrs {
		addr, err := types.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
		out[addr] = alloc[addrStr]
	}
	return out, nil
}
