package chain

import (
	"testing"

	"github.com/ethcore-labs/ethcore-chain/config"
	"github.com/ethcore-labs/ethcore-chain/internal/mempool"
	"github.com/ethcore-labs/ethcore-chain/internal/storage"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// newTestChain builds a chain over an in-memory store with a fake execution
// backend and a fresh genesis at difficulty 2^25.
func newTestChain(t *testing.T) (*Chain, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	c, err := New(storage.NewMemory(), backend, mempool.New(0, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gen := config.DefaultGenesisHeaderFields()
	gen.Timestamp = 1000
	if err := c.InitGenesis(&gen); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	return c, backend
}

// testAddr builds a distinct address from a single byte for test fixtures.
func testAddr(b byte) types.Address {
	var a types.Address
	a[len(a)-1] = b
	return a
}

// defaultTestGenesis returns a genesis declaration matching the one
// newTestChain already committed, for tests that exercise double-init.
func defaultTestGenesis() *config.Genesis {
	gen := config.DefaultGenesisHeaderFields()
	gen.Timestamp = 1000
	return &gen
}

// makeTx builds a test transaction with the given nonce, gas price, start
// gas, sender, recipient, and value.
func makeTx(nonce, gasPrice, startGas uint64, from, to types.Address, value uint64) *tx.Transaction {
	return &tx.Transaction{
		Nonce:    nonce,
		GasPrice: gasPrice,
		StartGas: startGas,
		To:       to,
		Value:    value,
		From:     from,
	}
}

// buildBlock constructs a test block atop parent. The fake backend never
// validates header.StateRoot against its own computed trie root, so test
// fixtures needn't precompute one.
func buildBlock(parent *block.Block, difficulty, timestamp uint64, coinbase types.Address, txs []*tx.Transaction, uncles []*block.Header) *block.Block {
	header := &block.Header{
		Number:     parent.Header.Number + 1,
		PrevHash:   parent.Hash(),
		Timestamp:  timestamp,
		Difficulty: difficulty,
		GasLimit:   4_712_388,
		Coinbase:   coinbase,
		UnclesHash: block.ComputeUnclesHash(uncles),
	}
	return block.NewBlock(header, txs, uncles)
}
