package chain

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/ethcore-labs/ethcore-chain/internal/execution"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/crypto"
	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

const (
	fakeBlockReward = 1000
	fakeUncleReward = 100
)

// fakeBackend is a minimal hand-rolled execution.Backend for exercising
// the chain core's own logic in isolation: a flat balance trie keyed by
// its content hash, committed deterministically from sorted address
// order. It has no gas metering beyond StartGas/GasLimit bookkeeping and
// no signature checking — those belong to a real execution layer.
type fakeBackend struct {
	mu      sync.Mutex
	tries   map[types.Hash]map[types.Address]uint64
	scratch map[*execution.State]map[types.Address]uint64

	// rejectTx, if set, is returned by ApplyTransaction for any transaction
	// whose hash is in the set, regardless of balance.
	rejectTx map[types.Hash]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tries:   map[types.Hash]map[types.Address]uint64{{}: {}},
		scratch: make(map[*execution.State]map[types.Address]uint64),
	}
}

func (b *fakeBackend) balancesFor(state *execution.State) map[types.Address]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.scratch[state]; ok {
		return bal
	}
	base := b.tries[state.StateRoot]
	bal := make(map[types.Address]uint64, len(base))
	for k, v := range base {
		bal[k] = v
	}
	b.scratch[state] = bal
	return bal
}

func (b *fakeBackend) balanceOf(root types.Hash, addr types.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tries[root][addr]
}

func (b *fakeBackend) Initialize(state *execution.State, header *block.Header) error {
	state.BlockNumber = header.Number
	state.GasLimit = header.GasLimit
	state.GasUsed = 0
	state.TxIndex = 0
	return nil
}

func (b *fakeBackend) ApplyTransaction(state *execution.State, transaction *tx.Transaction) (*execution.Receipt, error) {
	if err := b.rejectTx[transaction.Hash()]; err != nil {
		return nil, err
	}
	if state.GasUsed+transaction.StartGas > state.GasLimit {
		return nil, execution.ErrBlockGasLimitReached
	}
	bal := b.balancesFor(state)
	if bal[transaction.From] < transaction.Value {
		return nil, execution.ErrInsufficientBalance
	}
	bal[transaction.From] -= transaction.Value
	bal[transaction.To] += transaction.Value
	state.GasUsed += transaction.StartGas
	state.TxIndex++
	return &execution.Receipt{TxHash: transaction.Hash(), GasUsed: transaction.StartGas, Success: true}, nil
}

func (b *fakeBackend) ApplyBlock(state *execution.State, blk *block.Block) error {
	if err := b.Initialize(state, blk.Header); err != nil {
		return err
	}
	for _, transaction := range blk.Transactions {
		if _, err := b.ApplyTransaction(state, transaction); err != nil {
			return err
		}
	}
	return b.Finalize(state, blk)
}

func (b *fakeBackend) Finalize(state *execution.State, blk *block.Block) error {
	bal := b.balancesFor(state)
	bal[blk.Header.Coinbase] += fakeBlockReward
	bal[blk.Header.Coinbase] += uint64(len(blk.Uncles)) * fakeUncleReward
	return nil
}

func (b *fakeBackend) ApplyGenesisAlloc(state *execution.State, alloc map[types.Address]uint64) error {
	bal := b.balancesFor(state)
	for addr, value := range alloc {
		bal[addr] += value
	}
	return nil
}

func (b *fakeBackend) MkReceiptSHA(receipts []*execution.Receipt) types.Hash {
	buf := make([]byte, 0, len(receipts)*40)
	for _, r := range receipts {
		buf = append(buf, r.TxHash[:]...)
		buf = binary.BigEndian.AppendUint64(buf, r.GasUsed)
	}
	return crypto.Hash(buf)
}

func (b *fakeBackend) MkTransactionSHA(txs []*tx.Transaction) types.Hash {
	buf := make([]byte, 0, len(txs)*32)
	for _, t := range txs {
		h := t.Hash()
		buf = append(buf, h[:]...)
	}
	return crypto.Hash(buf)
}

func (b *fakeBackend) CalcDifficulty(prev *block.PrevHeader, now uint64) uint64 {
	return prev.Difficulty
}

func (b *fakeBackend) CalcGasLimit(prev *block.PrevHeader) uint64 {
	return prev.GasLimit
}

func (b *fakeBackend) Commit(state *execution.State) (types.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.scratch[state]
	if bal == nil {
		bal = map[types.Address]uint64{}
	}
	addrs := make([]types.Address, 0, len(bal))
	for a := range bal {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	buf := make([]byte, 0, len(addrs)*28)
	for _, a := range addrs {
		buf = append(buf, a[:]...)
		buf = binary.BigEndian.AppendUint64(buf, bal[a])
	}
	root := crypto.Hash(buf)

	b.tries[root] = bal
	delete(b.scratch, state)
	return root, nil
}
