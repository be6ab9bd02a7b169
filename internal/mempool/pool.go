// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists  = errors.New("transaction already in mempool")
	ErrGasPriceTooLow = errors.New("transaction gas price below minimum")
	ErrPoolFull       = errors.New("mempool is full")
	ErrValidation     = errors.New("transaction failed validation")
)

// DefaultMaxSize mirrors klingnet's default pool capacity; this model has
// no fee-rate-per-byte concept, so eviction instead compares gas price
// directly (highest pays first).
const DefaultMaxSize = 5000

// Pool holds unconfirmed transactions ordered by descending gas price
// (component G — the highest-paying transaction is always at index 0).
type Pool struct {
	mu          sync.RWMutex
	order       []*tx.Transaction // Descending by GasPrice.
	index       map[types.Hash]int
	minGasPrice uint64
	maxSize     int
	policy      *Policy
}

// New creates a mempool enforcing minGasPrice (§4.G) with room for at
// most maxSize pending transactions.
func New(minGasPrice uint64, maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		index:       make(map[types.Hash]int),
		minGasPrice: minGasPrice,
		maxSize:     maxSize,
		policy:      DefaultPolicy(),
	}
}

// SetPolicy overrides the node-local acceptance policy.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// Add validates and inserts transaction into descending gas-price order.
// A gas price below the configured minimum is a silent pool rejection
// (§7.5), reported here as an error the caller is expected to ignore
// rather than propagate as a fault.
func (p *Pool) Add(transaction *tx.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if transaction.GasPrice < p.minGasPrice {
		return fmt.Errorf("%w: got %d, need %d", ErrGasPriceTooLow, transaction.GasPrice, p.minGasPrice)
	}

	txHash := transaction.Hash()
	if _, exists := p.index[txHash]; exists {
		return ErrAlreadyExists
	}

	if p.policy != nil {
		if err := p.policy.Check(transaction); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if len(p.order) >= p.maxSize {
		lowest := p.order[len(p.order)-1]
		if transaction.GasPrice <= lowest.GasPrice {
			return ErrPoolFull
		}
		p.removeAt(len(p.order) - 1)
	}

	idx := sort.Search(len(p.order), func(i int) bool {
		return p.order[i].GasPrice < transaction.GasPrice
	})
	p.order = append(p.order, nil)
	copy(p.order[idx+1:], p.order[idx:])
	p.order[idx] = transaction
	p.reindexFrom(idx)

	return nil
}

// GetCandidateTransaction returns the first pending transaction not named
// in excluded whose StartGas fits within gasBudget, or nil if none
// qualifies (§4.G/§4.H).
func (p *Pool) GetCandidateTransaction(gasBudget uint64, excluded map[types.Hash]bool) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, transaction := range p.order {
		if excluded[transaction.Hash()] {
			continue
		}
		if transaction.StartGas <= gasBudget {
			return transaction
		}
	}
	return nil
}

// Remove deletes a transaction by hash.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, exists := p.index[txHash]
	if !exists {
		return
	}
	p.removeAt(idx)
}

// RemoveConfirmed prunes every transaction included in a just-applied
// block (§4.E/§4.G: "the pool is filtered to remove transactions just
// included").
func (p *Pool) RemoveConfirmed(txs []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range txs {
		if idx, exists := p.index[t.Hash()]; exists {
			p.removeAt(idx)
		}
	}
}

// Has reports whether a transaction is currently pending.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.index[txHash]
	return exists
}

// Count returns the number of pending transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// removeAt deletes the entry at idx. Must be called with p.mu held.
func (p *Pool) removeAt(idx int) {
	removed := p.order[idx]
	p.order = append(p.order[:idx], p.order[idx+1:]...)
	delete(p.index, removed.Hash())
	p.reindexFrom(idx)
}

// reindexFrom rebuilds p.index for every entry at or after from. Must be
// called with p.mu held.
func (p *Pool) reindexFrom(from int) {
	for i := from; i < len(p.order); i++ {
		p.index[p.order[i].Hash()] = i
	}
}
