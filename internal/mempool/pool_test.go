package mempool

import (
	"errors"
	"testing"

	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

func buildTx(nonce, gasPrice uint64, from byte) *tx.Transaction {
	return &tx.Transaction{
		Nonce:    nonce,
		GasPrice: gasPrice,
		StartGas: 21000,
		To:       types.Address{0xaa},
		Value:    100,
		From:     types.Address{from},
	}
}

func TestPool_Add_OrdersByDescendingGasPrice(t *testing.T) {
	pool := New(0, 100)

	low := buildTx(0, 10, 0x01)
	high := buildTx(0, 50, 0x02)
	mid := buildTx(0, 25, 0x03)

	for _, transaction := range []*tx.Transaction{low, high, mid} {
		if err := pool.Add(transaction); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if pool.Count() != 3 {
		t.Fatalf("count = %d, want 3", pool.Count())
	}

	got := pool.GetCandidateTransaction(1_000_000, nil)
	if got == nil || got.Hash() != high.Hash() {
		t.Error("highest gas price transaction should be the first candidate")
	}
}

func TestPool_Add_Duplicate(t *testing.T) {
	pool := New(0, 100)
	transaction := buildTx(0, 10, 0x01)

	if err := pool.Add(transaction); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := pool.Add(transaction); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got: %v", err)
	}
}

func TestPool_Add_GasPriceTooLow(t *testing.T) {
	pool := New(20, 100)
	transaction := buildTx(0, 10, 0x01)

	if err := pool.Add(transaction); !errors.Is(err, ErrGasPriceTooLow) {
		t.Errorf("expected ErrGasPriceTooLow, got: %v", err)
	}
}

func TestPool_Add_PoolFull_RejectsLowerGasPrice(t *testing.T) {
	pool := New(0, 2)

	if err := pool.Add(buildTx(0, 30, 0x01)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := pool.Add(buildTx(0, 20, 0x02)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := pool.Add(buildTx(0, 10, 0x03)); !errors.Is(err, ErrPoolFull) {
		t.Errorf("expected ErrPoolFull, got: %v", err)
	}
	if pool.Count() != 2 {
		t.Errorf("count = %d, want 2", pool.Count())
	}
}

func TestPool_Add_PoolFull_EvictsLowerGasPrice(t *testing.T) {
	pool := New(0, 2)

	low := buildTx(0, 10, 0x01)
	mid := buildTx(0, 20, 0x02)
	high := buildTx(0, 30, 0x03)

	if err := pool.Add(low); err != nil {
		t.Fatalf("Add low: %v", err)
	}
	if err := pool.Add(mid); err != nil {
		t.Fatalf("Add mid: %v", err)
	}
	if err := pool.Add(high); err != nil {
		t.Fatalf("Add high: %v", err)
	}

	if pool.Has(low.Hash()) {
		t.Error("lowest gas price transaction should have been evicted")
	}
	if !pool.Has(mid.Hash()) || !pool.Has(high.Hash()) {
		t.Error("mid and high gas price transactions should remain")
	}
}

func TestPool_Add_ValidationFailure(t *testing.T) {
	pool := New(0, 100)
	pool.SetPolicy(&Policy{MaxTxSize: 1})

	transaction := buildTx(0, 10, 0x01)
	if err := pool.Add(transaction); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

func TestPool_GetCandidateTransaction_RespectsGasBudget(t *testing.T) {
	pool := New(0, 100)
	expensive := buildTx(0, 50, 0x01)
	expensive.StartGas = 1_000_000
	cheap := buildTx(0, 10, 0x02)
	cheap.StartGas = 21000

	if err := pool.Add(expensive); err != nil {
		t.Fatalf("Add expensive: %v", err)
	}
	if err := pool.Add(cheap); err != nil {
		t.Fatalf("Add cheap: %v", err)
	}

	got := pool.GetCandidateTransaction(100_000, nil)
	if got == nil || got.Hash() != cheap.Hash() {
		t.Error("expected the cheaper transaction once the expensive one exceeds budget")
	}
}

func TestPool_GetCandidateTransaction_SkipsExcluded(t *testing.T) {
	pool := New(0, 100)
	high := buildTx(0, 50, 0x01)
	low := buildTx(0, 10, 0x02)

	pool.Add(high)
	pool.Add(low)

	excluded := map[types.Hash]bool{high.Hash(): true}
	got := pool.GetCandidateTransaction(1_000_000, excluded)
	if got == nil || got.Hash() != low.Hash() {
		t.Error("excluded transaction should be skipped in favor of the next candidate")
	}
}

func TestPool_Remove(t *testing.T) {
	pool := New(0, 100)
	transaction := buildTx(0, 10, 0x01)
	pool.Add(transaction)

	pool.Remove(transaction.Hash())
	if pool.Count() != 0 {
		t.Errorf("count = %d, want 0", pool.Count())
	}
	if pool.Has(transaction.Hash()) {
		t.Error("Has should return false after Remove")
	}
}

func TestPool_RemoveConfirmed(t *testing.T) {
	pool := New(0, 100)
	tx1 := buildTx(0, 30, 0x01)
	tx2 := buildTx(0, 10, 0x02)
	pool.Add(tx1)
	pool.Add(tx2)

	pool.RemoveConfirmed([]*tx.Transaction{tx1})
	if pool.Count() != 1 {
		t.Errorf("count = %d, want 1", pool.Count())
	}
	if pool.Has(tx1.Hash()) {
		t.Error("tx1 should be removed")
	}
	if !pool.Has(tx2.Hash()) {
		t.Error("tx2 should still be in pool")
	}
}

func TestPool_Has(t *testing.T) {
	pool := New(0, 100)
	transaction := buildTx(0, 10, 0x01)

	if pool.Has(transaction.Hash()) {
		t.Error("Has should return false before Add")
	}
	pool.Add(transaction)
	if !pool.Has(transaction.Hash()) {
		t.Error("Has should return true after Add")
	}
}

func TestPool_Evict(t *testing.T) {
	pool := New(0, 5)
	for i := 0; i < 5; i++ {
		pool.Add(buildTx(0, uint64(10+i), byte(i+1)))
	}
	if pool.Count() != 5 {
		t.Fatalf("count = %d, want 5", pool.Count())
	}

	pool.maxSize = 3
	evicted := pool.Evict()
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	if pool.Count() != 3 {
		t.Errorf("count after evict = %d, want 3", pool.Count())
	}
}

func TestPool_Evict_NotNeeded(t *testing.T) {
	pool := New(0, 100)
	pool.Add(buildTx(0, 10, 0x01))

	if evicted := pool.Evict(); evicted != 0 {
		t.Errorf("evicted = %d, want 0", evicted)
	}
}

func TestPolicy_Check(t *testing.T) {
	transaction := buildTx(0, 10, 0x01)

	policy := DefaultPolicy()
	if err := policy.Check(transaction); err != nil {
		t.Errorf("valid tx should pass policy: %v", err)
	}

	policy.MaxTxSize = 1
	if err := policy.Check(transaction); err == nil {
		t.Error("oversized tx should fail policy")
	}
}

func TestNew_DefaultMaxSize(t *testing.T) {
	pool := New(0, 0)
	if pool.maxSize != DefaultMaxSize {
		t.Errorf("maxSize = %d, want %d", pool.maxSize, DefaultMaxSize)
	}
}
