package block

import (
	"errors"
	"fmt"
)

// Structural validation errors. These check only block well-formedness;
// consensus validity (difficulty, state transition, gas accounting) is the
// execution layer's responsibility (internal/execution.Backend).
var (
	ErrNilHeader        = errors.New("block has nil header")
	ErrZeroTimestamp    = errors.New("block timestamp is zero")
	ErrTooManyTxs       = errors.New("too many transactions in block")
	ErrTooManyUncles    = errors.New("too many uncles in block")
	ErrBadUnclesHash    = errors.New("uncles_hash mismatch")
	ErrDuplicateUncle   = errors.New("duplicate uncle in block")
)

// MaxUnclesPerBlock bounds the uncles a single block may cite, per the
// candidate builder's own selection cap (component H).
const MaxUnclesPerBlock = 2

// MaxBlockTxs bounds the number of transactions accepted in a single block
// before any gas-budget concerns are considered.
const MaxBlockTxs = 1 << 16

// Validate checks block structure: a non-nil header, a sane timestamp, an
// uncle count/hash consistent with the header, and no duplicate uncles.
// It performs no consensus or state-transition checks.
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}
	if b.Header.Timestamp == 0 {
		return ErrZeroTimestamp
	}
	if len(b.Transactions) > MaxBlockTxs {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), MaxBlockTxs)
	}
	if len(b.Uncles) > MaxUnclesPerBlock {
		return fmt.Errorf("%w: %d uncles, max %d", ErrTooManyUncles, len(b.Uncles), MaxUnclesPerBlock)
	}

	seen := make(map[[32]byte]bool, len(b.Uncles))
	for _, u := range b.Uncles {
		h := u.Hash()
		if seen[h] {
			return fmt.Errorf("%w: %s", ErrDuplicateUncle, h)
		}
		seen[h] = true
	}

	expected := ComputeUnclesHash(b.Uncles)
	if b.Header.UnclesHash != expected {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadUnclesHash, b.Header.UnclesHash, expected)
	}

	return nil
}
