// Package execution defines the contract the chain manager consumes from
// the execution layer: transaction application, receipt construction,
// state-trie management, and the protocol's difficulty/gas-limit formulas.
// None of it is implemented here — this package is the interface boundary,
// the same role klingnet's internal/consensus.Engine plays for pluggable
// block validation.
package execution

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Apply-error taxonomy (§4.H/§6). The candidate builder treats all five as
// "skip this transaction, try the next one"; nothing else in this package
// is allowed to return them for other reasons.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrBlockGasLimitReached = errors.New("block gas limit reached")
	ErrInsufficientStartGas = errors.New("insufficient start gas")
	ErrInvalidNonce         = errors.New("invalid nonce")
	ErrUnsignedTransaction  = errors.New("unsigned transaction")
)

// PrevHeaderWindow is the number of ancestor headers a poststate retains.
const PrevHeaderWindow = 257

// RecentUncleWindow is the number of trailing heights recent_uncles tracks.
const RecentUncleWindow = 6

// Log is an event emitted during transaction execution. The chain core
// never inspects its contents, only folds its bloom contribution.
type Log struct {
	Address types.Address `json:"address"`
	Topics  []types.Hash  `json:"topics"`
	Data    []byte        `json:"data"`
}

// Receipt is produced by ApplyTransaction for each included transaction.
type Receipt struct {
	TxHash  types.Hash  `json:"tx_hash"`
	GasUsed uint64      `json:"gas_used"`
	Success bool        `json:"success"`
	Bloom   types.Bloom `json:"bloom"`
	Logs    []Log       `json:"logs"`
}

// State is the Go expression of the spec's "State snapshot" (§3): enough
// to resume execution at a given block without replaying the chain from
// genesis. It is owned by the chain package and mutated in place by
// Backend methods, mirroring the original's State object being threaded
// through free functions rather than owning its own mutation logic.
type State struct {
	StateRoot    types.Hash              `json:"state_root"`
	BlockNumber  uint64                  `json:"block_number"`
	GasUsed      uint64                  `json:"gas_used"`
	GasLimit     uint64                  `json:"gas_limit"`
	TxIndex      int                     `json:"tx_index"`
	Bloom        types.Bloom             `json:"bloom"`
	PrevHeaders  []block.PrevHeader      `json:"prev_headers"`
	RecentUncles map[uint64][]types.Hash `json:"recent_uncles"`
}

// NewState returns a freshly zeroed state ready for Backend.Initialize.
func NewState() *State {
	return &State{RecentUncles: make(map[uint64][]types.Hash)}
}

// ToSnapshot serializes the state to the form stored at GENESIS_STATE.
func (s *State) ToSnapshot() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state snapshot: %w", err)
	}
	return data, nil
}

// FromSnapshot decodes a stored GENESIS_STATE value.
func FromSnapshot(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal state snapshot: %w", err)
	}
	if s.RecentUncles == nil {
		s.RecentUncles = make(map[uint64][]types.Hash)
	}
	return &s, nil
}

// Clone returns a copy safe for speculative candidate assembly — mutating
// the clone must never affect the original live state.
func (s *State) Clone() *State {
	clone := *s
	clone.PrevHeaders = append([]block.PrevHeader(nil), s.PrevHeaders...)
	clone.RecentUncles = make(map[uint64][]types.Hash, len(s.RecentUncles))
	for height, hashes := range s.RecentUncles {
		clone.RecentUncles[height] = append([]types.Hash(nil), hashes...)
	}
	return &clone
}

// Backend is the execution-layer contract the chain core consumes (§6). It
// is implemented entirely outside this module (state trie, gas accounting,
// signature recovery); the chain core only calls through this interface.
type Backend interface {
	// Initialize runs a block's pre-execution hook: copying header fields
	// the execution layer needs onto state before any transaction runs.
	Initialize(state *State, header *block.Header) error

	// ApplyBlock mutates state by executing every transaction in blk plus
	// finalization, failing with a well-defined execution error on any
	// invalidity.
	ApplyBlock(state *State, blk *block.Block) error

	// ApplyTransaction executes a single transaction against state. On
	// failure it returns one of the five errors declared above.
	ApplyTransaction(state *State, transaction *tx.Transaction) (*Receipt, error)

	// Finalize runs a block's post-execution hook (miner reward, uncle
	// rewards).
	Finalize(state *State, blk *block.Block) error

	// ApplyGenesisAlloc credits the initial balances named in a genesis
	// allocation dictionary (§6 input mode (e)) directly onto state,
	// bypassing ordinary transaction validation — there is no sender to
	// debit or nonce to check at genesis.
	ApplyGenesisAlloc(state *State, alloc map[types.Address]uint64) error

	// MkReceiptSHA and MkTransactionSHA compute the roots stored in a
	// candidate header.
	MkReceiptSHA(receipts []*Receipt) types.Hash
	MkTransactionSHA(txs []*tx.Transaction) types.Hash

	// CalcDifficulty and CalcGasLimit implement the protocol's difficulty
	// and gas-limit adjustment formulas. Configuration the formulas need
	// is closed over by the concrete Backend implementation.
	CalcDifficulty(prev *block.PrevHeader, now uint64) uint64
	CalcGasLimit(prev *block.PrevHeader) uint64

	// Commit finalizes state's trie and returns the resulting root, to be
	// written onto a candidate header before sealing.
	Commit(state *State) (types.Hash, error)
}
