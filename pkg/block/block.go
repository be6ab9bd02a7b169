package block

import (
	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Block represents a block in the chain: a header, its transactions, and
// any uncle headers it cites for partial reward.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
	Uncles       []*Header         `json:"uncles,omitempty"`
}

// NewBlock creates a new block with the given header, transactions, and
// uncles.
func NewBlock(header *Header, txs []*tx.Transaction, uncles []*Header) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
		Uncles:       uncles,
	}
}

// Hash returns the block's content-address hash (its header hash).
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// Number returns the block's height, or 0 for a nil header.
func (b *Block) Number() uint64 {
	if b.Header == nil {
		return 0
	}
	return b.Header.Number
}
