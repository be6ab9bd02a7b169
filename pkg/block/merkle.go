package block

import (
	"github.com/ethcore-labs/ethcore-chain/pkg/crypto"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// ComputeUnclesHash hashes the concatenation of the given uncle headers'
// signing bytes, in order. This is the core's own responsibility (unlike
// tx_list_root/receipts_root, which the execution layer computes) because
// uncle citation is a chain-core concern.
//
//   - 0 uncles: returns zero hash
//   - otherwise: blake3(concat(header.SigningBytes() for each uncle))
func ComputeUnclesHash(uncles []*Header) types.Hash {
	if len(uncles) == 0 {
		return types.Hash{}
	}
	parts := make([][]byte, len(uncles))
	for i, u := range uncles {
		parts[i] = u.SigningBytes()
	}
	return crypto.Hash(parts...)
}
