// Package crypto provides the content-hashing and key-generation helpers
// used around the chain core. Transaction signing and verification belong
// to the execution layer (an external collaborator, see internal/execution)
// and are not implemented here.
package crypto

import (
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 content hash of the concatenation of data.
func Hash(data ...[]byte) types.Hash {
	h := blake3.New()
	for _, d := range data {
		h.Write(d)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// HashConcat hashes the concatenation of two hashes.
func HashConcat(a, b types.Hash) types.Hash {
	return Hash(a[:], b[:])
}
