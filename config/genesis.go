package config

import (
	"encoding/json"
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/pkg/crypto"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Genesis holds genesis block configuration: an allocation dictionary plus
// scalar header fields (§6 genesis input modes (c) and (e)). Mode (c), a
// genesis declaration document, is simply a Genesis with ExtraData set
// explicitly; mode (e), allocations plus scalar fields with sensible
// defaults, is a Genesis with the zero-valued fields filled in by
// FillDefaults.
type Genesis struct {
	Number     uint64 `json:"number"`
	PrevHash   types.Hash `json:"prevhash,omitempty"`
	Timestamp  uint64     `json:"timestamp,omitempty"`
	Difficulty uint64     `json:"difficulty,omitempty"`
	GasLimit   uint64     `json:"gas_limit,omitempty"`
	GasUsed    uint64     `json:"gas_used,omitempty"`
	Coinbase   types.Address `json:"coinbase,omitempty"`
	ExtraData  string        `json:"extra_data,omitempty"`
	UnclesHash types.Hash    `json:"uncles_hash,omitempty"`

	// Alloc maps hex addresses to their genesis balance in base units.
	Alloc map[string]uint64 `json:"alloc"`
}

// FillDefaults applies the literal pyethereum-derived defaults (§14) to any
// zero-valued scalar header field, matching mode (e)'s "sensible defaults"
// language.
func (g *Genesis) FillDefaults() {
	if g.GasLimit == 0 {
		g.GasLimit = DefaultGasLimit
	}
	if g.Difficulty == 0 {
		g.Difficulty = DefaultDifficulty
	}
	if g.Timestamp == 0 {
		g.Timestamp = DefaultTimestamp
	}
	if g.ExtraData == "" {
		g.ExtraData = DefaultExtraData
	}
}

// Validate checks that a genesis declaration is well-formed before it is
// handed to the chain manager for block construction.
func (g *Genesis) Validate() error {
	for addrStr := range g.Alloc {
		if _, err := types.ParseAddress(addrStr); err != nil {
			return fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
	}
	return nil
}

// Hash returns a content hash of the genesis declaration, used to detect
// genesis mismatches between nodes that believe they share a chain.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
