// Package block defines block and header types and their structural
// validation.
package block

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/ethcore-labs/ethcore-chain/pkg/crypto"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Header contains block metadata, mirroring the Ethereum-like header field
// set referenced by the chain core.
type Header struct {
	Number        uint64      `json:"number"`
	PrevHash      types.Hash  `json:"prevhash"`
	Timestamp     uint64      `json:"timestamp"`
	Difficulty    uint64      `json:"difficulty"`
	GasLimit      uint64      `json:"gas_limit"`
	GasUsed       uint64      `json:"gas_used"`
	Coinbase      types.Address `json:"coinbase"`
	ExtraData     []byte      `json:"extra_data,omitempty"`
	StateRoot     types.Hash  `json:"state_root"`
	ReceiptsRoot  types.Hash  `json:"receipts_root"`
	TxListRoot    types.Hash  `json:"tx_list_root"`
	UnclesHash    types.Hash  `json:"uncles_hash"`
	Bloom         types.Bloom `json:"bloom"`
	Nonce         uint64      `json:"nonce"`
}

// headerJSON is the JSON representation of Header with hex-encoded extra data.
type headerJSON struct {
	Number       uint64        `json:"number"`
	PrevHash     types.Hash    `json:"prevhash"`
	Timestamp    uint64        `json:"timestamp"`
	Difficulty   uint64        `json:"difficulty"`
	GasLimit     uint64        `json:"gas_limit"`
	GasUsed      uint64        `json:"gas_used"`
	Coinbase     types.Address `json:"coinbase"`
	ExtraData    string        `json:"extra_data,omitempty"`
	StateRoot    types.Hash    `json:"state_root"`
	ReceiptsRoot types.Hash    `json:"receipts_root"`
	TxListRoot   types.Hash    `json:"tx_list_root"`
	UnclesHash   types.Hash    `json:"uncles_hash"`
	Bloom        types.Bloom   `json:"bloom"`
	Nonce        uint64        `json:"nonce"`
}

// MarshalJSON encodes the header with hex-encoded extra data.
func (h *Header) MarshalJSON() ([]byte, error) {
	j := headerJSON{
		Number:       h.Number,
		PrevHash:     h.PrevHash,
		Timestamp:    h.Timestamp,
		Difficulty:   h.Difficulty,
		GasLimit:     h.GasLimit,
		GasUsed:      h.GasUsed,
		Coinbase:     h.Coinbase,
		StateRoot:    h.StateRoot,
		ReceiptsRoot: h.ReceiptsRoot,
		TxListRoot:   h.TxListRoot,
		UnclesHash:   h.UnclesHash,
		Bloom:        h.Bloom,
		Nonce:        h.Nonce,
	}
	if h.ExtraData != nil {
		j.ExtraData = hex.EncodeToString(h.ExtraData)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a header with hex-encoded extra data.
func (h *Header) UnmarshalJSON(data []byte) error {
	var j headerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	h.Number = j.Number
	h.PrevHash = j.PrevHash
	h.Timestamp = j.Timestamp
	h.Difficulty = j.Difficulty
	h.GasLimit = j.GasLimit
	h.GasUsed = j.GasUsed
	h.Coinbase = j.Coinbase
	h.StateRoot = j.StateRoot
	h.ReceiptsRoot = j.ReceiptsRoot
	h.TxListRoot = j.TxListRoot
	h.UnclesHash = j.UnclesHash
	h.Bloom = j.Bloom
	h.Nonce = j.Nonce
	if j.ExtraData != "" {
		b, err := hex.DecodeString(j.ExtraData)
		if err != nil {
			return err
		}
		h.ExtraData = b
	}
	return nil
}

// Hash computes the content-address hash of the header.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes identifying this header,
// big-endian integers throughout per the consumed serialization contract.
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 256+len(h.ExtraData))
	buf = binary.BigEndian.AppendUint64(buf, h.Number)
	buf = append(buf, h.PrevHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, h.Timestamp)
	buf = binary.BigEndian.AppendUint64(buf, h.Difficulty)
	buf = binary.BigEndian.AppendUint64(buf, h.GasLimit)
	buf = binary.BigEndian.AppendUint64(buf, h.GasUsed)
	buf = append(buf, h.Coinbase[:]...)
	buf = append(buf, h.ExtraData...)
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.ReceiptsRoot[:]...)
	buf = append(buf, h.TxListRoot[:]...)
	buf = append(buf, h.UnclesHash[:]...)
	buf = append(buf, h.Bloom[:]...)
	buf = binary.BigEndian.AppendUint64(buf, h.Nonce)
	return buf
}

// PrevHeader is a compact projection of Header carrying only the fields a
// descendant needs to validate against: hash, number, timestamp,
// difficulty, gas_limit, state_root.
type PrevHeader struct {
	Hash       types.Hash `json:"hash"`
	Number     uint64     `json:"number"`
	Timestamp  uint64     `json:"timestamp"`
	Difficulty uint64     `json:"difficulty"`
	GasLimit   uint64     `json:"gas_limit"`
	StateRoot  types.Hash `json:"state_root"`
}

// ToPrevHeader projects a full Header down to a PrevHeader.
func (h *Header) ToPrevHeader() PrevHeader {
	return PrevHeader{
		Hash:       h.Hash(),
		Number:     h.Number,
		Timestamp:  h.Timestamp,
		Difficulty: h.Difficulty,
		GasLimit:   h.GasLimit,
		StateRoot:  h.StateRoot,
	}
}
