// Package tx defines the transaction envelope the chain core moves around.
// The core itself only ever reads Hash, GasPrice, and StartGas (§3 of the
// data model); the remaining fields exist so a realistic execution layer
// has something to apply. Signature verification and nonce checking belong
// to that execution layer, not here.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/ethcore-labs/ethcore-chain/pkg/crypto"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Transaction is an account-model transaction: a signed intent to transfer
// value and/or invoke code on behalf of From.
type Transaction struct {
	Nonce    uint64        `json:"nonce"`
	GasPrice uint64        `json:"gasprice"`
	StartGas uint64        `json:"startgas"`
	To       types.Address `json:"to"`
	Value    uint64        `json:"value"`
	Data     []byte        `json:"data,omitempty"`
	From     types.Address `json:"from"`
	Sig      []byte        `json:"sig,omitempty"`
}

type transactionJSON struct {
	Nonce    uint64        `json:"nonce"`
	GasPrice uint64        `json:"gasprice"`
	StartGas uint64        `json:"startgas"`
	To       types.Address `json:"to"`
	Value    uint64        `json:"value"`
	Data     string        `json:"data,omitempty"`
	From     types.Address `json:"from"`
	Sig      string        `json:"sig,omitempty"`
}

// MarshalJSON encodes the transaction with hex-encoded byte fields.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{
		Nonce:    t.Nonce,
		GasPrice: t.GasPrice,
		StartGas: t.StartGas,
		To:       t.To,
		Value:    t.Value,
		From:     t.From,
	}
	if t.Data != nil {
		j.Data = hex.EncodeToString(t.Data)
	}
	if t.Sig != nil {
		j.Sig = hex.EncodeToString(t.Sig)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a transaction with hex-encoded byte fields.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	t.Nonce = j.Nonce
	t.GasPrice = j.GasPrice
	t.StartGas = j.StartGas
	t.To = j.To
	t.Value = j.Value
	t.From = j.From
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		t.Data = b
	}
	if j.Sig != "" {
		b, err := hex.DecodeString(j.Sig)
		if err != nil {
			return err
		}
		t.Sig = b
	}
	return nil
}

// Hash computes the transaction's content hash, excluding Sig so the hash
// is stable across signing.
func (t *Transaction) Hash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for hashing
// and signing. Big-endian integers throughout per the consumed
// serialization contract (§6).
func (t *Transaction) SigningBytes() []byte {
	buf := make([]byte, 0, 64+len(t.Data))
	buf = binary.BigEndian.AppendUint64(buf, t.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, t.GasPrice)
	buf = binary.BigEndian.AppendUint64(buf, t.StartGas)
	buf = append(buf, t.To[:]...)
	buf = binary.BigEndian.AppendUint64(buf, t.Value)
	buf = append(buf, t.Data...)
	buf = append(buf, t.From[:]...)
	return buf
}
