package chain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethcore-labs/ethcore-chain/internal/storage"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// Key families (§3). All keys live in a single flat keyspace; prefixes
// disambiguate the families the way the original's string-keyed KV store
// did, just expressed as byte slices here.
var (
	prefixBlock  = []byte("b:")
	prefixScore  = []byte("score:")
	prefixHeight = []byte("block:")
	prefixChild  = []byte("child:")
	prefixTxIdx  = []byte("txindex:")

	keyHeadHash      = []byte("head_hash")
	keyGenesisNumber = []byte("GENESIS_NUMBER")
	keyGenesisState  = []byte("GENESIS_STATE")
)

func blockKey(hash types.Hash) []byte      { return append(append([]byte{}, prefixBlock...), hash[:]...) }
func scoreKey(hash types.Hash) []byte      { return append(append([]byte{}, prefixScore...), hash[:]...) }
func childKey(hash types.Hash) []byte      { return append(append([]byte{}, prefixChild...), hash[:]...) }
func txIndexKey(hash types.Hash) []byte    { return append(append([]byte{}, prefixTxIdx...), hash[:]...) }

func heightKey(number uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], number)
	return key
}

// BlockRef is the tagged variant accepted where the original source took a
// block, a header, or a bare hash interchangeably (§9 "model as a small
// tagged variant... do not replicate runtime type dispatch"). Callers
// normalize at the boundary using one of the Ref* constructors instead of
// BlockStore inspecting the argument's dynamic type.
type BlockRef struct {
	hash types.Hash
}

// RefHash builds a BlockRef directly from a hash.
func RefHash(h types.Hash) BlockRef { return BlockRef{hash: h} }

// RefBlock builds a BlockRef from a block's content hash.
func RefBlock(b *block.Block) BlockRef { return BlockRef{hash: b.Hash()} }

// RefHeader builds a BlockRef from a header's content hash.
func RefHeader(h *block.Header) BlockRef { return BlockRef{hash: h.Hash()} }

// Hash returns the underlying hash of the reference.
func (r BlockRef) Hash() types.Hash { return r.hash }

// BlockStore wraps a storage.DB with the typed key families of §3 and the
// block/header accessors of §4.B. Writes that must participate in
// add_block's single atomic commit (§4.A, §4.E) are staged onto a
// caller-supplied storage.Batch; read accessors go straight to the
// underlying DB.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore wraps db with the chain's key families.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// NewBatch starts a new atomic write batch against the underlying DB, or a
// non-atomic fallback if the DB doesn't implement storage.Batcher.
func (bs *BlockStore) NewBatch() storage.Batch {
	if batcher, ok := bs.db.(storage.Batcher); ok {
		return batcher.NewBatch()
	}
	return &directBatch{db: bs.db}
}

// directBatch applies writes immediately; used only when the underlying DB
// offers no native batching (e.g. a bare storage.DB implementation).
type directBatch struct {
	db storage.DB
}

func (d *directBatch) Put(key, value []byte) error { return d.db.Put(key, value) }
func (d *directBatch) Delete(key []byte) error     { return d.db.Delete(key) }
func (d *directBatch) Commit() error                { return nil }

// StoreBlock stages the content-addressed write of blk under <hash>.
func (bs *BlockStore) StoreBlock(batch storage.Batch, blk *block.Block) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}
	if err := batch.Put(blockKey(blk.Hash()), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	return nil
}

// GetBlock decodes the block stored at <hash>, or an error if missing or
// undecodable.
func (bs *BlockStore) GetBlock(hash types.Hash) (*block.Block, error) {
	data, err := bs.db.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("block get %s: %w", hash, err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("block unmarshal %s: %w", hash, err)
	}
	return &blk, nil
}

// HasBlock reports whether a block is known at hash.
func (bs *BlockStore) HasBlock(hash types.Hash) (bool, error) {
	return bs.db.Has(blockKey(hash))
}

// GetParent returns blk's parent, or nil if blk is the genesis block.
func (bs *BlockStore) GetParent(blk *block.Block) (*block.Block, error) {
	genesisNumber, ok, err := bs.GetGenesisNumber()
	if err != nil {
		return nil, err
	}
	if ok && blk.Header.Number == genesisNumber {
		return nil, nil
	}
	return bs.GetBlock(blk.Header.PrevHash)
}

// SetHeightIndex stages block:<number> -> hash, the mutable canonical
// height index rewritten wholesale on reorg.
func (bs *BlockStore) SetHeightIndex(batch storage.Batch, number uint64, hash types.Hash) error {
	if err := batch.Put(heightKey(number), hash[:]); err != nil {
		return fmt.Errorf("height index put %d: %w", number, err)
	}
	return nil
}

// DeleteHeightIndex stages removal of block:<number>.
func (bs *BlockStore) DeleteHeightIndex(batch storage.Batch, number uint64) error {
	return batch.Delete(heightKey(number))
}

// GetBlockHashByNumber looks up the canonical hash at a height.
func (bs *BlockStore) GetBlockHashByNumber(number uint64) (types.Hash, bool, error) {
	data, err := bs.db.Get(heightKey(number))
	if err != nil {
		return types.Hash{}, false, nil
	}
	if len(data) != types.HashSize {
		return types.Hash{}, false, fmt.Errorf("corrupt height index at %d: %d bytes", number, len(data))
	}
	var h types.Hash
	copy(h[:], data)
	return h, true, nil
}

// GetBlockByNumber resolves the canonical block at a height.
func (bs *BlockStore) GetBlockByNumber(number uint64) (*block.Block, error) {
	hash, ok, err := bs.GetBlockHashByNumber(number)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no canonical block at height %d", number)
	}
	return bs.GetBlock(hash)
}

// SetHead stages head_hash -> hash.
func (bs *BlockStore) SetHead(batch storage.Batch, hash types.Hash) error {
	return batch.Put(keyHeadHash, hash[:])
}

// GetHead returns the current canonical tip. Returns the zero hash and
// false if no head has been set yet (fresh store).
func (bs *BlockStore) GetHead() (types.Hash, bool, error) {
	data, err := bs.db.Get(keyHeadHash)
	if err != nil {
		return types.Hash{}, false, nil
	}
	if len(data) != types.HashSize {
		return types.Hash{}, false, fmt.Errorf("corrupt head_hash: %d bytes", len(data))
	}
	var h types.Hash
	copy(h[:], data)
	return h, true, nil
}

// SetGenesisNumber stages GENESIS_NUMBER -> number.
func (bs *BlockStore) SetGenesisNumber(batch storage.Batch, number uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)
	return batch.Put(keyGenesisNumber, buf[:])
}

// GetGenesisNumber returns the stored genesis height, if any.
func (bs *BlockStore) GetGenesisNumber() (uint64, bool, error) {
	data, err := bs.db.Get(keyGenesisNumber)
	if err != nil {
		return 0, false, nil
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("corrupt GENESIS_NUMBER: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// SetGenesisState stages GENESIS_STATE -> the JSON-encoded genesis snapshot.
func (bs *BlockStore) SetGenesisState(batch storage.Batch, snapshot []byte) error {
	return batch.Put(keyGenesisState, snapshot)
}

// GetGenesisState returns the raw JSON genesis state snapshot.
func (bs *BlockStore) GetGenesisState() ([]byte, error) {
	data, err := bs.db.Get(keyGenesisState)
	if err != nil {
		return nil, fmt.Errorf("GENESIS_STATE get: %w", err)
	}
	return data, nil
}

// AddChild stages the append of child's hash to child:<parent_hash>.
// Readers must tolerate duplicates on re-delivery (invariant 5).
func (bs *BlockStore) AddChild(batch storage.Batch, parentHash, childHash types.Hash) error {
	existing, err := bs.GetChildHashes(parentHash)
	if err != nil {
		return err
	}
	existing = append(existing, childHash)
	buf := make([]byte, 0, len(existing)*types.HashSize)
	for _, h := range existing {
		buf = append(buf, h[:]...)
	}
	return batch.Put(childKey(parentHash), buf)
}

// GetChildHashes parses the stored bytes at child:<hash> in 32-byte chunks.
func (bs *BlockStore) GetChildHashes(hash types.Hash) ([]types.Hash, error) {
	data, err := bs.db.Get(childKey(hash))
	if err != nil {
		return nil, nil
	}
	if len(data)%types.HashSize != 0 {
		return nil, fmt.Errorf("corrupt child index for %s: %d bytes", hash, len(data))
	}
	out := make([]types.Hash, 0, len(data)/types.HashSize)
	for i := 0; i+types.HashSize <= len(data); i += types.HashSize {
		var h types.Hash
		copy(h[:], data[i:i+types.HashSize])
		out = append(out, h)
	}
	return out, nil
}

// GetChildren resolves the full blocks for every observed child of ref.
func (bs *BlockStore) GetChildren(ref BlockRef) ([]*block.Block, error) {
	hashes, err := bs.GetChildHashes(ref.Hash())
	if err != nil {
		return nil, err
	}
	out := make([]*block.Block, 0, len(hashes))
	for _, h := range hashes {
		blk, err := bs.GetBlock(h)
		if err != nil {
			continue // tolerate duplicates/races per invariant 5
		}
		out = append(out, blk)
	}
	return out, nil
}

// txLocation is the decoded value of a txindex:<tx_hash> entry.
type txLocation struct {
	Number uint64
	Index  uint32
}

// SetTxIndex stages txindex:<tx_hash> -> [number, index].
func (bs *BlockStore) SetTxIndex(batch storage.Batch, txHash types.Hash, number uint64, index int) error {
	val := make([]byte, 12)
	binary.BigEndian.PutUint64(val[:8], number)
	binary.BigEndian.PutUint32(val[8:], uint32(index))
	return batch.Put(txIndexKey(txHash), val)
}

// DeleteTxIndex stages removal of txindex:<tx_hash>.
func (bs *BlockStore) DeleteTxIndex(batch storage.Batch, txHash types.Hash) error {
	return batch.Delete(txIndexKey(txHash))
}

// GetTxIndex looks up the inclusion pointer for a canonical transaction.
func (bs *BlockStore) GetTxIndex(txHash types.Hash) (txLocation, bool, error) {
	data, err := bs.db.Get(txIndexKey(txHash))
	if err != nil {
		return txLocation{}, false, nil
	}
	if len(data) != 12 {
		return txLocation{}, false, fmt.Errorf("corrupt txindex for %s: %d bytes", txHash, len(data))
	}
	return txLocation{
		Number: binary.BigEndian.Uint64(data[:8]),
		Index:  binary.BigEndian.Uint32(data[8:]),
	}, true, nil
}
