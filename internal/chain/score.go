package chain

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/ethcore-labs/ethcore-chain/internal/storage"
	"github.com/ethcore-labs/ethcore-chain/pkg/block"
	"github.com/ethcore-labs/ethcore-chain/pkg/types"
)

// GetScore returns the cumulative difficulty anchored at genesis (score 0)
// for blk, computed recursively per §4.C: score(b) = score(parent(b)) +
// b.difficulty + J(b), where J(b) is drawn uniformly from [0,
// b.difficulty/10^6] and memoized once per hash so repeat calls are
// stable. On a missing parent it falls back to the stored score of
// blk.PrevHash if one exists, otherwise 0 — this lets scoring proceed for
// blocks stored ahead of a gap in the parent chain (e.g. mid-sync).
func (bs *BlockStore) GetScore(blk *block.Block) (uint64, error) {
	hash := blk.Hash()
	if stored, ok, err := bs.getStoredScore(hash); err != nil {
		return 0, err
	} else if ok {
		return stored, nil
	}

	parentScore, err := bs.scoreOfParent(blk)
	if err != nil {
		return 0, err
	}

	jitter := scoreJitter(blk.Header.Difficulty)
	score := parentScore + blk.Header.Difficulty + jitter

	batch := bs.NewBatch()
	if err := bs.putScore(batch, hash, score); err != nil {
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit score for %s: %w", hash, err)
	}
	return score, nil
}

// scoreOfParent resolves the parent's score, or falls back to a previously
// stored score keyed directly by blk.PrevHash when the parent block itself
// isn't resolvable (§4.C "on missing parent, fall back to score:<prevhash>
// if present, otherwise return 0").
func (bs *BlockStore) scoreOfParent(blk *block.Block) (uint64, error) {
	parent, err := bs.GetParent(blk)
	if err != nil {
		if stored, ok, serr := bs.getStoredScore(blk.Header.PrevHash); serr == nil && ok {
			return stored, nil
		}
		return 0, nil
	}
	if parent == nil {
		return 0, nil // blk is genesis.
	}
	return bs.GetScore(parent)
}

// scoreJitter draws J(b) uniformly from [0, difficulty/10^6].
func scoreJitter(difficulty uint64) uint64 {
	span := difficulty / 1_000_000
	if span == 0 {
		return 0
	}
	return rand.Uint64N(span + 1)
}

func (bs *BlockStore) getStoredScore(hash types.Hash) (uint64, bool, error) {
	data, err := bs.db.Get(scoreKey(hash))
	if err != nil {
		return 0, false, nil
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("corrupt score entry for %s: %d bytes", hash, len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (bs *BlockStore) putScore(batch storage.Batch, hash types.Hash, score uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], score)
	if err := batch.Put(scoreKey(hash), buf[:]); err != nil {
		return fmt.Errorf("put score for %s: %w", hash, err)
	}
	return nil
}
