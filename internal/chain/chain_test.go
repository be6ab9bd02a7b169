package chain

import (
	"testing"

	"github.com/ethcore-labs/ethcore-chain/pkg/tx"
)

func TestInitGenesis_SetsHeadAndGenesisIdentity(t *testing.T) {
	c, _ := newTestChain(t)

	head := c.Head()
	if head.IsZero() {
		t.Fatal("head is zero after InitGenesis")
	}
	if c.genesisHash != head {
		t.Errorf("genesisHash = %s, want %s", c.genesisHash, head)
	}
	if c.genesisNumber != 0 {
		t.Errorf("genesisNumber = %d, want 0", c.genesisNumber)
	}
}

func TestInitGenesis_RefusesWhenHeadAlreadyStored(t *testing.T) {
	c, _ := newTestChain(t)

	gen := defaultTestGenesis()
	if err := c.InitGenesis(gen); err == nil {
		t.Error("expected error re-initializing genesis on a chain with a stored head")
	}
}

// Scenario 1 (linear growth): add a single block extending genesis and
// check head, the height index, and score move together.
func TestAddBlock_LinearGrowth(t *testing.T) {
	c, _ := newTestChain(t)

	genesisBlk, err := c.GetBlock(c.Head())
	if err != nil {
		t.Fatalf("GetBlock(genesis): %v", err)
	}
	genesisDifficulty := genesisBlk.Header.Difficulty

	a := buildBlock(genesisBlk, genesisDifficulty+1000, 1001, testAddr(1), nil, nil)

	ok, err := c.AddBlock(a, 2000)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if !ok {
		t.Fatal("AddBlock returned false for a valid extension of head")
	}

	if c.Head() != a.Hash() {
		t.Errorf("head = %s, want %s", c.Head(), a.Hash())
	}
	storedHash, ok, err := c.blocks.GetBlockHashByNumber(1)
	if err != nil || !ok {
		t.Fatalf("GetBlockHashByNumber(1): ok=%v err=%v", ok, err)
	}
	if storedHash != a.Hash() {
		t.Errorf("block:1 = %s, want %s", storedHash, a.Hash())
	}

	genesisScore, err := c.blocks.GetScore(genesisBlk)
	if err != nil {
		t.Fatalf("GetScore(genesis): %v", err)
	}
	aScore, err := c.blocks.GetScore(a)
	if err != nil {
		t.Fatalf("GetScore(a): %v", err)
	}
	low := genesisScore + a.Header.Difficulty
	high := low + a.Header.Difficulty/1_000_000
	if aScore < low || aScore > high {
		t.Errorf("score(a) = %d, want in [%d, %d]", aScore, low, high)
	}
}

// Scenario 2 (future block deferred): a block timestamped ahead of now is
// queued rather than applied, and is ingested once now catches up.
func TestAddBlock_FutureTimestampDeferred(t *testing.T) {
	c, _ := newTestChain(t)
	genesisBlk, _ := c.GetBlock(c.Head())
	headBefore := c.Head()

	b := buildBlock(genesisBlk, genesisBlk.Header.Difficulty, 1030, testAddr(2), nil, nil)

	ok, err := c.AddBlock(b, 1000)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if ok {
		t.Error("AddBlock on a future-dated block should return false")
	}
	if c.Head() != headBefore {
		t.Error("head moved on a deferred future block")
	}
	if len(c.queues.timeQueue) != 1 {
		t.Fatalf("time_queue length = %d, want 1", len(c.queues.timeQueue))
	}

	if err := c.ProcessTimeQueue(1030); err != nil {
		t.Fatalf("ProcessTimeQueue: %v", err)
	}
	if c.Head() != b.Hash() {
		t.Errorf("head = %s after draining time queue, want %s", c.Head(), b.Hash())
	}
	if len(c.queues.timeQueue) != 0 {
		t.Errorf("time_queue not drained, length = %d", len(c.queues.timeQueue))
	}
}

// Scenario 3 (orphan delivery): a child arriving before its parent is
// queued, and surfaces once the parent is ingested and the parent queue
// is drained.
func TestAddBlock_OrphanThenParentQueueDrain(t *testing.T) {
	c, _ := newTestChain(t)
	genesisBlk, _ := c.GetBlock(c.Head())

	c1 := buildBlock(genesisBlk, genesisBlk.Header.Difficulty, 1001, testAddr(3), nil, nil)
	c2 := buildBlock(c1, genesisBlk.Header.Difficulty, 1002, testAddr(4), nil, nil)

	ok, err := c.AddBlock(c2, 2000)
	if err != nil {
		t.Fatalf("AddBlock(c2): %v", err)
	}
	if ok {
		t.Error("AddBlock(c2) should return false before its parent is known")
	}
	if waiting := c.queues.parentQueue[c1.Hash()]; len(waiting) != 1 {
		t.Fatalf("parent_queue[c1] length = %d, want 1", len(waiting))
	}

	ok, err = c.AddBlock(c1, 2000)
	if err != nil {
		t.Fatalf("AddBlock(c1): %v", err)
	}
	if !ok {
		t.Fatal("AddBlock(c1) should succeed")
	}

	if err := c.ProcessParentQueue(2000); err != nil {
		t.Fatalf("ProcessParentQueue: %v", err)
	}
	if c.Head() != c2.Hash() {
		t.Errorf("head = %s, want %s", c.Head(), c2.Hash())
	}
	if len(c.queues.parentQueue) != 0 {
		t.Errorf("parent_queue not drained: %d buckets remain", len(c.queues.parentQueue))
	}
}

func TestGetBlockByNumber_AndGetChain(t *testing.T) {
	c, _ := newTestChain(t)
	genesisBlk, _ := c.GetBlock(c.Head())

	a := buildBlock(genesisBlk, genesisBlk.Header.Difficulty, 1001, testAddr(5), nil, nil)
	if _, err := c.AddBlock(a, 2000); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	b := buildBlock(a, genesisBlk.Header.Difficulty, 1002, testAddr(6), nil, nil)
	if _, err := c.AddBlock(b, 2000); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	chain, err := c.GetChain(0, 10)
	if err != nil {
		t.Fatalf("GetChain: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("GetChain(0,10) length = %d, want 3", len(chain))
	}
	if chain[0].Hash() != genesisBlk.Hash() || chain[1].Hash() != a.Hash() || chain[2].Hash() != b.Hash() {
		t.Error("GetChain did not return blocks in ascending height order")
	}

	got, err := c.GetBlockByNumber(1)
	if err != nil {
		t.Fatalf("GetBlockByNumber(1): %v", err)
	}
	if got.Hash() != a.Hash() {
		t.Errorf("GetBlockByNumber(1) = %s, want %s", got.Hash(), a.Hash())
	}
}

func TestAddBlock_ExecutionFailureDoesNotMutateHead(t *testing.T) {
	c, _ := newTestChain(t)
	genesisBlk, _ := c.GetBlock(c.Head())
	headBefore := c.Head()

	// testAddr(9) has no balance, so this spend is rejected by the fake
	// backend's balance check.
	unbackedSpend := makeTx(0, 1, 21000, testAddr(9), testAddr(10), 500)
	blk := buildBlock(genesisBlk, genesisBlk.Header.Difficulty, 1001, testAddr(7), []*tx.Transaction{unbackedSpend}, nil)

	ok, err := c.AddBlock(blk, 2000)
	if err != nil {
		t.Fatalf("AddBlock should report execution failure as (false, nil), got error: %v", err)
	}
	if ok {
		t.Error("AddBlock should return false when the execution layer rejects the block")
	}
	if c.Head() != headBefore {
		t.Error("head moved despite an execution failure")
	}
}
