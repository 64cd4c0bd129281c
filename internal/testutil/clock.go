package testutil

import "sync"

// BlockClock hands out log positions for fabricated logs: a block number
// and a log index that restarts at zero in every block.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type BlockClock struct {
	mu    sync.Mutex
	block uint64
	index uint
}

// NewBlockClock creates a clock positioned at block.
//
// The first call to Next() returns (block, 0).
func NewBlockClock(block uint64) *BlockClock {
	return &BlockClock{block: block}
}

// Next returns the position for the next log in the current block.
func (c *BlockClock) Next() (block uint64, index uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	block, index = c.block, c.index
	c.index++
	return block, index
}

// Advance moves to block n and resets the log index. Moving backwards is
// allowed so tests can fabricate out-of-order delivery.
func (c *BlockClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = n
	c.index = 0
}

// Block returns the current block without producing a position.
func (c *BlockClock) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}
