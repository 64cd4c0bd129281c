package testutil

import (
	"context"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// FakeChain is an in-memory log source. Historical logs are served by
// FilterLogs in (block, index) order; Push delivers logs to live
// subscribers whose filter matches.
type FakeChain struct {
	mu      sync.Mutex
	chainID *big.Int
	head    uint64
	logs    []types.Log
	subs    map[*fakeSub]struct{}
	queries []ethereum.FilterQuery

	// Error injection. A non-nil error is returned by the next matching call.
	FilterErr    error
	SubscribeErr error
	BlockErr     error
}

type fakeSub struct {
	query ethereum.FilterQuery
	feed  chan types.Log
	fail  chan error
}

// NewFakeChain creates a chain reporting chainID. A nil chainID makes
// ChainID return (nil, nil), as a misbehaving node might.
func NewFakeChain(chainID *big.Int) *FakeChain {
	return &FakeChain{chainID: chainID, subs: make(map[*fakeSub]struct{})}
}

// Append adds logs to the chain history and raises the head to the
// highest block seen.
func (c *FakeChain) Append(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, logs...)
	slices.SortStableFunc(c.logs, func(a, b types.Log) int {
		if a.BlockNumber != b.BlockNumber {
			if a.BlockNumber < b.BlockNumber {
				return -1
			}
			return 1
		}
		return int(a.Index) - int(b.Index)
	})
	for _, l := range logs {
		if l.BlockNumber > c.head {
			c.head = l.BlockNumber
		}
	}
}

// SetHead sets the block number reported by BlockNumber.
func (c *FakeChain) SetHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = n
}

// Push delivers log to every subscriber whose filter matches. It blocks
// until each matching subscriber has accepted the log into its buffer.
func (c *FakeChain) Push(log types.Log) {
	c.mu.Lock()
	var targets []*fakeSub
	for s := range c.subs {
		if matches(s.query, log, 0) {
			targets = append(targets, s)
		}
	}
	c.mu.Unlock()

	for _, s := range targets {
		s.feed <- log
	}
}

// FailSubscriptions ends every live subscription with err.
func (c *FakeChain) FailSubscriptions(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		select {
		case s.fail <- err:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (c *FakeChain) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Queries returns every filter passed to FilterLogs, in call order.
func (c *FakeChain) Queries() []ethereum.FilterQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.queries)
}

// ChainID implements the log source interface.
func (c *FakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.chainID == nil {
		return nil, nil
	}
	return new(big.Int).Set(c.chainID), nil
}

// BlockNumber implements the log source interface.
func (c *FakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockErr != nil {
		return 0, c.BlockErr
	}
	return c.head, ctx.Err()
}

// FilterLogs implements the log source interface.
func (c *FakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	if c.FilterErr != nil {
		return nil, c.FilterErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []types.Log
	for _, l := range c.logs {
		if matches(q, l, c.head) {
			out = append(out, l)
		}
	}
	return out, nil
}

// SubscribeFilterLogs implements the log source interface.
func (c *FakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}

	s := &fakeSub{query: q, feed: make(chan types.Log, 64), fail: make(chan error, 1)}
	c.subs[s] = struct{}{}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			c.mu.Lock()
			delete(c.subs, s)
			c.mu.Unlock()
		}()
		for {
			select {
			case l := <-s.feed:
				select {
				case ch <- l:
				case <-quit:
					return nil
				}
			case err := <-s.fail:
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// matches applies the address, topic and block range rules of an
// eth_getLogs filter. A nil ToBlock means head; head 0 disables the check.
func matches(q ethereum.FilterQuery, l types.Log, head uint64) bool {
	if len(q.Addresses) > 0 && !slices.Contains(q.Addresses, l.Address) {
		return false
	}
	for i, want := range q.Topics {
		if len(want) == 0 {
			continue
		}
		if i >= len(l.Topics) || !slices.Contains(want, l.Topics[i]) {
			return false
		}
	}
	if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	to := head
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}
	if to > 0 && l.BlockNumber > to {
		return false
	}
	return true
}

// Close tells active subscriptions the connection is gone. The chain can
// still be queried and subscribed to afterwards.
func (c *FakeChain) Close() {
	c.FailSubscriptions(nil)
}
