// Package syncer keeps the local mirror in step with a world contract: a
// checkpointed backfill over historical logs followed by a live
// subscription, every log applied through the dispatcher.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mudsync/internal/dispatch"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
	"github.com/roach88/mudsync/internal/telemetry"
)

// ErrChainIDNotFound is returned when the node answers the chain id request
// without a value.
var ErrChainIDNotFound = errors.New("chain id not found")

// LogSource is the node interface the syncer needs. *ethclient.Client
// satisfies it.
type LogSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// DefaultBufferSize is the capacity of the live log channel. Logs pushed
// while a backfill runs wait here.
const DefaultBufferSize = 1024

// DefaultDispatchLimit bounds the live dispatches in flight. Further logs
// wait in the channel buffer.
const DefaultDispatchLimit = 16

// Syncer drives backfill and live ingestion for one log source.
type Syncer struct {
	source     LogSource
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	blockRange uint64
	bufferSize int
	inFlight   int
	logger     *slog.Logger

	mu      sync.Mutex
	chainID uint64
	hasID   bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithBlockRange splits backfill queries into windows of n blocks. Zero
// issues a single query up to the latest block.
func WithBlockRange(n uint64) Option {
	return func(s *Syncer) {
		s.blockRange = n
	}
}

// WithBufferSize sets the capacity of the live log channel.
func WithBufferSize(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithDispatchLimit sets how many live logs may be dispatched at once.
func WithDispatchLimit(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.inFlight = n
		}
	}
}

// WithLogger sets the logger for sync progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// New creates a Syncer reading from src. The store is consulted for
// checkpoints; all writes go through d.
func New(src LogSource, d *dispatch.Dispatcher, st *store.Store, opts ...Option) *Syncer {
	s := &Syncer{
		source:     src,
		dispatcher: d,
		store:      st,
		bufferSize: DefaultBufferSize,
		inFlight:   DefaultDispatchLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChainID resolves the chain id with one round trip to the node. A
// successful answer is remembered for the syncer's lifetime.
func (s *Syncer) ChainID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasID {
		return s.chainID, nil
	}

	id, err := s.source.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain id: %w", err)
	}
	if id == nil {
		return 0, ErrChainIDNotFound
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrChainIDNotFound, id)
	}
	s.chainID, s.hasID = id.Uint64(), true
	return s.chainID, nil
}

// Position is the (block, log index) of a log.
type Position struct {
	Block uint64
	Index uint
}

func positionOf(l types.Log) Position {
	return Position{Block: l.BlockNumber, Index: l.Index}
}

// After reports whether p is strictly later than q.
func (p Position) After(q Position) bool {
	if p.Block != q.Block {
		return p.Block > q.Block
	}
	return p.Index > q.Index
}

// BackfillResult summarizes one backfill pass.
type BackfillResult struct {
	// From is the first block queried, the namespace checkpoint.
	From uint64

	// Logs is the number of logs dispatched, applied or dropped.
	Logs int

	// Failed is the number of logs dropped by the dispatcher.
	Failed int

	// Last is the position of the last log dispatched, valid when Logs > 0.
	Last Position
}

// Backfill applies every historical log from the namespace checkpoint
// through the latest block, one at a time in source order. A failing log is
// dropped; a failing query aborts the pass. Cancelling ctx stops the pass
// before the next log and returns ctx.Err(); a dispatch already started runs
// to completion.
func (s *Syncer) Backfill(ctx context.Context, address common.Address, namespace [resource.NamespaceSize]byte) (BackfillResult, error) {
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return BackfillResult{}, err
	}

	nsHex := resource.Resource{Namespace: namespace}.NamespaceHex()
	from, _, err := s.store.NamespaceCheckpoint(ctx, chainID, address.Hex(), nsHex)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("backfill: %w", err)
	}

	res := BackfillResult{From: from}
	q := s.Filter(address, namespace)
	dctx := context.WithoutCancel(ctx)
	apply := func(logs []types.Log) error {
		for _, l := range logs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.dispatcher.ApplySafe(dctx, chainID, l) {
				res.Failed++
			}
			res.Logs++
			res.Last = positionOf(l)
		}
		return nil
	}

	if s.blockRange == 0 {
		q.FromBlock = new(big.Int).SetUint64(from)
		logs, err := s.source.FilterLogs(ctx, q)
		if err != nil {
			return res, fmt.Errorf("backfill: filter logs from %d: %w", from, err)
		}
		if err := apply(logs); err != nil {
			return res, err
		}
	} else {
		head, err := s.source.BlockNumber(ctx)
		if err != nil {
			return res, fmt.Errorf("backfill: block number: %w", err)
		}
		for start := from; start <= head; start += s.blockRange {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			end := min(start+s.blockRange-1, head)
			q.FromBlock = new(big.Int).SetUint64(start)
			q.ToBlock = new(big.Int).SetUint64(end)
			logs, err := s.source.FilterLogs(ctx, q)
			if err != nil {
				return res, fmt.Errorf("backfill: filter logs %d-%d: %w", start, end, err)
			}
			if err := apply(logs); err != nil {
				return res, err
			}
		}
	}

	telemetry.BackfillLogs.Set(float64(res.Logs))
	s.logger.Info("backfill complete",
		"namespace", nsHex,
		"from", from,
		"logs", res.Logs,
		"failed", res.Failed,
	)
	return res, nil
}

// Subscribe applies live logs until ctx is done or the subscription fails.
// Each log is dispatched concurrently; Subscribe waits for in-flight
// dispatches before returning and never cancels them.
func (s *Syncer) Subscribe(ctx context.Context, address common.Address, namespace [resource.NamespaceSize]byte) error {
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return err
	}
	ch := make(chan types.Log, s.bufferSize)
	sub, err := s.source.SubscribeFilterLogs(ctx, s.Filter(address, namespace), ch)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()
	return s.consume(ctx, chainID, sub, ch, nil)
}

// Run subscribes, backfills, then continues live. Logs pushed during the
// backfill are buffered and applied afterwards, skipping any the backfill
// already returned. Run returns nil once ctx is done.
func (s *Syncer) Run(ctx context.Context, address common.Address, namespace [resource.NamespaceSize]byte) error {
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return err
	}
	ch := make(chan types.Log, s.bufferSize)
	sub, err := s.source.SubscribeFilterLogs(ctx, s.Filter(address, namespace), ch)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	res, err := s.Backfill(ctx, address, namespace)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	var seen *Position
	if res.Logs > 0 {
		seen = &res.Last
	}
	s.logger.Info("following live logs", "address", address.Hex())
	return s.consume(ctx, chainID, sub, ch, seen)
}

// consume dispatches logs from ch until ctx is done or sub fails. Logs at
// or before seen are skipped. At most s.inFlight dispatches run at once.
func (s *Syncer) consume(ctx context.Context, chainID uint64, sub ethereum.Subscription, ch <-chan types.Log, seen *Position) error {
	var g errgroup.Group
	g.SetLimit(s.inFlight)
	defer g.Wait()

	dctx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				return nil
			}
			return fmt.Errorf("subscription: %w", err)
		case l := <-ch:
			if seen != nil && !positionOf(l).After(*seen) {
				s.logger.Debug("skipping backfilled log", "block", l.BlockNumber, "index", l.Index)
				continue
			}
			g.Go(func() error {
				s.dispatcher.ApplySafe(dctx, chainID, l)
				return nil
			})
		}
	}
}
