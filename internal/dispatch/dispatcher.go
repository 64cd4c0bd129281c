// Package dispatch applies decoded store events to the local mirror.
//
// Every event kind runs the same skeleton: resolve the table ID, get or
// create the World, Namespace and Table rows, then hand the event to the
// handler registered for the table name. The whole skeleton runs in one
// store session, so a failed dispatch leaves no partial rows behind.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/handler"
	"github.com/roach88/mudsync/internal/hierarchy"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
)

// ErrInvalidTableID is returned when an event's tableId parameter is absent,
// has the wrong type, or does not decode to a table resource.
var ErrInvalidTableID = errors.New("invalid table id")

// ErrRemovedLog is returned by ApplyLog for a log dropped by a chain reorg.
var ErrRemovedLog = errors.New("log removed by reorg")

// Dispatcher routes store events through the hierarchy manager to the
// handler registry.
//
// Dispatcher is safe for concurrent use. Concurrent dispatches are
// serialized by the store's single writer session.
type Dispatcher struct {
	store     *store.Store
	hierarchy *hierarchy.Manager
	registry  *handler.Registry
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a Dispatcher that writes to s. A nil registry materializes no
// records but still creates hierarchy rows.
func New(s *store.Store, h *hierarchy.Manager, r *handler.Registry, opts ...Option) *Dispatcher {
	if r == nil {
		r = handler.NewRegistry()
	}
	d := &Dispatcher{
		store:     s,
		hierarchy: h,
		registry:  r,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the handler registry used for record materialization.
func (d *Dispatcher) Registry() *handler.Registry {
	return d.registry
}

// Apply dispatches one event of kind for the world at address on chainID.
func (d *Dispatcher) Apply(ctx context.Context, chainID uint64, address common.Address, kind codec.Kind, params codec.Params, block uint64) error {
	res, err := tableResource(params)
	if err != nil {
		return err
	}

	return d.store.WithSession(ctx, func(sess *store.Session) error {
		world, err := d.hierarchy.GetOrCreateWorld(ctx, sess, chainID, address, block)
		if err != nil {
			return err
		}
		ns, err := d.hierarchy.GetOrCreateNamespace(ctx, sess, res, world, block)
		if err != nil {
			return err
		}
		table, err := d.hierarchy.GetOrCreateTable(ctx, sess, res, ns)
		if err != nil {
			return err
		}

		h, ok := d.registry.Lookup(table.Name)
		if !ok {
			return nil
		}
		if err := handler.Call(ctx, h, kind, sess, table, params, block); err != nil {
			return fmt.Errorf("%s %s: %w", kind, table.Name, err)
		}
		return nil
	})
}

// ApplyEvent dispatches an already decoded event.
func (d *Dispatcher) ApplyEvent(ctx context.Context, chainID uint64, ev codec.Event) error {
	return d.Apply(ctx, chainID, ev.Address, ev.Kind, ev.Params, ev.BlockNumber)
}

// ApplyLog decodes a raw log and dispatches it.
func (d *Dispatcher) ApplyLog(ctx context.Context, chainID uint64, log types.Log) error {
	if log.Removed {
		return fmt.Errorf("%w: block %d index %d", ErrRemovedLog, log.BlockNumber, log.Index)
	}
	ev, err := codec.Decode(log)
	if err != nil {
		return err
	}
	return d.ApplyEvent(ctx, chainID, ev)
}

// tableResource extracts and decodes the tableId parameter.
func tableResource(params codec.Params) (resource.Resource, error) {
	raw, ok := params[codec.ParamTableID]
	if !ok {
		return resource.Resource{}, fmt.Errorf("%w: missing %s", ErrInvalidTableID, codec.ParamTableID)
	}
	id, ok := raw.([32]byte)
	if !ok {
		return resource.Resource{}, fmt.Errorf("%w: %s is %T", ErrInvalidTableID, codec.ParamTableID, raw)
	}
	res, err := resource.Decode(id[:])
	if err != nil {
		return resource.Resource{}, fmt.Errorf("%w: %v", ErrInvalidTableID, err)
	}
	if res.Type != resource.Table {
		return resource.Resource{}, fmt.Errorf("%w: resource type %s", ErrInvalidTableID, res.Type)
	}
	return res, nil
}
