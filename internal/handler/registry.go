// Package handler routes record-level events to per-table handlers.
//
// The embedding application registers a RecordHandler for each table it
// wants materialized. Events for any other table still create hierarchy
// rows but write no records.
package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
)

// RecordHandler materializes the four record events of one table.
//
// Each method runs inside the dispatcher's session; returning an error
// rolls back the whole dispatch, including any hierarchy rows it created.
type RecordHandler interface {
	SetRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error
	SpliceStaticData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error
	SpliceDynamicData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error
	DeleteRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error
}

var (
	ErrEmptyName     = errors.New("table name is empty")
	ErrNameTooLong   = errors.New("table name exceeds 16 bytes")
	ErrAlreadyExists = errors.New("table handler already registered")
)

// Registry maps table names to handlers. It is populated at composition
// time and read-only afterwards, so lookups need no locking.
type Registry struct {
	handlers map[string]RecordHandler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]RecordHandler)}
}

// Register adds a handler for the named table.
func (r *Registry) Register(name string, h RecordHandler) error {
	switch {
	case name == "":
		return ErrEmptyName
	case len(name) > resource.NameSize:
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, h RecordHandler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for a table name.
func (r *Registry) Lookup(name string) (RecordHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TableIDs returns one table resource ID per registered name under
// namespace, ordered by name. These become the topic[1] filter of a log
// query.
func (r *Registry) TableIDs(namespace [resource.NamespaceSize]byte) []resource.ID {
	names := r.Names()
	ids := make([]resource.ID, 0, len(names))
	for _, name := range names {
		// Register already bounded the name, so Encode cannot fail.
		ids = append(ids, resource.MustEncode(resource.Table, namespace[:], name))
	}
	return ids
}

// Call invokes the method of h matching kind.
func Call(ctx context.Context, h RecordHandler, kind codec.Kind, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	switch kind {
	case codec.SetRecord:
		return h.SetRecord(ctx, sess, table, params, block)
	case codec.SpliceStaticData:
		return h.SpliceStaticData(ctx, sess, table, params, block)
	case codec.SpliceDynamicData:
		return h.SpliceDynamicData(ctx, sess, table, params, block)
	case codec.DeleteRecord:
		return h.DeleteRecord(ctx, sess, table, params, block)
	default:
		return fmt.Errorf("call handler: unknown event kind %s", kind)
	}
}
