package handler

import (
	"context"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/store"
)

// Func is the signature shared by every RecordHandler method.
type Func func(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error

// Funcs adapts plain functions to a RecordHandler. A nil field makes the
// corresponding event a no-op.
type Funcs struct {
	OnSetRecord         Func
	OnSpliceStaticData  Func
	OnSpliceDynamicData Func
	OnDeleteRecord      Func
}

var _ RecordHandler = Funcs{}

func (f Funcs) SetRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	return call(ctx, f.OnSetRecord, sess, table, params, block)
}

func (f Funcs) SpliceStaticData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	return call(ctx, f.OnSpliceStaticData, sess, table, params, block)
}

func (f Funcs) SpliceDynamicData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	return call(ctx, f.OnSpliceDynamicData, sess, table, params, block)
}

func (f Funcs) DeleteRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	return call(ctx, f.OnDeleteRecord, sess, table, params, block)
}

func call(ctx context.Context, fn Func, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, sess, table, params, block)
}
