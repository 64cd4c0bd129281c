package handler

import (
	"context"
	"fmt"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/protocol"
	"github.com/roach88/mudsync/internal/store"
	"github.com/roach88/mudsync/internal/telemetry"
)

// SchemaHandler mirrors a table's records generically: it keeps the raw
// static, encoded-lengths and dynamic blobs of each record and, when a
// schema is configured, re-decodes them into named fields after every
// mutation.
type SchemaHandler struct {
	schema protocol.Schema
}

var _ RecordHandler = (*SchemaHandler)(nil)

// NewSchemaHandler returns a handler for records laid out as schema.
// The zero Schema stores blobs only.
func NewSchemaHandler(schema protocol.Schema) *SchemaHandler {
	return &SchemaHandler{schema: schema}
}

// SetRecord upserts the record with all three blobs from the event.
func (h *SchemaHandler) SetRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	keys, err := params.KeyTuple()
	if err != nil {
		return Classify(table.Name, err)
	}
	static, err := params.Bytes(codec.ParamStaticData)
	if err != nil {
		return Classify(table.Name, err)
	}
	lengths, err := params.Bytes32(codec.ParamEncodedLengths)
	if err != nil {
		return Classify(table.Name, err)
	}
	dynamic, err := params.Bytes(codec.ParamDynamicData)
	if err != nil {
		return Classify(table.Name, err)
	}

	key, err := ir.RecordKey(table.WorldKey, table.Namespace, table.Name, keys)
	if err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	return h.put(ctx, sess, table, ir.Record{
		Key:            key,
		TableID:        table.ID,
		KeyTuple:       keys,
		StaticData:     static,
		EncodedLengths: lengths[:],
		DynamicData:    dynamic,
		BlockNumber:    block,
	})
}

// SpliceStaticData overwrites part of the static blob, zero-extending it
// if needed. A splice on an absent record starts from zeroed storage.
func (h *SchemaHandler) SpliceStaticData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	keys, err := params.KeyTuple()
	if err != nil {
		return Classify(table.Name, err)
	}
	start, err := params.Uint(codec.ParamStart)
	if err != nil {
		return Classify(table.Name, err)
	}
	data, err := params.Bytes(codec.ParamData)
	if err != nil {
		return Classify(table.Name, err)
	}

	rec, err := h.load(ctx, sess, table, keys)
	if err != nil {
		return err
	}
	static, err := protocol.SpliceStatic(rec.StaticData, start, data)
	if err != nil {
		return Classify(table.Name, err)
	}
	rec.StaticData = static
	rec.BlockNumber = block
	return h.put(ctx, sess, table, rec)
}

// SpliceDynamicData replaces a range of the dynamic blob and stores the new
// encoded lengths carried by the event. The spliced blob must be as long as
// those lengths total. A mismatch on a record already written at this or a
// later block is a re-applied splice and is skipped.
func (h *SchemaHandler) SpliceDynamicData(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	keys, err := params.KeyTuple()
	if err != nil {
		return Classify(table.Name, err)
	}
	start, err := params.Uint(codec.ParamStart)
	if err != nil {
		return Classify(table.Name, err)
	}
	deleteCount, err := params.Uint(codec.ParamDeleteCount)
	if err != nil {
		return Classify(table.Name, err)
	}
	lengths, err := params.Bytes32(codec.ParamEncodedLengths)
	if err != nil {
		return Classify(table.Name, err)
	}
	data, err := params.Bytes(codec.ParamData)
	if err != nil {
		return Classify(table.Name, err)
	}

	el, err := protocol.ParseEncodedLengths(lengths[:])
	if err != nil {
		return Classify(table.Name, err)
	}

	rec, err := h.load(ctx, sess, table, keys)
	if err != nil {
		return err
	}
	dynamic, err := protocol.SpliceDynamic(rec.DynamicData, start, deleteCount, data)
	if err != nil {
		return Classify(table.Name, err)
	}
	if uint64(len(dynamic)) != el.Total {
		if rec.BlockNumber >= block && block > 0 {
			// Already applied by an earlier pass over this block.
			return nil
		}
		return Classify(table.Name, fmt.Errorf("%w: splice leaves %d dynamic bytes, encoded lengths say %d",
			protocol.ErrInvalidNativeValue, len(dynamic), el.Total))
	}
	rec.DynamicData = dynamic
	rec.EncodedLengths = lengths[:]
	rec.BlockNumber = block
	return h.put(ctx, sess, table, rec)
}

// DeleteRecord removes the record. Deleting an absent record is not an error.
func (h *SchemaHandler) DeleteRecord(ctx context.Context, sess *store.Session, table ir.Table, params codec.Params, block uint64) error {
	keys, err := params.KeyTuple()
	if err != nil {
		return Classify(table.Name, err)
	}
	key, err := ir.RecordKey(table.WorldKey, table.Namespace, table.Name, keys)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	deleted, err := sess.DeleteRecord(ctx, key)
	if err != nil {
		return err
	}
	if deleted {
		telemetry.RecordWrite("delete")
	}
	return nil
}

// load returns the stored record for keys, or a zeroed one if absent.
func (h *SchemaHandler) load(ctx context.Context, sess *store.Session, table ir.Table, keys [][32]byte) (ir.Record, error) {
	key, err := ir.RecordKey(table.WorldKey, table.Namespace, table.Name, keys)
	if err != nil {
		return ir.Record{}, fmt.Errorf("load record: %w", err)
	}
	rec, ok, err := sess.GetRecord(ctx, key)
	if err != nil {
		return ir.Record{}, err
	}
	if ok {
		return rec, nil
	}
	return ir.Record{
		Key:            key,
		TableID:        table.ID,
		KeyTuple:       keys,
		StaticData:     make([]byte, h.schema.StaticSize()),
		EncodedLengths: make([]byte, 32),
	}, nil
}

// put decodes fields when a schema is configured and upserts rec.
func (h *SchemaHandler) put(ctx context.Context, sess *store.Session, table ir.Table, rec ir.Record) error {
	if !h.schema.Empty() {
		fields, err := h.schema.Decode(rec.KeyTuple, rec.StaticData, rec.EncodedLengths, rec.DynamicData)
		if err != nil {
			return Classify(table.Name, err)
		}
		rec.Fields = fields
	}
	if err := sess.PutRecord(ctx, rec); err != nil {
		return err
	}
	telemetry.RecordWrite("put")
	return nil
}
