// Package testutil provides fabricated chains and logs for tests.
package testutil

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/resource"
)

// LogBuilder fabricates store event logs for one world and namespace,
// ABI-encoded with the production codec. Each log takes the next position
// from the builder's clock.
type LogBuilder struct {
	t         testing.TB
	address   common.Address
	namespace [resource.NamespaceSize]byte
	clock     *BlockClock
}

// NewLogBuilder creates a builder starting at block 1.
func NewLogBuilder(t testing.TB, address common.Address, namespace [resource.NamespaceSize]byte) *LogBuilder {
	return &LogBuilder{t: t, address: address, namespace: namespace, clock: NewBlockClock(1)}
}

// At moves the builder to block n.
func (b *LogBuilder) At(n uint64) *LogBuilder {
	b.clock.Advance(n)
	return b
}

// Address returns the world address stamped on every log.
func (b *LogBuilder) Address() common.Address {
	return b.address
}

// TableID returns the resource ID of table name in the builder's namespace.
func (b *LogBuilder) TableID(name string) [32]byte {
	b.t.Helper()
	id, err := resource.Encode(resource.Table, b.namespace[:], name)
	if err != nil {
		b.t.Fatalf("encode table id %q: %v", name, err)
	}
	return id
}

// SetRecord builds a Store_SetRecord log.
func (b *LogBuilder) SetRecord(table string, keys [][32]byte, static []byte, lengths [32]byte, dynamic []byte) types.Log {
	b.t.Helper()
	return b.Raw(codec.SetRecord, codec.Params{
		codec.ParamTableID:        b.TableID(table),
		codec.ParamKeyTuple:       keys,
		codec.ParamStaticData:     static,
		codec.ParamEncodedLengths: lengths,
		codec.ParamDynamicData:    dynamic,
	})
}

// SpliceStatic builds a Store_SpliceStaticData log.
func (b *LogBuilder) SpliceStatic(table string, keys [][32]byte, start uint64, data []byte) types.Log {
	b.t.Helper()
	return b.Raw(codec.SpliceStaticData, codec.Params{
		codec.ParamTableID:  b.TableID(table),
		codec.ParamKeyTuple: keys,
		codec.ParamStart:    new(big.Int).SetUint64(start),
		codec.ParamData:     data,
	})
}

// SpliceDynamic builds a Store_SpliceDynamicData log.
func (b *LogBuilder) SpliceDynamic(table string, keys [][32]byte, start, deleteCount uint64, lengths [32]byte, data []byte) types.Log {
	b.t.Helper()
	return b.Raw(codec.SpliceDynamicData, codec.Params{
		codec.ParamTableID:        b.TableID(table),
		codec.ParamKeyTuple:       keys,
		codec.ParamStart:          new(big.Int).SetUint64(start),
		codec.ParamDeleteCount:    new(big.Int).SetUint64(deleteCount),
		codec.ParamEncodedLengths: lengths,
		codec.ParamData:           data,
	})
}

// Delete builds a Store_DeleteRecord log.
func (b *LogBuilder) Delete(table string, keys [][32]byte) types.Log {
	b.t.Helper()
	return b.Raw(codec.DeleteRecord, codec.Params{
		codec.ParamTableID:  b.TableID(table),
		codec.ParamKeyTuple: keys,
	})
}

// Raw encodes an event of kind from explicit params, for logs whose
// tableId is not a table of the builder's namespace.
func (b *LogBuilder) Raw(kind codec.Kind, params codec.Params) types.Log {
	b.t.Helper()
	log, err := codec.Encode(kind, b.address, params)
	if err != nil {
		b.t.Fatalf("encode %s: %v", kind, err)
	}
	log.BlockNumber, log.Index = b.clock.Next()
	log.BlockHash = blockHash(log.BlockNumber)
	return log
}

// Key returns a key tuple word holding n right-aligned, the layout of any
// uintN key.
func Key(n uint64) [32]byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], n)
	return w
}

// Keys returns a key tuple of right-aligned words.
func Keys(ns ...uint64) [][32]byte {
	out := make([][32]byte, len(ns))
	for i, n := range ns {
		out[i] = Key(n)
	}
	return out
}

func blockHash(n uint64) common.Hash {
	var h common.Hash
	binary.BigEndian.PutUint64(h[24:], n)
	return h
}
