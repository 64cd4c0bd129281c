package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	h := Funcs{}

	require.NoError(t, r.Register("OrientationCom", h))
	require.NoError(t, r.Register("ScaleCom", h))

	got, ok := r.Lookup("OrientationCom")
	assert.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = r.Lookup("Unregistered")
	assert.False(t, ok)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"OrientationCom", "ScaleCom"}, r.Names())
}

func TestRegistryRejects(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Register("", Funcs{}), ErrEmptyName)
	assert.ErrorIs(t, r.Register("SeventeenBytesLng", Funcs{}), ErrNameTooLong)

	require.NoError(t, r.Register("A", Funcs{}))
	assert.ErrorIs(t, r.Register("A", Funcs{}), ErrAlreadyExists)

	assert.Panics(t, func() { r.MustRegister("A", Funcs{}) })
}

func TestRegistryTableIDs(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("ScaleCom", Funcs{})
	r.MustRegister("OrientationCom", Funcs{})

	ns := [resource.NamespaceSize]byte{13: 1}
	ids := r.TableIDs(ns)
	require.Len(t, ids, 2)
	assert.Equal(t, "0x746200000000000000000000000000014f7269656e746174696f6e436f6d0000", ids[0].Hex())
	assert.Equal(t, "0x746200000000000000000000000000015363616c65436f6d0000000000000000", ids[1].Hex())

	assert.Empty(t, NewRegistry().TableIDs(ns))
}

func TestCallRoutesByKind(t *testing.T) {
	var called []string
	record := func(name string) Func {
		return func(context.Context, *store.Session, ir.Table, codec.Params, uint64) error {
			called = append(called, name)
			return nil
		}
	}
	h := Funcs{
		OnSetRecord:         record("set"),
		OnSpliceStaticData:  record("static"),
		OnSpliceDynamicData: record("dynamic"),
		OnDeleteRecord:      record("delete"),
	}

	ctx := context.Background()
	for _, k := range codec.Kinds {
		require.NoError(t, Call(ctx, h, k, nil, ir.Table{}, nil, 0))
	}
	assert.Equal(t, []string{"set", "static", "dynamic", "delete"}, called)

	assert.Error(t, Call(ctx, h, codec.Kind(42), nil, ir.Table{}, nil, 0))
}

func TestFuncsNilIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, k := range codec.Kinds {
		assert.NoError(t, Call(ctx, Funcs{}, k, nil, ir.Table{}, nil, 0))
	}
}
