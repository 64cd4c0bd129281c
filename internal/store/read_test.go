package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/ir"
)

func TestReads_EmptyStoreReturnsEmptySlices(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	worlds, err := s.Worlds(ctx)
	require.NoError(t, err)
	assert.NotNil(t, worlds)
	assert.Empty(t, worlds)

	namespaces, err := s.Namespaces(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, namespaces)

	tables, err := s.Tables(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, tables)

	records, err := s.Records(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, records)
}

func TestReads_WalkHierarchy(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table := seedRecord(t, s)

	worlds, err := s.Worlds(ctx)
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.Equal(t, uint64(420), worlds[0].ChainID)
	assert.Equal(t, testAddress, worlds[0].Address)

	w, ok, err := s.World(ctx, 420, testAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, worlds[0], w)

	namespaces, err := s.Namespaces(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "0000000000000000000000000001", namespaces[0].Hex)

	tables, err := s.Tables(ctx, namespaces[0].ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, table.ID, tables[0].ID)

	n, err := s.CountRecords(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Worlds: 1, Namespaces: 1, Tables: 1, Records: 1}, c)
}

func TestNamespaceCheckpointRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.NamespaceCheckpoint(ctx, 420, testAddress, "0000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, ok, "unknown world")

	seedRecord(t, s)

	block, ok, err := s.NamespaceCheckpoint(ctx, 420, testAddress, "0000000000000000000000000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), block)

	_, ok, err = s.NamespaceCheckpoint(ctx, 1, testAddress, "0000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, ok, "same address on another chain is another world")
}

func TestRecords_OrderedByKeyTuple(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table := seedRecord(t, s)

	err := s.WithSession(ctx, func(sess *Session) error {
		for _, r := range []ir.Record{
			{Key: "z", TableID: table.ID, KeyTuple: [][32]byte{{31: 3}}, BlockNumber: 2},
			{Key: "a", TableID: table.ID, KeyTuple: [][32]byte{{31: 2}}, BlockNumber: 2},
		} {
			if err := sess.PutRecord(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	records, err := s.Records(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, want := range []byte{1, 2, 3} {
		assert.Equal(t, want, records[i].KeyTuple[0][31])
	}
}
