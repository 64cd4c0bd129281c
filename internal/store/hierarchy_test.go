package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/ir"
)

func TestWorldCheckpointIsMonotonic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	w, err := sess.InsertWorld(ctx, ir.World{ChainID: 420, Address: testAddress, UniqueKey: "wk", LastSyncedBlock: 10})
	require.NoError(t, err)
	assert.NotZero(t, w.ID)

	got, err := sess.AdvanceWorldCheckpoint(ctx, w.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got)

	got, err = sess.AdvanceWorldCheckpoint(ctx, w.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got, "older block must not move the checkpoint back")

	found, ok, err := sess.FindWorld(ctx, 420, testAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(20), found.LastSyncedBlock)

	_, err = sess.AdvanceWorldCheckpoint(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNamespaceCheckpoint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	w, err := sess.InsertWorld(ctx, ir.World{ChainID: 420, Address: testAddress, UniqueKey: "wk"})
	require.NoError(t, err)

	ns, err := sess.InsertNamespace(ctx, ir.Namespace{WorldID: w.ID, Hex: "0000000000000000000000000001"})
	require.NoError(t, err)
	assert.Nil(t, ns.LastSyncedBlock)

	got, err := sess.AdvanceNamespaceCheckpoint(ctx, ns.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got, "unset checkpoint takes the first block")

	got, err = sess.AdvanceNamespaceCheckpoint(ctx, ns.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)

	found, ok, err := sess.FindNamespace(ctx, w.ID, "0000000000000000000000000001")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, found.LastSyncedBlock)
	assert.Equal(t, uint64(7), *found.LastSyncedBlock)

	_, ok, err = sess.FindNamespace(ctx, w.ID, "0000000000000000000000000011")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindTable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seeded := seedRecord(t, s)

	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	found, ok, err := sess.FindTable(ctx, seeded.NamespaceID, "OrientationCom")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, seeded.ID, found.ID)

	_, ok, err = sess.FindTable(ctx, seeded.NamespaceID, "ScaleCom")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sess.InsertTable(ctx, ir.Table{NamespaceID: seeded.NamespaceID, Name: "OrientationCom"})
	assert.Error(t, err, "duplicate (namespace, name)")
}
