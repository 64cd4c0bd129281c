package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/ir"
)

func TestPutRecord_UpsertsInPlace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table := seedRecord(t, s)

	err := s.WithSession(ctx, func(sess *Session) error {
		return sess.PutRecord(ctx, ir.Record{
			Key:            "rk",
			TableID:        table.ID,
			KeyTuple:       [][32]byte{{31: 1}},
			StaticData:     []byte{0x0b},
			EncodedLengths: make([]byte, 32),
			Fields:         ir.IRObject{"value": ir.IRInt(11)},
			BlockNumber:    2,
		})
	})
	require.NoError(t, err)

	records, err := s.Records(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, records, 1, "same key must not create a second row")

	r := records[0]
	assert.Equal(t, "rk", r.Key)
	assert.Equal(t, []byte{0x0b}, r.StaticData)
	assert.Equal(t, make([]byte, 32), r.EncodedLengths)
	assert.Empty(t, r.DynamicData)
	assert.Equal(t, ir.IRObject{"value": ir.IRInt(11)}, r.Fields)
	assert.Equal(t, uint64(2), r.BlockNumber)
	assert.Equal(t, [][32]byte{{31: 1}}, r.KeyTuple)
}

func TestGetAndDeleteRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedRecord(t, s)

	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	r, ok, err := sess.GetRecord(ctx, "rk")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x0a}, r.StaticData)

	deleted, err := sess.DeleteRecord(ctx, "rk")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = sess.DeleteRecord(ctx, "rk")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete finds nothing")

	_, ok, err = sess.GetRecord(ctx, "rk")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutRecord_NilFieldsStoredAsEmptyObject(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table := seedRecord(t, s)

	err := s.WithSession(ctx, func(sess *Session) error {
		return sess.PutRecord(ctx, ir.Record{Key: "bare", TableID: table.ID, BlockNumber: 3})
	})
	require.NoError(t, err)

	var fields string
	require.NoError(t, s.db.QueryRow(`SELECT fields FROM records WHERE unique_key = 'bare'`).Scan(&fields))
	assert.Equal(t, "{}", fields)
}

func TestKeyTupleRoundTrip(t *testing.T) {
	keys := [][32]byte{{0: 0xab}, {31: 0x01}}
	text := marshalKeyTuple(keys)
	assert.Equal(t,
		`["0xab00000000000000000000000000000000000000000000000000000000000000","0x0000000000000000000000000000000000000000000000000000000000000001"]`,
		text,
	)

	got, err := unmarshalKeyTuple(text)
	require.NoError(t, err)
	assert.Equal(t, keys, got)

	assert.Equal(t, "[]", marshalKeyTuple(nil))

	_, err = unmarshalKeyTuple(`["0x01"]`)
	assert.Error(t, err)
}
