package handler

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/hierarchy"
	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/protocol"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
)

var testWorld = common.HexToAddress("0xfF5Be16460704eFd0263dB1444Eaa216b77477c5")

type fixture struct {
	store *store.Store
	table ir.Table
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m, err := hierarchy.New()
	require.NoError(t, err)

	res := resource.Resource{Type: resource.Table, Namespace: [resource.NamespaceSize]byte{13: 1}, Name: name}
	var tb ir.Table
	err = s.WithSession(ctx, func(sess *store.Session) error {
		w, err := m.GetOrCreateWorld(ctx, sess, 420, testWorld, 1)
		if err != nil {
			return err
		}
		ns, err := m.GetOrCreateNamespace(ctx, sess, res, w, 1)
		if err != nil {
			return err
		}
		tb, err = m.GetOrCreateTable(ctx, sess, res, ns)
		return err
	})
	require.NoError(t, err)
	return &fixture{store: s, table: tb}
}

// apply runs one handler call in its own session.
func (f *fixture) apply(t *testing.T, h RecordHandler, kind codec.Kind, params codec.Params, block uint64) error {
	t.Helper()
	ctx := context.Background()
	return f.store.WithSession(ctx, func(sess *store.Session) error {
		return Call(ctx, h, kind, sess, f.table, params, block)
	})
}

func (f *fixture) records(t *testing.T) []ir.Record {
	t.Helper()
	recs, err := f.store.Records(context.Background(), f.table.ID)
	require.NoError(t, err)
	return recs
}

func lengthsOf(t *testing.T, n ...uint64) [32]byte {
	t.Helper()
	el, err := protocol.NewEncodedLengths(n...)
	require.NoError(t, err)
	return el.Bytes()
}

func setParams(keys [][32]byte, static []byte, lengths [32]byte, dynamic []byte) codec.Params {
	return codec.Params{
		codec.ParamKeyTuple:       keys,
		codec.ParamStaticData:     static,
		codec.ParamEncodedLengths: lengths,
		codec.ParamDynamicData:    dynamic,
	}
}

func orientationSchema(t *testing.T) protocol.Schema {
	t.Helper()
	s, err := protocol.NewSchema([]string{"uint8 id"}, []string{"uint8 value"}, nil)
	require.NoError(t, err)
	return s
}

func TestSchemaHandler_SetRecordDecodesFields(t *testing.T) {
	f := newFixture(t, "OrientationCom")
	h := NewSchemaHandler(orientationSchema(t))
	keys := [][32]byte{{31: 1}}

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, []byte{0x0a}, [32]byte{}, nil), 1))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRObject{"id": ir.IRInt(1), "value": ir.IRInt(10)}, recs[0].Fields)
	assert.Equal(t, ir.MustRecordKey(f.table.WorldKey, f.table.Namespace, "OrientationCom", keys), recs[0].Key)
	assert.Equal(t, uint64(1), recs[0].BlockNumber)
}

func TestSchemaHandler_SetRecordIsIdempotent(t *testing.T) {
	f := newFixture(t, "OrientationCom")
	h := NewSchemaHandler(orientationSchema(t))
	keys := [][32]byte{{31: 1}}

	for i := 0; i < 3; i++ {
		require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, []byte{0x0a}, [32]byte{}, nil), 1))
	}
	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, []byte{0x0b}, [32]byte{}, nil), 2))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRInt(11), recs[0].Fields["value"], "updated in place")
}

func TestSchemaHandler_BlobsOnly(t *testing.T) {
	f := newFixture(t, "Raw")
	h := NewSchemaHandler(protocol.Schema{})

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(nil, []byte{1, 2}, lengthsOf(t, 3), []byte("abc")), 5))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, []byte{1, 2}, recs[0].StaticData)
	assert.Equal(t, []byte("abc"), recs[0].DynamicData)
	assert.Empty(t, recs[0].Fields)
}

func TestSchemaHandler_SpliceStaticData(t *testing.T) {
	f := newFixture(t, "Position")
	schema, err := protocol.NewSchema([]string{"bytes32 entity"}, []string{"int32 x", "int32 y"}, nil)
	require.NoError(t, err)
	h := NewSchemaHandler(schema)
	keys := [][32]byte{{0: 0xaa}}

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, []byte{0, 0, 0, 1, 0, 0, 0, 2}, [32]byte{}, nil), 1))
	require.NoError(t, f.apply(t, h, codec.SpliceStaticData, codec.Params{
		codec.ParamKeyTuple: keys,
		codec.ParamStart:    big.NewInt(4),
		codec.ParamData:     []byte{0xff, 0xff, 0xff, 0xfd},
	}, 2))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRInt(1), recs[0].Fields["x"])
	assert.Equal(t, ir.IRInt(-3), recs[0].Fields["y"])
	assert.Equal(t, uint64(2), recs[0].BlockNumber)
}

func TestSchemaHandler_SpliceStaticOnAbsentRecord(t *testing.T) {
	f := newFixture(t, "Position")
	schema, err := protocol.NewSchema(nil, []string{"int32 x", "int32 y"}, nil)
	require.NoError(t, err)
	h := NewSchemaHandler(schema)

	require.NoError(t, f.apply(t, h, codec.SpliceStaticData, codec.Params{
		codec.ParamKeyTuple: [][32]byte{},
		codec.ParamStart:    big.NewInt(0),
		codec.ParamData:     []byte{0, 0, 0, 7},
	}, 3))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRObject{"x": ir.IRInt(7), "y": ir.IRInt(0)}, recs[0].Fields)
}

func TestSchemaHandler_SpliceDynamicData(t *testing.T) {
	f := newFixture(t, "Name")
	schema, err := protocol.NewSchema([]string{"uint8 id"}, nil, []string{"string name"})
	require.NoError(t, err)
	h := NewSchemaHandler(schema)
	keys := [][32]byte{{31: 1}}

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, nil, lengthsOf(t, 5), []byte("hello")), 1))
	require.NoError(t, f.apply(t, h, codec.SpliceDynamicData, codec.Params{
		codec.ParamKeyTuple:       keys,
		codec.ParamStart:          big.NewInt(1),
		codec.ParamDeleteCount:    big.NewInt(3),
		codec.ParamEncodedLengths: lengthsOf(t, 5),
		codec.ParamData:           []byte("ipp"),
	}, 2))

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRString("hippo"), recs[0].Fields["name"])

	require.NoError(t, f.apply(t, h, codec.SpliceDynamicData, codec.Params{
		codec.ParamKeyTuple:       keys,
		codec.ParamStart:          big.NewInt(5),
		codec.ParamDeleteCount:    big.NewInt(0),
		codec.ParamEncodedLengths: lengthsOf(t, 7),
		codec.ParamData:           []byte("!!"),
	}, 3))

	recs = f.records(t)
	assert.Equal(t, ir.IRString("hippo!!"), recs[0].Fields["name"])
	el := lengthsOf(t, 7)
	assert.Equal(t, el[:], recs[0].EncodedLengths)
}

func TestSchemaHandler_SpliceDynamicOutOfRange(t *testing.T) {
	f := newFixture(t, "Name")
	h := NewSchemaHandler(protocol.Schema{})

	err := f.apply(t, h, codec.SpliceDynamicData, codec.Params{
		codec.ParamKeyTuple:       [][32]byte{},
		codec.ParamStart:          big.NewInt(4),
		codec.ParamDeleteCount:    big.NewInt(1),
		codec.ParamEncodedLengths: [32]byte{},
		codec.ParamData:           []byte{},
	}, 1)
	assert.ErrorIs(t, err, ErrInvalidNativeValue)
	assert.Empty(t, f.records(t), "failed splice must roll back")
}

func TestSchemaHandler_DeleteRecord(t *testing.T) {
	f := newFixture(t, "OrientationCom")
	h := NewSchemaHandler(orientationSchema(t))
	keys := [][32]byte{{31: 1}}

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, []byte{0x0a}, [32]byte{}, nil), 1))
	other := [][32]byte{{31: 2}}
	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(other, []byte{0x0b}, [32]byte{}, nil), 1))

	require.NoError(t, f.apply(t, h, codec.DeleteRecord, codec.Params{codec.ParamKeyTuple: keys}, 2))
	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRInt(2), recs[0].Fields["id"])

	require.NoError(t, f.apply(t, h, codec.DeleteRecord, codec.Params{codec.ParamKeyTuple: keys}, 3), "absent delete is a no-op")
}

func TestSchemaHandler_InvalidData(t *testing.T) {
	f := newFixture(t, "OrientationCom")
	h := NewSchemaHandler(orientationSchema(t))

	err := f.apply(t, h, codec.SetRecord, codec.Params{codec.ParamKeyTuple: [][32]byte{{31: 1}}}, 1)
	assert.ErrorIs(t, err, ErrInvalidData, "missing staticData")

	err = f.apply(t, h, codec.DeleteRecord, codec.Params{codec.ParamKeyTuple: "not a tuple"}, 1)
	assert.ErrorIs(t, err, ErrInvalidData, "wrong wire type")
}

func TestSchemaHandler_InvalidNativeValue(t *testing.T) {
	f := newFixture(t, "Flags")
	schema, err := protocol.NewSchema([]string{"uint8 id"}, []string{"bool on"}, nil)
	require.NoError(t, err)
	h := NewSchemaHandler(schema)

	err = f.apply(t, h, codec.SetRecord, setParams([][32]byte{{31: 1}}, []byte{2}, [32]byte{}, nil), 1)
	assert.ErrorIs(t, err, ErrInvalidNativeValue)

	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "on", re.Field)
	assert.Equal(t, "Flags", re.Table)
	assert.Empty(t, f.records(t))
}

func TestSchemaHandler_SpliceDynamicReplay(t *testing.T) {
	f := newFixture(t, "Name")
	schema, err := protocol.NewSchema(nil, nil, []string{"string name"})
	require.NoError(t, err)
	h := NewSchemaHandler(schema)
	keys := [][32]byte{}

	require.NoError(t, f.apply(t, h, codec.SetRecord, setParams(keys, nil, lengthsOf(t, 2), []byte("ab")), 1))
	appendC := codec.Params{
		codec.ParamKeyTuple:       keys,
		codec.ParamStart:          big.NewInt(2),
		codec.ParamDeleteCount:    big.NewInt(0),
		codec.ParamEncodedLengths: lengthsOf(t, 3),
		codec.ParamData:           []byte("c"),
	}
	require.NoError(t, f.apply(t, h, codec.SpliceDynamicData, appendC, 2))
	require.NoError(t, f.apply(t, h, codec.SpliceDynamicData, appendC, 2), "replay is skipped")

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRString("abc"), recs[0].Fields["name"])
}

func TestSchemaHandler_SpliceDynamicLengthMismatch(t *testing.T) {
	f := newFixture(t, "Name")
	h := NewSchemaHandler(protocol.Schema{})

	err := f.apply(t, h, codec.SpliceDynamicData, codec.Params{
		codec.ParamKeyTuple:       [][32]byte{},
		codec.ParamStart:          big.NewInt(0),
		codec.ParamDeleteCount:    big.NewInt(0),
		codec.ParamEncodedLengths: lengthsOf(t, 9),
		codec.ParamData:           []byte("abc"),
	}, 1)
	assert.ErrorIs(t, err, ErrInvalidNativeValue)
}
