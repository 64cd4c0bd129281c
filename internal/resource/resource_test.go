package resource

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orientationComHex = "0x746200000000000000000000000000014f7269656e746174696f6e436f6d0000"

var nsOne = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}

func TestDecodeOrientationCom(t *testing.T) {
	r, err := ParseHex(orientationComHex)
	require.NoError(t, err)

	assert.Equal(t, Table, r.Type)
	assert.Equal(t, nsOne, r.Namespace[:])
	assert.Equal(t, "OrientationCom", r.Name)
	assert.Equal(t, "0000000000000000000000000001", r.NamespaceHex())
}

func TestEncodeOrientationCom(t *testing.T) {
	id, err := Encode(Table, nsOne, "OrientationCom")
	require.NoError(t, err)
	assert.Equal(t, orientationComHex, id.Hex())
}

func TestEncodePadsShortInputs(t *testing.T) {
	id, err := Encode(System, []byte("app"), "Move")
	require.NoError(t, err)

	assert.Equal(t, "sy", string(id[:2]))
	assert.Equal(t, "app", string(id[2:5]))
	assert.Equal(t, make([]byte, 11), id[5:16])
	assert.Equal(t, "Move", string(id[16:20]))
	assert.Equal(t, make([]byte, 12), id[20:])
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		typ       Type
		namespace []byte
		resName   string
	}{
		{"table", Table, nsOne, "OrientationCom"},
		{"offchain table", OffchainTable, []byte("game"), "Events"},
		{"namespace", Namespace, []byte("game"), ""},
		{"module", Module, nil, "KeysInTable"},
		{"system", System, []byte("fourteen_bytes"), "sixteen_bytes_ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Encode(tt.typ, tt.namespace, tt.resName)
			require.NoError(t, err)

			r, err := Decode(id[:])
			require.NoError(t, err)

			var want [NamespaceSize]byte
			copy(want[:], tt.namespace)
			assert.Equal(t, tt.typ, r.Type)
			assert.Equal(t, want, r.Namespace)
			assert.Equal(t, tt.resName, r.Name)

			again, err := r.ID()
			require.NoError(t, err)
			assert.Equal(t, id, again)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(Type("bogus"), nil, "x")
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = Encode(Table, make([]byte, 15), "x")
	assert.ErrorIs(t, err, ErrNamespaceTooLong)

	_, err = Encode(Table, nil, "SeventeenBytesLng")
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Decode(make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidLength)

	b := make([]byte, Size)
	copy(b, "zz")
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = ParseHex("0xnothex")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"table", "tb"} {
		typ, err := ParseType(s)
		require.NoError(t, err)
		assert.Equal(t, Table, typ)
	}

	_, err := ParseType("xx")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestParseNamespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"prefixed full hex", "0x0000000000000000000000000001", "0000000000000000000000000001"},
		{"prefixed short hex", "0x01", "0100000000000000000000000000"},
		{"bare full hex", "0000000000000000000000000011", "0000000000000000000000000011"},
		{"ascii label", "game", hex.EncodeToString(append([]byte("game"), make([]byte, 10)...))},
		{"empty is root", "", "0000000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, err := ParseNamespace(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(ns[:]))
		})
	}

	_, err := ParseNamespace("a_label_that_is_too_long")
	assert.ErrorIs(t, err, ErrNamespaceTooLong)

	_, err = ParseNamespace("0xzz")
	assert.Error(t, err)
}
