package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpliceStatic(t *testing.T) {
	blob := []byte{1, 2, 3, 4}

	tests := []struct {
		name  string
		blob  []byte
		start uint64
		data  []byte
		want  []byte
	}{
		{"overwrite", blob, 1, []byte{9, 9}, []byte{1, 9, 9, 4}},
		{"zero-extends", blob, 5, []byte{7}, []byte{1, 2, 3, 4, 0, 7}},
		{"empty blob", nil, 0, []byte{5}, []byte{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpliceStatic(tt.blob, tt.start, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []byte{1, 2, 3, 4}, blob, "input untouched")
}

func TestSpliceStaticTooLarge(t *testing.T) {
	_, err := SpliceStatic(nil, 1<<40, []byte{1})
	assert.ErrorIs(t, err, ErrInvalidNativeValue)
}

func TestSpliceDynamic(t *testing.T) {
	blob := []byte("hello")

	out, err := SpliceDynamic(blob, 1, 3, []byte("ipp"))
	require.NoError(t, err)
	assert.Equal(t, "hippo", string(out))

	out, err = SpliceDynamic(blob, 5, 0, []byte("!!"))
	require.NoError(t, err)
	assert.Equal(t, "hello!!", string(out), "append")

	out, err = SpliceDynamic(blob, 0, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, out, "delete all")

	assert.Equal(t, "hello", string(blob), "input untouched")
}

func TestSpliceDynamicOutOfRange(t *testing.T) {
	_, err := SpliceDynamic([]byte("abc"), 4, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidNativeValue)

	_, err = SpliceDynamic([]byte("abc"), 2, 2, nil)
	assert.ErrorIs(t, err, ErrInvalidNativeValue)
}
