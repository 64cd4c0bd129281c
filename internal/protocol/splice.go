package protocol

import (
	"fmt"
)

// MaxStaticDataSize bounds the static blob of one record. The on-chain field
// layout stores the static length in two bytes.
const MaxStaticDataSize = 1 << 16

// SpliceStatic overwrites blob[start:start+len(data)] with data and returns
// the result. A blob shorter than start+len(data) is zero-extended first.
// The input slice is not modified.
func SpliceStatic(blob []byte, start uint64, data []byte) ([]byte, error) {
	end := start + uint64(len(data))
	if start > MaxStaticDataSize || end > MaxStaticDataSize {
		return nil, fmt.Errorf("%w: static splice [%d:%d] exceeds %d bytes", ErrInvalidNativeValue, start, end, MaxStaticDataSize)
	}
	size := uint64(len(blob))
	if end > size {
		size = end
	}
	out := make([]byte, size)
	copy(out, blob)
	copy(out[start:], data)
	return out, nil
}

// SpliceDynamic replaces blob[start:start+deleteCount] with data and returns
// the result. The deleted range must lie within blob. The input slice is not
// modified.
func SpliceDynamic(blob []byte, start, deleteCount uint64, data []byte) ([]byte, error) {
	size := uint64(len(blob))
	if start > size || deleteCount > size-start {
		return nil, fmt.Errorf("%w: splice [%d:%d] outside dynamic data of %d bytes", ErrInvalidNativeValue, start, start+deleteCount, size)
	}
	out := make([]byte, 0, size-deleteCount+uint64(len(data)))
	out = append(out, blob[:start]...)
	out = append(out, data...)
	out = append(out, blob[start+deleteCount:]...)
	return out, nil
}
