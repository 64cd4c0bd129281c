package protocol

import (
	"fmt"
)

const (
	// MaxDynamicFields is the number of lengths a packed counter can hold.
	MaxDynamicFields = 5

	totalSize  = 7
	lengthSize = 5
)

// EncodedLengths is the decoded packed counter of a record's dynamic fields.
//
// On chain it is one 32-byte word: the low 7 bytes hold the total byte
// length, and the field lengths follow as 5-byte big-endian integers from
// the low end upward, so field 0 occupies bytes [20:25].
type EncodedLengths struct {
	Total   uint64
	Lengths [MaxDynamicFields]uint64
}

// ParseEncodedLengths decodes a 32-byte packed counter.
func ParseEncodedLengths(b []byte) (EncodedLengths, error) {
	var el EncodedLengths
	if len(b) != 32 {
		return el, fmt.Errorf("%w: encoded lengths must be 32 bytes, got %d", ErrInvalidNativeValue, len(b))
	}

	el.Total = beUint(b[32-totalSize:])
	for i := range MaxDynamicFields {
		end := 32 - totalSize - lengthSize*i
		el.Lengths[i] = beUint(b[end-lengthSize : end])
	}
	return el, nil
}

// Bytes encodes el back into its 32-byte form.
func (el EncodedLengths) Bytes() [32]byte {
	var out [32]byte
	putBeUint(out[32-totalSize:], el.Total)
	for i := range MaxDynamicFields {
		end := 32 - totalSize - lengthSize*i
		putBeUint(out[end-lengthSize:end], el.Lengths[i])
	}
	return out
}

// NewEncodedLengths packs the given field lengths and their sum.
func NewEncodedLengths(lengths ...uint64) (EncodedLengths, error) {
	var el EncodedLengths
	if len(lengths) > MaxDynamicFields {
		return el, fmt.Errorf("%w: %d dynamic fields, max %d", ErrInvalidNativeValue, len(lengths), MaxDynamicFields)
	}
	for i, n := range lengths {
		el.Lengths[i] = n
		el.Total += n
	}
	return el, nil
}

func beUint(b []byte) uint64 {
	var n uint64
	for _, x := range b {
		n = n<<8 | uint64(x)
	}
	return n
}

func putBeUint(b []byte, n uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
}
