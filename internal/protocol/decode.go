package protocol

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/mudsync/internal/ir"
)

// DecodeStatic decodes a tightly packed value of static type t from b.
// len(b) must equal t.Size.
func DecodeStatic(t Type, b []byte) (ir.IRValue, error) {
	if !t.Static() {
		return nil, fmt.Errorf("%w: %s is not static", ErrInvalidNativeType, t)
	}
	if len(b) != t.Size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidNativeValue, t, t.Size, len(b))
	}

	switch t.Base {
	case Uint:
		return ir.IntValue(new(big.Int).SetBytes(b)), nil
	case Int:
		n := new(big.Int).SetBytes(b)
		if len(b) > 0 && b[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
		}
		return ir.IntValue(n), nil
	case Bool:
		switch b[0] {
		case 0:
			return ir.IRBool(false), nil
		case 1:
			return ir.IRBool(true), nil
		}
		return nil, fmt.Errorf("%w: bool byte 0x%02x", ErrInvalidNativeValue, b[0])
	case Address:
		return ir.IRString(common.BytesToAddress(b).Hex()), nil
	case FixedBytes:
		return ir.IRString("0x" + hex.EncodeToString(b)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidNativeType, t)
}

// DecodeKey decodes one key tuple word. bytesN values are left-aligned in
// the word; every other static type is right-aligned. Padding bytes must be
// zero, or sign extension for negative intN.
func DecodeKey(t Type, word [32]byte) (ir.IRValue, error) {
	if !t.Static() {
		return nil, fmt.Errorf("%w: key field of dynamic type %s", ErrInvalidNativeType, t)
	}

	if t.Base == FixedBytes {
		if !allBytes(word[t.Size:], 0) {
			return nil, fmt.Errorf("%w: %s key has nonzero padding", ErrInvalidNativeValue, t)
		}
		return DecodeStatic(t, word[:t.Size])
	}

	value := word[32-t.Size:]
	pad := word[:32-t.Size]
	var fill byte
	if t.Base == Int && value[0]&0x80 != 0 {
		fill = 0xff
	}
	if !allBytes(pad, fill) {
		return nil, fmt.Errorf("%w: %s key has invalid padding", ErrInvalidNativeValue, t)
	}
	return DecodeStatic(t, value)
}

// DecodeDynamic decodes a dynamic field value. bytes decode to 0x-hex,
// string must be valid UTF-8, and T[] must be a whole number of elements.
func DecodeDynamic(t Type, b []byte) (ir.IRValue, error) {
	switch t.Base {
	case Bytes:
		return ir.IRString("0x" + hex.EncodeToString(b)), nil
	case String:
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidNativeValue)
		}
		return ir.IRString(string(b)), nil
	case Array:
		if len(b)%t.Size != 0 {
			return nil, fmt.Errorf("%w: %s data of %d bytes is not a multiple of %d", ErrInvalidNativeValue, t, len(b), t.Size)
		}
		arr := make(ir.IRArray, 0, len(b)/t.Size)
		for off := 0; off < len(b); off += t.Size {
			v, err := DecodeStatic(*t.Elem, b[off:off+t.Size])
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, off/t.Size, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("%w: %s is not dynamic", ErrInvalidNativeType, t)
}

func allBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
