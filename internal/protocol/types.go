package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNativeType is returned for a field type the codec cannot decode.
	ErrInvalidNativeType = errors.New("invalid native type")

	// ErrInvalidNativeValue is returned when encoded bytes are not a valid
	// value of the field's type.
	ErrInvalidNativeValue = errors.New("invalid native value")
)

// Base is the family of a field type.
type Base int

const (
	Uint Base = iota
	Int
	Bool
	Address
	FixedBytes
	Bytes
	String
	Array
)

// Type is a parsed field type such as "uint32", "bytes32", "string" or "int8[]".
type Type struct {
	Name string
	Base Base

	// Size is the encoded width in bytes of a static type. For arrays it is
	// the width of one element. Zero for bytes and string.
	Size int

	// Elem is the element type of an Array.
	Elem *Type
}

// Static reports whether t has a fixed width and may appear in the key
// tuple or in static data.
func (t Type) Static() bool {
	switch t.Base {
	case Bytes, String, Array:
		return false
	default:
		return true
	}
}

func (t Type) String() string {
	return t.Name
}

// ParseType parses a field type name.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)

	if elem, ok := strings.CutSuffix(s, "[]"); ok {
		et, err := ParseType(elem)
		if err != nil {
			return Type{}, err
		}
		if !et.Static() {
			return Type{}, fmt.Errorf("%w: array of dynamic type %q", ErrInvalidNativeType, s)
		}
		return Type{Name: s, Base: Array, Size: et.Size, Elem: &et}, nil
	}

	switch s {
	case "bool":
		return Type{Name: s, Base: Bool, Size: 1}, nil
	case "address":
		return Type{Name: s, Base: Address, Size: 20}, nil
	case "bytes":
		return Type{Name: s, Base: Bytes}, nil
	case "string":
		return Type{Name: s, Base: String}, nil
	}

	switch {
	case strings.HasPrefix(s, "uint"):
		bits, err := parseBits(s, "uint")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: s, Base: Uint, Size: bits / 8}, nil
	case strings.HasPrefix(s, "int"):
		bits, err := parseBits(s, "int")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: s, Base: Int, Size: bits / 8}, nil
	case strings.HasPrefix(s, "bytes"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "bytes"))
		if err != nil || n < 1 || n > 32 {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidNativeType, s)
		}
		return Type{Name: s, Base: FixedBytes, Size: n}, nil
	}

	return Type{}, fmt.Errorf("%w: %q", ErrInvalidNativeType, s)
}

// parseBits accepts multiples of 8 from 8 to 256.
func parseBits(s, prefix string) (int, error) {
	bits, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNativeType, s)
	}
	return bits, nil
}

// Field is a named, typed column of a table.
type Field struct {
	Name string
	Type Type
}

// ParseField parses a "type name" declaration such as "uint8 id".
func ParseField(s string) (Field, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Field{}, fmt.Errorf("field %q: want \"<type> <name>\"", s)
	}
	t, err := ParseType(parts[0])
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", s, err)
	}
	return Field{Name: parts[1], Type: t}, nil
}
