package resource

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// Size is the length of an encoded resource ID.
	Size = 32

	typeSize      = 2
	NamespaceSize = 14
	NameSize      = 16
)

var (
	ErrInvalidType      = errors.New("invalid resource type")
	ErrInvalidLength    = errors.New("resource id must be 32 bytes")
	ErrNamespaceTooLong = errors.New("namespace exceeds 14 bytes")
	ErrNameTooLong      = errors.New("name exceeds 16 bytes")
)

// Type is the kind of a resource, identified on chain by a 2-byte tag.
type Type string

const (
	Table         Type = "table"
	OffchainTable Type = "offchaintable"
	Namespace     Type = "namespace"
	Module        Type = "module"
	System        Type = "system"
)

var typeTags = map[Type]string{
	Table:         "tb",
	OffchainTable: "ot",
	Namespace:     "ns",
	Module:        "md",
	System:        "sy",
}

// Tag returns the 2-byte on-chain tag of t, or "" if t is unknown.
func (t Type) Tag() string {
	return typeTags[t]
}

// ParseType accepts either a type name ("table") or its tag ("tb").
func ParseType(s string) (Type, error) {
	if _, ok := typeTags[Type(s)]; ok {
		return Type(s), nil
	}
	if t, ok := typeFromTag(s); ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func typeFromTag(tag string) (Type, bool) {
	for t, tg := range typeTags {
		if tg == tag {
			return t, true
		}
	}
	return "", false
}

// ID is an encoded resource identifier.
type ID [Size]byte

// Hex returns the 0x-prefixed lowercase hex form of id.
func (id ID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ID) String() string {
	return id.Hex()
}

// Resource is the decoded form of an ID.
type Resource struct {
	Type      Type
	Namespace [NamespaceSize]byte
	Name      string
}

// NamespaceHex returns the namespace as 28 lowercase hex characters without
// a 0x prefix. This is the form stored on Namespace rows.
func (r Resource) NamespaceHex() string {
	return hex.EncodeToString(r.Namespace[:])
}

// ID re-encodes r. It cannot fail for a Resource produced by Decode.
func (r Resource) ID() (ID, error) {
	return Encode(r.Type, r.Namespace[:], r.Name)
}

// Encode builds a resource ID from its parts. The namespace is right-padded
// with zeros to 14 bytes and the name to 16 bytes.
func Encode(t Type, namespace []byte, name string) (ID, error) {
	var id ID

	tag := t.Tag()
	if tag == "" {
		return id, fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
	if len(namespace) > NamespaceSize {
		return id, fmt.Errorf("%w: got %d", ErrNamespaceTooLong, len(namespace))
	}
	if len(name) > NameSize {
		return id, fmt.Errorf("%w: %q is %d bytes", ErrNameTooLong, name, len(name))
	}

	copy(id[:typeSize], tag)
	copy(id[typeSize:typeSize+NamespaceSize], namespace)
	copy(id[typeSize+NamespaceSize:], name)
	return id, nil
}

// MustEncode is like Encode but panics on error.
func MustEncode(t Type, namespace []byte, name string) ID {
	id, err := Encode(t, namespace, name)
	if err != nil {
		panic(err)
	}
	return id
}

// Decode splits a 32-byte resource ID into its parts. Trailing zero bytes
// are stripped from the name.
func Decode(b []byte) (Resource, error) {
	var r Resource
	if len(b) != Size {
		return r, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}

	t, ok := typeFromTag(string(b[:typeSize]))
	if !ok {
		return r, fmt.Errorf("%w: tag 0x%x", ErrInvalidType, b[:typeSize])
	}

	r.Type = t
	copy(r.Namespace[:], b[typeSize:typeSize+NamespaceSize])
	r.Name = string(bytes.TrimRight(b[typeSize+NamespaceSize:], "\x00"))
	return r, nil
}

// ParseHex decodes a hex resource ID, with or without 0x prefix.
func ParseHex(s string) (Resource, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return Resource{}, fmt.Errorf("parse resource id: %w", err)
	}
	return Decode(b)
}

// ParseNamespace interprets s as a namespace. A 0x-prefixed string is hex
// and is zero-padded on the right to 14 bytes, as is a bare string of exactly
// 28 hex characters. Anything else is taken as an ASCII label of at most 14
// bytes.
func ParseNamespace(s string) ([NamespaceSize]byte, error) {
	var ns [NamespaceSize]byte

	raw := []byte(s)
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return ns, fmt.Errorf("parse namespace %q: %w", s, err)
		}
		raw = b
	case len(s) == 2*NamespaceSize:
		if b, err := hex.DecodeString(s); err == nil {
			raw = b
		}
	}

	if len(raw) > NamespaceSize {
		return ns, fmt.Errorf("%w: %q", ErrNamespaceTooLong, s)
	}
	copy(ns[:], raw)
	return ns, nil
}
