package protocol

import (
	"fmt"

	"github.com/roach88/mudsync/internal/ir"
)

// Schema is the field layout of one table.
type Schema struct {
	Key     []Field
	Static  []Field
	Dynamic []Field
}

// NewSchema parses "type name" declarations for each field group. Key and
// static fields must be static types, dynamic fields must be dynamic, and
// field names must be unique across the schema.
func NewSchema(key, static, dynamic []string) (Schema, error) {
	var s Schema
	seen := make(map[string]bool)

	parse := func(group string, decls []string, wantStatic bool) ([]Field, error) {
		fields := make([]Field, 0, len(decls))
		for _, d := range decls {
			f, err := ParseField(d)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", group, err)
			}
			if f.Type.Static() != wantStatic {
				return nil, fmt.Errorf("%s: field %q: %w: %s", group, f.Name, ErrInvalidNativeType, f.Type)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("%s: duplicate field name %q", group, f.Name)
			}
			seen[f.Name] = true
			fields = append(fields, f)
		}
		return fields, nil
	}

	var err error
	if s.Key, err = parse("key", key, true); err != nil {
		return Schema{}, err
	}
	if s.Static, err = parse("static", static, true); err != nil {
		return Schema{}, err
	}
	if s.Dynamic, err = parse("dynamic", dynamic, false); err != nil {
		return Schema{}, err
	}
	if len(s.Dynamic) > MaxDynamicFields {
		return Schema{}, fmt.Errorf("dynamic: %d fields, max %d", len(s.Dynamic), MaxDynamicFields)
	}
	return s, nil
}

// StaticSize returns the packed width of the static fields.
func (s Schema) StaticSize() int {
	n := 0
	for _, f := range s.Static {
		n += f.Type.Size
	}
	return n
}

// Empty reports whether the schema declares no fields at all.
func (s Schema) Empty() bool {
	return len(s.Key) == 0 && len(s.Static) == 0 && len(s.Dynamic) == 0
}

// Decode turns a record's key tuple and blobs into an object keyed by field
// name. Static data may be longer than the declared fields. Dynamic data is
// sliced by the lengths in encodedLengths, which may be empty when the
// schema has no dynamic fields.
func (s Schema) Decode(keyTuple [][32]byte, staticData, encodedLengths, dynamicData []byte) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(s.Key)+len(s.Static)+len(s.Dynamic))

	if len(keyTuple) < len(s.Key) {
		return nil, fmt.Errorf("%w: key tuple has %d words, schema needs %d", ErrInvalidNativeValue, len(keyTuple), len(s.Key))
	}
	for i, f := range s.Key {
		v, err := DecodeKey(f.Type, keyTuple[i])
		if err != nil {
			return nil, &FieldError{Field: f.Name, Err: err}
		}
		obj[f.Name] = v
	}

	if len(staticData) < s.StaticSize() {
		return nil, fmt.Errorf("%w: static data has %d bytes, schema needs %d", ErrInvalidNativeValue, len(staticData), s.StaticSize())
	}
	off := 0
	for _, f := range s.Static {
		v, err := DecodeStatic(f.Type, staticData[off:off+f.Type.Size])
		if err != nil {
			return nil, &FieldError{Field: f.Name, Err: err}
		}
		obj[f.Name] = v
		off += f.Type.Size
	}

	if len(s.Dynamic) == 0 {
		return obj, nil
	}
	el, err := ParseEncodedLengths(encodedLengths)
	if err != nil {
		return nil, err
	}
	if el.Total != uint64(len(dynamicData)) {
		return nil, fmt.Errorf("%w: encoded lengths total %d, dynamic data has %d bytes", ErrInvalidNativeValue, el.Total, len(dynamicData))
	}
	var pos uint64
	for i, f := range s.Dynamic {
		n := el.Lengths[i]
		if pos+n > uint64(len(dynamicData)) {
			return nil, &FieldError{Field: f.Name, Err: fmt.Errorf("%w: length %d overruns dynamic data", ErrInvalidNativeValue, n)}
		}
		v, err := DecodeDynamic(f.Type, dynamicData[pos:pos+n])
		if err != nil {
			return nil, &FieldError{Field: f.Name, Err: err}
		}
		obj[f.Name] = v
		pos += n
	}
	return obj, nil
}

// FieldError attributes a decode failure to one field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
