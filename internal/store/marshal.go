package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/mudsync/internal/ir"
)

// marshalFields converts IRObject to canonical JSON TEXT for storage.
// A nil object is stored as "{}".
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses canonical JSON TEXT back to IRObject.
// Uses strict validation (rejects floats and null).
func unmarshalFields(data string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}

// marshalKeyTuple stores a key tuple as a JSON array of 0x-prefixed hex
// words. Lexical order of this text matches word-by-word byte order.
func marshalKeyTuple(keys [][32]byte) string {
	words := make([]string, len(keys))
	for i := range keys {
		words[i] = `"0x` + hex.EncodeToString(keys[i][:]) + `"`
	}
	return "[" + strings.Join(words, ",") + "]"
}

func unmarshalKeyTuple(data string) ([][32]byte, error) {
	var words []string
	if err := json.Unmarshal([]byte(data), &words); err != nil {
		return nil, fmt.Errorf("unmarshal key tuple: %w", err)
	}
	keys := make([][32]byte, len(words))
	for i, w := range words {
		b, err := hex.DecodeString(strings.TrimPrefix(w, "0x"))
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("unmarshal key tuple: word %d is not 32 bytes of hex", i)
		}
		copy(keys[i][:], b)
	}
	return keys, nil
}

// nonNil keeps empty blobs from being stored as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
