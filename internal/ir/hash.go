package ir

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Fixed widths of the identity components. Every component hashed before the
// key tuple is fixed width, so the concatenation is unambiguous.
const (
	NamespaceSize = 14
	TableNameSize = 16
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenated parts.
// This is the hash used on chain for event topics and storage keys.
func Keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// WorldKey computes the unique key of a World.
// Format: hex(keccak256(uint256_be(chainID) || address))
func WorldKey(chainID uint64, address [20]byte) string {
	var id [32]byte
	binary.BigEndian.PutUint64(id[24:], chainID)
	return hex.EncodeToString(Keccak256(id[:], address[:]))
}

// RecordKey computes the identity of a Record.
// Format: hex(keccak256(worldKey || namespace[14] || name[16] || key_0 || ... || key_n))
//
// worldKey and namespace are hex strings as stored on the World and Namespace
// rows. The table name is zero-padded to 16 bytes.
func RecordKey(worldKey, namespace, name string, keyTuple [][32]byte) (string, error) {
	wk, err := hex.DecodeString(worldKey)
	if err != nil {
		return "", fmt.Errorf("RecordKey: world key: %w", err)
	}
	ns, err := hex.DecodeString(namespace)
	if err != nil {
		return "", fmt.Errorf("RecordKey: namespace: %w", err)
	}
	if len(ns) != NamespaceSize {
		return "", fmt.Errorf("RecordKey: namespace is %d bytes, want %d", len(ns), NamespaceSize)
	}
	if len(name) > TableNameSize {
		return "", fmt.Errorf("RecordKey: table name %q exceeds %d bytes", name, TableNameSize)
	}

	var padded [TableNameSize]byte
	copy(padded[:], name)

	parts := make([][]byte, 0, 3+len(keyTuple))
	parts = append(parts, wk, ns, padded[:])
	for i := range keyTuple {
		parts = append(parts, keyTuple[i][:])
	}
	return hex.EncodeToString(Keccak256(parts...)), nil
}

// MustRecordKey is like RecordKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordKey(worldKey, namespace, name string, keyTuple [][32]byte) string {
	key, err := RecordKey(worldKey, namespace, name, keyTuple)
	if err != nil {
		panic(err)
	}
	return key
}
