// Package protocol decodes records of the on-chain table store into IR
// field values.
//
// A record is stored on chain as three blobs plus its key tuple:
//
//	keyTuple        one 32-byte word per key field (ABI alignment)
//	staticData      static fields packed tightly, big-endian, in schema order
//	encodedLengths  a packed counter of the dynamic field byte lengths
//	dynamicData     dynamic fields concatenated in schema order
//
// Schema describes the field layout of one table and turns the blobs into
// an ir.IRObject keyed by field name.
package protocol
