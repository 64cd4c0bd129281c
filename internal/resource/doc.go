// Package resource encodes and decodes 32-byte store resource identifiers.
//
// A resource ID partitions the on-chain table store:
//
//	[0:2]   type tag ("tb", "ot", "ns", "md", "sy")
//	[2:16]  namespace, zero-padded to 14 bytes
//	[16:32] name, zero-padded to 16 bytes
//
// Every Store_* event carries the table's resource ID as its first argument.
// It is the only thing needed to route an event to its Namespace and Table.
package resource
