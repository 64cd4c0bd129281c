package ir

// World is one indexed contract instance on one chain.
//
// (ChainID, Address) is unique; UniqueKey is WorldKey(ChainID, Address).
type World struct {
	ID              int64  `json:"id"`
	ChainID         uint64 `json:"chain_id"`
	Address         string `json:"address"` // EIP-55 checksummed hex
	UniqueKey       string `json:"unique_key"`
	LastSyncedBlock uint64 `json:"last_synced_block"`
}

// Namespace is a 14-byte scope grouping tables under a World.
//
// (WorldID, Hex) is unique.
type Namespace struct {
	ID      int64  `json:"id"`
	WorldID int64  `json:"world_id"`
	Hex     string `json:"namespace_id"` // 28 lowercase hex chars, no 0x prefix

	// LastSyncedBlock is nil until a log for this namespace has been applied.
	LastSyncedBlock *uint64 `json:"last_synced_block,omitempty"`

	WorldKey string `json:"-"` // unique key of the parent World
}

// Table is a named collection of records under a Namespace.
//
// (NamespaceID, Name) is unique. WorldKey and Namespace are carried along
// from the parent rows so record handlers can derive record identity without
// walking back up the hierarchy.
type Table struct {
	ID          int64  `json:"id"`
	NamespaceID int64  `json:"namespace_row_id"`
	Name        string `json:"name"`

	WorldKey  string `json:"-"`
	Namespace string `json:"-"` // namespace hex of the parent row
}

// Record is one mirrored row of a Table.
//
// Key is RecordKey(world, namespace, table, KeyTuple); re-applying the same
// event for the same key tuple overwrites the row in place.
type Record struct {
	Key            string     `json:"key"`
	TableID        int64      `json:"table_id"`
	KeyTuple       [][32]byte `json:"key_tuple"`
	StaticData     []byte     `json:"static_data"`
	EncodedLengths []byte     `json:"encoded_lengths"`
	DynamicData    []byte     `json:"dynamic_data"`
	Fields         IRObject   `json:"fields"`
	BlockNumber    uint64     `json:"block_number"`
}
