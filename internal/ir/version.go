package ir

// Version constants for the mirror schema and indexer.
const (
	// SchemaVersion is the version of the mirrored row layout.
	SchemaVersion = "1"

	// IndexerVersion is the mudsync release version.
	IndexerVersion = "0.1.0"
)
