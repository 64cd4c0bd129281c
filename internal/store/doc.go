// Package store provides SQLite-backed storage for the mirrored table store.
//
// The schema is a strict hierarchy:
//   - worlds: one row per (chain_id, address), carrying the world checkpoint
//   - namespaces: one row per (world, namespace id), with its own checkpoint
//   - store_tables: one row per (namespace, table name)
//   - records: one row per record key, holding the raw blobs and decoded fields
//
// Children reference their parent by foreign key with ON DELETE CASCADE.
// Nothing points back up the tree.
//
// # Writes
//
// All writes go through a Session obtained from Store.Begin. A store admits
// one open session at a time; Begin blocks until the previous session has
// committed or rolled back. This serializes every get-or-create path so two
// concurrent dispatches can never insert the same World twice.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Record fields are stored as RFC 8785 canonical JSON (see internal/ir).
package store
