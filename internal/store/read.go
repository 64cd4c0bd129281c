package store

import (
	"context"
	"fmt"

	"github.com/roach88/mudsync/internal/ir"
)

// Worlds returns every world ordered by (chain_id, address).
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) Worlds(ctx context.Context) ([]ir.World, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chain_id, address, unique_key, last_synced_block
		FROM worlds
		ORDER BY chain_id ASC, address COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query worlds: %w", err)
	}
	defer rows.Close()

	worlds := []ir.World{}
	for rows.Next() {
		w, err := scanWorld(rows)
		if err != nil {
			return nil, fmt.Errorf("scan world: %w", err)
		}
		worlds = append(worlds, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worlds: %w", err)
	}
	return worlds, nil
}

// World looks up a single world by (chainID, address).
func (s *Store) World(ctx context.Context, chainID uint64, address string) (ir.World, bool, error) {
	return findWorld(ctx, s.db, chainID, address)
}

// Namespaces returns the namespaces of a world ordered by namespace id.
func (s *Store) Namespaces(ctx context.Context, worldID int64) ([]ir.Namespace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, world_id, namespace_id, last_synced_block
		FROM namespaces
		WHERE world_id = ?
		ORDER BY namespace_id COLLATE BINARY ASC
	`, worldID)
	if err != nil {
		return nil, fmt.Errorf("query namespaces: %w", err)
	}
	defer rows.Close()

	namespaces := []ir.Namespace{}
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate namespaces: %w", err)
	}
	return namespaces, nil
}

// NamespaceCheckpoint returns the last synced block of a namespace.
// ok is false if the world or namespace has never been seen, or no log for
// the namespace has been applied.
func (s *Store) NamespaceCheckpoint(ctx context.Context, chainID uint64, address, nsHex string) (block uint64, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.last_synced_block
		FROM namespaces n
		JOIN worlds w ON n.world_id = w.id
		WHERE w.chain_id = ? AND w.address = ? AND n.namespace_id = ? AND n.last_synced_block IS NOT NULL
	`, int64(chainID), address, nsHex)
	if err != nil {
		return 0, false, fmt.Errorf("query namespace checkpoint: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var b int64
	if err := rows.Scan(&b); err != nil {
		return 0, false, fmt.Errorf("scan namespace checkpoint: %w", err)
	}
	return uint64(b), true, nil
}

// Tables returns the tables of a namespace ordered by name.
func (s *Store) Tables(ctx context.Context, nsID int64) ([]ir.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, namespace_row_id, name
		FROM store_tables
		WHERE namespace_row_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, nsID)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []ir.Table{}
	for rows.Next() {
		var t ir.Table
		if err := rows.Scan(&t.ID, &t.NamespaceID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Records returns the records of a table ordered by key tuple.
func (s *Store) Records(ctx context.Context, tableID int64) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unique_key, table_id, key_tuple, static_data, encoded_lengths, dynamic_data, fields, block_number
		FROM records
		WHERE table_id = ?
		ORDER BY key_tuple COLLATE BINARY ASC, unique_key COLLATE BINARY ASC
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// CountRecords returns the number of records in a table.
func (s *Store) CountRecords(ctx context.Context, tableID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE table_id = ?`, tableID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Counts returns the total number of rows at each level of the hierarchy.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM worlds),
			(SELECT COUNT(*) FROM namespaces),
			(SELECT COUNT(*) FROM store_tables),
			(SELECT COUNT(*) FROM records)
	`).Scan(&c.Worlds, &c.Namespaces, &c.Tables, &c.Records)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

// Counts holds row totals per hierarchy level.
type Counts struct {
	Worlds     int `json:"worlds"`
	Namespaces int `json:"namespaces"`
	Tables     int `json:"tables"`
	Records    int `json:"records"`
}
