package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mudsync/internal/ir"
)

// FindWorld looks up a World by (chainID, address).
func (s *Session) FindWorld(ctx context.Context, chainID uint64, address string) (ir.World, bool, error) {
	return findWorld(ctx, s.tx, chainID, address)
}

// InsertWorld inserts w and returns it with its assigned ID.
// A duplicate (chain_id, address) or unique_key is a constraint error.
func (s *Session) InsertWorld(ctx context.Context, w ir.World) (ir.World, error) {
	res, err := s.tx.ExecContext(ctx, `
		INSERT INTO worlds (chain_id, address, unique_key, last_synced_block)
		VALUES (?, ?, ?, ?)
	`, int64(w.ChainID), w.Address, w.UniqueKey, int64(w.LastSyncedBlock))
	if err != nil {
		return ir.World{}, fmt.Errorf("insert world: %w", err)
	}
	if w.ID, err = res.LastInsertId(); err != nil {
		return ir.World{}, fmt.Errorf("insert world: %w", err)
	}
	return w, nil
}

// AdvanceWorldCheckpoint sets the world checkpoint to max(current, block)
// and returns the resulting value. Returns ErrNotFound if no such world.
func (s *Session) AdvanceWorldCheckpoint(ctx context.Context, worldID int64, block uint64) (uint64, error) {
	var got int64
	err := s.tx.QueryRowContext(ctx, `
		UPDATE worlds SET last_synced_block = MAX(last_synced_block, ?)
		WHERE id = ?
		RETURNING last_synced_block
	`, int64(block), worldID).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("advance world %d checkpoint: %w", worldID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("advance world %d checkpoint: %w", worldID, err)
	}
	return uint64(got), nil
}

// DeleteWorld removes a world. Its namespaces, tables and records go with
// it through ON DELETE CASCADE. Reports whether a row existed.
func (s *Session) DeleteWorld(ctx context.Context, worldID int64) (bool, error) {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM worlds WHERE id = ?`, worldID)
	if err != nil {
		return false, fmt.Errorf("delete world: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete world: %w", err)
	}
	return n > 0, nil
}

// FindNamespace looks up a Namespace by (worldID, namespace hex).
func (s *Session) FindNamespace(ctx context.Context, worldID int64, hex string) (ir.Namespace, bool, error) {
	row := s.tx.QueryRowContext(ctx, `
		SELECT id, world_id, namespace_id, last_synced_block
		FROM namespaces
		WHERE world_id = ? AND namespace_id = ?
	`, worldID, hex)
	ns, err := scanNamespace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Namespace{}, false, nil
	}
	if err != nil {
		return ir.Namespace{}, false, fmt.Errorf("find namespace: %w", err)
	}
	return ns, true, nil
}

// InsertNamespace inserts ns and returns it with its assigned ID.
func (s *Session) InsertNamespace(ctx context.Context, ns ir.Namespace) (ir.Namespace, error) {
	var block sql.NullInt64
	if ns.LastSyncedBlock != nil {
		block = sql.NullInt64{Int64: int64(*ns.LastSyncedBlock), Valid: true}
	}
	res, err := s.tx.ExecContext(ctx, `
		INSERT INTO namespaces (world_id, namespace_id, last_synced_block)
		VALUES (?, ?, ?)
	`, ns.WorldID, ns.Hex, block)
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("insert namespace: %w", err)
	}
	if ns.ID, err = res.LastInsertId(); err != nil {
		return ir.Namespace{}, fmt.Errorf("insert namespace: %w", err)
	}
	return ns, nil
}

// AdvanceNamespaceCheckpoint sets the namespace checkpoint to
// max(current, block), treating an unset checkpoint as lower than any block.
func (s *Session) AdvanceNamespaceCheckpoint(ctx context.Context, nsID int64, block uint64) (uint64, error) {
	var got int64
	err := s.tx.QueryRowContext(ctx, `
		UPDATE namespaces SET last_synced_block = MAX(COALESCE(last_synced_block, 0), ?)
		WHERE id = ?
		RETURNING last_synced_block
	`, int64(block), nsID).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("advance namespace %d checkpoint: %w", nsID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("advance namespace %d checkpoint: %w", nsID, err)
	}
	return uint64(got), nil
}

// FindTable looks up a Table by (namespace row ID, name).
func (s *Session) FindTable(ctx context.Context, nsID int64, name string) (ir.Table, bool, error) {
	var t ir.Table
	err := s.tx.QueryRowContext(ctx, `
		SELECT id, namespace_row_id, name
		FROM store_tables
		WHERE namespace_row_id = ? AND name = ?
	`, nsID, name).Scan(&t.ID, &t.NamespaceID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Table{}, false, nil
	}
	if err != nil {
		return ir.Table{}, false, fmt.Errorf("find table: %w", err)
	}
	return t, true, nil
}

// InsertTable inserts t and returns it with its assigned ID.
func (s *Session) InsertTable(ctx context.Context, t ir.Table) (ir.Table, error) {
	res, err := s.tx.ExecContext(ctx, `
		INSERT INTO store_tables (namespace_row_id, name)
		VALUES (?, ?)
	`, t.NamespaceID, t.Name)
	if err != nil {
		return ir.Table{}, fmt.Errorf("insert table: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return ir.Table{}, fmt.Errorf("insert table: %w", err)
	}
	return t, nil
}

func findWorld(ctx context.Context, q querier, chainID uint64, address string) (ir.World, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, chain_id, address, unique_key, last_synced_block
		FROM worlds
		WHERE chain_id = ? AND address = ?
	`, int64(chainID), address)
	w, err := scanWorld(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.World{}, false, nil
	}
	if err != nil {
		return ir.World{}, false, fmt.Errorf("find world: %w", err)
	}
	return w, true, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorld(row scanner) (ir.World, error) {
	var (
		w              ir.World
		chainID, block int64
	)
	if err := row.Scan(&w.ID, &chainID, &w.Address, &w.UniqueKey, &block); err != nil {
		return ir.World{}, err
	}
	w.ChainID = uint64(chainID)
	w.LastSyncedBlock = uint64(block)
	return w, nil
}

func scanNamespace(row scanner) (ir.Namespace, error) {
	var (
		ns    ir.Namespace
		block sql.NullInt64
	)
	if err := row.Scan(&ns.ID, &ns.WorldID, &ns.Hex, &block); err != nil {
		return ir.Namespace{}, err
	}
	if block.Valid {
		b := uint64(block.Int64)
		ns.LastSyncedBlock = &b
	}
	return ns, nil
}
