package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mudsync/internal/ir"
)

// GetRecord returns the record with the given unique key.
func (s *Session) GetRecord(ctx context.Context, key string) (ir.Record, bool, error) {
	row := s.tx.QueryRowContext(ctx, `
		SELECT unique_key, table_id, key_tuple, static_data, encoded_lengths, dynamic_data, fields, block_number
		FROM records
		WHERE unique_key = ?
	`, key)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, fmt.Errorf("get record: %w", err)
	}
	return r, true, nil
}

// PutRecord inserts r, or overwrites every column of the existing row with
// the same key. Re-applying the same record is a no-op in effect.
func (s *Session) PutRecord(ctx context.Context, r ir.Record) error {
	fieldsJSON, err := marshalFields(r.Fields)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO records
		(unique_key, table_id, key_tuple, static_data, encoded_lengths, dynamic_data, fields, block_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_key) DO UPDATE SET
			table_id = excluded.table_id,
			key_tuple = excluded.key_tuple,
			static_data = excluded.static_data,
			encoded_lengths = excluded.encoded_lengths,
			dynamic_data = excluded.dynamic_data,
			fields = excluded.fields,
			block_number = excluded.block_number
	`,
		r.Key,
		r.TableID,
		marshalKeyTuple(r.KeyTuple),
		nonNil(r.StaticData),
		nonNil(r.EncodedLengths),
		nonNil(r.DynamicData),
		fieldsJSON,
		int64(r.BlockNumber),
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record with the given key and reports whether a
// row existed.
func (s *Session) DeleteRecord(ctx context.Context, key string) (bool, error) {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM records WHERE unique_key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return n > 0, nil
}

func scanRecord(row scanner) (ir.Record, error) {
	var (
		r                ir.Record
		keyTuple, fields string
		block            int64
	)
	if err := row.Scan(&r.Key, &r.TableID, &keyTuple, &r.StaticData, &r.EncodedLengths, &r.DynamicData, &fields, &block); err != nil {
		return ir.Record{}, err
	}

	var err error
	if r.KeyTuple, err = unmarshalKeyTuple(keyTuple); err != nil {
		return ir.Record{}, err
	}
	if r.Fields, err = unmarshalFields(fields); err != nil {
		return ir.Record{}, err
	}
	r.BlockNumber = uint64(block)
	return r, nil
}
