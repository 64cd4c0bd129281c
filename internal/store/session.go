package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session is an open write transaction holding the store's writer lock.
// A Session is not safe for concurrent use.
type Session struct {
	store    *Store
	tx       *sql.Tx
	onCommit []func()
	done     bool
}

// OnCommit registers fn to run after the session commits successfully.
// Hooks are discarded on rollback.
func (s *Session) OnCommit(fn func()) {
	s.onCommit = append(s.onCommit, fn)
}

// Commit commits the transaction, releases the writer lock, and runs the
// OnCommit hooks in registration order.
func (s *Session) Commit() error {
	if s.done {
		return errors.New("commit: session already closed")
	}
	s.done = true
	err := s.tx.Commit()
	s.store.writer.Unlock()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	for _, fn := range s.onCommit {
		fn()
	}
	return nil
}

// Rollback aborts the transaction and releases the writer lock.
// It is a no-op on a session that has already been closed.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	err := s.tx.Rollback()
	s.store.writer.Unlock()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
