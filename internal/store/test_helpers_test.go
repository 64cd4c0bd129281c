package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/mudsync/internal/ir"
)

const testAddress = "0xfF5Be16460704eFd0263dB1444Eaa216b77477c5"

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRecord inserts one row at each level of the hierarchy and returns
// the table the record belongs to.
func seedRecord(t *testing.T, s *Store) ir.Table {
	t.Helper()
	ctx := context.Background()

	var table ir.Table
	err := s.WithSession(ctx, func(sess *Session) error {
		w, err := sess.InsertWorld(ctx, ir.World{ChainID: 420, Address: testAddress, UniqueKey: "wk", LastSyncedBlock: 1})
		if err != nil {
			return err
		}
		block := uint64(1)
		ns, err := sess.InsertNamespace(ctx, ir.Namespace{WorldID: w.ID, Hex: "0000000000000000000000000001", LastSyncedBlock: &block})
		if err != nil {
			return err
		}
		table, err = sess.InsertTable(ctx, ir.Table{NamespaceID: ns.ID, Name: "OrientationCom"})
		if err != nil {
			return err
		}
		return sess.PutRecord(ctx, ir.Record{
			Key:         "rk",
			TableID:     table.ID,
			KeyTuple:    [][32]byte{{31: 1}},
			StaticData:  []byte{0x0a},
			Fields:      ir.IRObject{"value": ir.IRInt(10)},
			BlockNumber: 1,
		})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return table
}
