package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/store"
	"github.com/roach88/mudsync/internal/testutil"
)

func TestStatus_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, NewStatusCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestStatus_RequiresDB(t *testing.T) {
	_, _, err := execute(t, NewStatusCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestStatus_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, stderr, err := execute(t, NewStatusCommand(&RootOptions{Format: "text", Verbose: true}), "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No worlds mirrored.\n", out)
	assert.Equal(t, "Reading "+dbPath+"\n", stderr)

	out, _, err = execute(t, NewStatusCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var report StatusReport
	decodeData(t, out, &report)
	assert.Empty(t, report.Worlds)
}

func TestStatus_TextTable(t *testing.T) {
	path, dbPath := writeConfig(t, "")
	d := newFakeDialer()
	logs := testutil.NewLogBuilder(t, testWorld, testNamespace)
	d.chain.Append(
		logs.At(4).SetRecord("OrientationCom", testutil.Keys(1), []byte{10}, [32]byte{}, nil),
		logs.At(4).SetRecord("OrientationCom", testutil.Keys(2), []byte{11}, [32]byte{}, nil),
	)
	_, _, err := execute(t, newBackfillCommand(newTestBackfill(d, "text")), "--config", path)
	require.NoError(t, err)

	out, _, err := execute(t, NewStatusCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "CHAIN")
	assert.Contains(t, out, "RECORDS")
	assert.Contains(t, out, "31337")
	assert.Contains(t, out, testWorld.Hex())
	assert.Contains(t, out, "0x0000000000000000000000000001")
	assert.Contains(t, out, "OrientationCom")

	out, _, err = execute(t, NewStatusCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var report StatusReport
	decodeData(t, out, &report)
	require.Len(t, report.Worlds, 1)
	w := report.Worlds[0]
	assert.Equal(t, uint64(31337), w.ChainID)
	assert.Equal(t, uint64(4), w.LastSyncedBlock)
	require.Len(t, w.Namespaces, 1)
	ns := w.Namespaces[0]
	assert.Equal(t, "0000000000000000000000000001", ns.ID)
	require.NotNil(t, ns.LastSyncedBlock)
	assert.Equal(t, uint64(4), *ns.LastSyncedBlock)
	assert.Equal(t, []TableStatus{{Name: "OrientationCom", Records: 2}}, ns.Tables)
}
