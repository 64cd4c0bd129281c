package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/testutil"
)

var (
	testWorld     = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testNamespace = [resource.NamespaceSize]byte{13: 1}
)

// writeConfig writes a config for testWorld with an OrientationCom table
// and returns its path and database path. extra is appended verbatim.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mirror.db")
	content := `
rpc_url: ws://localhost:8545
world_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
namespace: "0x0000000000000000000000000001"
database: ` + dbPath + `
log_level: debug
tables:
  - name: OrientationCom
    key: ["uint8 id"]
    static: ["uint8 value"]
` + extra
	path := filepath.Join(dir, "mudsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dbPath
}

// fakeDialer always hands out chain and records the urls it was asked for.
type fakeDialer struct {
	chain *testutil.FakeChain
	urls  []string
	err   error
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Source, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	return d.chain, nil
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{chain: testutil.NewFakeChain(big.NewInt(31337))}
}

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// decodeData unmarshals the data of a JSON CLIResponse into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
	return resp.CLIResponse
}
