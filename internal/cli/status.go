package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mudsync/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// StatusReport lists every mirrored world with its namespaces and tables.
type StatusReport struct {
	Worlds []WorldStatus `json:"worlds"`
}

type WorldStatus struct {
	ChainID         uint64            `json:"chain_id"`
	Address         string            `json:"address"`
	LastSyncedBlock uint64            `json:"last_synced_block"`
	Namespaces      []NamespaceStatus `json:"namespaces"`
}

type NamespaceStatus struct {
	ID              string        `json:"namespace_id"`
	LastSyncedBlock *uint64       `json:"last_synced_block,omitempty"`
	Tables          []TableStatus `json:"tables"`
}

type TableStatus struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

func (r StatusReport) String() string {
	if len(r.Worlds) == 0 {
		return "No worlds mirrored.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tWORLD\tNAMESPACE\tCHECKPOINT\tTABLE\tRECORDS")
	for _, world := range r.Worlds {
		for _, ns := range world.Namespaces {
			checkpoint := "-"
			if ns.LastSyncedBlock != nil {
				checkpoint = strconv.FormatUint(*ns.LastSyncedBlock, 10)
			}
			if len(ns.Tables) == 0 {
				fmt.Fprintf(w, "%d\t%s\t0x%s\t%s\t-\t0\n", world.ChainID, world.Address, ns.ID, checkpoint)
			}
			for _, t := range ns.Tables {
				fmt.Fprintf(w, "%d\t%s\t0x%s\t%s\t%s\t%d\n", world.ChainID, world.Address, ns.ID, checkpoint, t.Name, t.Records)
			}
		}
	}
	w.Flush()
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show mirrored worlds, checkpoints and record counts",
		Long: `Report each world, namespace and table in a mirror database with its
checkpoint and record count.

Example:
  mudsync status --db ./mudsync.db
  mudsync status --db ./mudsync.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	f := opts.formatter(cmd)
	f.VerboseLog("Reading %s", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := buildStatus(ctx, st)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read database", err)
	}
	return f.Success(report)
}

func buildStatus(ctx context.Context, st *store.Store) (StatusReport, error) {
	report := StatusReport{Worlds: []WorldStatus{}}

	worlds, err := st.Worlds(ctx)
	if err != nil {
		return report, err
	}
	for _, w := range worlds {
		ws := WorldStatus{
			ChainID:         w.ChainID,
			Address:         w.Address,
			LastSyncedBlock: w.LastSyncedBlock,
			Namespaces:      []NamespaceStatus{},
		}
		nss, err := st.Namespaces(ctx, w.ID)
		if err != nil {
			return report, err
		}
		for _, ns := range nss {
			nst := NamespaceStatus{ID: ns.Hex, LastSyncedBlock: ns.LastSyncedBlock, Tables: []TableStatus{}}
			tables, err := st.Tables(ctx, ns.ID)
			if err != nil {
				return report, err
			}
			for _, t := range tables {
				n, err := st.CountRecords(ctx, t.ID)
				if err != nil {
					return report, err
				}
				nst.Tables = append(nst.Tables, TableStatus{Name: t.Name, Records: n})
			}
			ws.Namespaces = append(ws.Namespaces, nst)
		}
		report.Worlds = append(report.Worlds, ws)
	}
	return report, nil
}
