package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// BackfillOptions holds flags for the backfill command.
type BackfillOptions struct {
	*RootOptions
	ChainOptions

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
}

// BackfillReport summarizes one backfill pass.
type BackfillReport struct {
	ChainID   uint64 `json:"chain_id"`
	World     string `json:"world"`
	Namespace string `json:"namespace"`
	FromBlock uint64 `json:"from_block"`
	Logs      int    `json:"logs"`
	Failed    int    `json:"failed"`
	LastBlock uint64 `json:"last_block"`
}

func (r BackfillReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backfilled %s namespace %s on chain %d\n", r.World, r.Namespace, r.ChainID)
	fmt.Fprintf(&b, "  from block: %d\n", r.FromBlock)
	fmt.Fprintf(&b, "  logs:       %d (%d failed)\n", r.Logs, r.Failed)
	if r.Logs > 0 {
		fmt.Fprintf(&b, "  last block: %d\n", r.LastBlock)
	}
	return b.String()
}

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	return newBackfillCommand(&BackfillOptions{RootOptions: rootOpts})
}

func newBackfillCommand(opts *BackfillOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Run one backfill pass and exit",
		Long: `Query historical Store events from the stored checkpoint to the chain head,
apply them, and exit without subscribing.

Logs that fail to apply are logged and counted; they do not stop the pass.

Example:
  mudsync backfill --config mudsync.yaml
  mudsync backfill --config mudsync.yaml --block-range 5000 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(opts, cmd)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runBackfill(opts *BackfillOptions, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat).With("run_id", runID)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f := opts.formatter(cmd)
	f.RunID = runID

	p, err := openPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.close(logger)

	f.VerboseLog("Connecting to %s", cfg.RPCURL)
	src, err := opts.dial(ctx, cfg.RPCURL)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to connect", err)
	}
	defer src.Close()

	s := p.syncer(src, logger)
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read chain id", err)
	}
	f.VerboseLog("Backfilling %s on chain %d", p.address.Hex(), chainID)
	res, err := s.Backfill(ctx, p.address, p.namespace)
	if err != nil {
		return WrapExitError(ExitFailure, "backfill failed", err)
	}

	return f.Success(BackfillReport{
		ChainID:   chainID,
		World:     p.address.Hex(),
		Namespace: fmt.Sprintf("0x%x", p.namespace[:]),
		FromBlock: res.From,
		Logs:      res.Logs,
		Failed:    res.Failed,
		LastBlock: res.Last.Block,
	})
}
