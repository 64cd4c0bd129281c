package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/roach88/mudsync/internal/config"
	"github.com/roach88/mudsync/internal/telemetry"
)

// errSubscriptionClosed reports a live subscription that ended while the
// command was still running.
var errSubscriptionClosed = errors.New("subscription closed by remote")

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	ChainOptions
	MetricsAddr string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return newSyncCommand(&SyncOptions{RootOptions: rootOpts})
}

func newSyncCommand(opts *SyncOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Backfill, then follow the chain",
		Long: `Mirror a world namespace: backfill from the stored checkpoint, then apply
live logs until interrupted.

A failed attempt (RPC error, dropped subscription) is retried with
exponential backoff as configured under retry. Each attempt resumes from the
checkpoint and logs its own run_id.

Example:
  mudsync sync --config mudsync.yaml
  mudsync sync --config mudsync.yaml --rpc wss://rpc.example.org --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics_addr)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	p, err := openPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.close(logger)

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}

	attempt := func() error {
		log := logger.With("run_id", runIDs.Generate())
		src, err := opts.dial(ctx, cfg.RPCURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("sync attempt failed", "error", err)
			return err
		}
		defer src.Close()

		log.Info("sync starting", "world", p.address.Hex(), "namespace", cfg.Namespace, "db", cfg.Database)
		err = p.syncer(src, log).Run(ctx, p.address, p.namespace)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errSubscriptionClosed
		}
		log.Warn("sync attempt failed", "error", err)
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.Info("retrying sync", "in", next, "error", err)
	}
	if err := backoff.RetryNotify(attempt, retryPolicy(ctx, cfg.Retry), notify); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return WrapExitError(ExitFailure, "sync failed", err)
	}

	logger.Info("sync stopped gracefully")
	return nil
}

// retryPolicy turns the retry settings into an exponential backoff bound
// to ctx. MaxAttempts counts the first attempt; zero never gives up.
func retryPolicy(ctx context.Context, r config.Retry) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.InitialInterval),
		backoff.WithMaxInterval(r.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)

	var b backoff.BackOff = exp
	if r.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, uint64(r.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// serveMetrics registers the pipeline metrics and serves them at /metrics
// until the returned server is shut down.
func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	telemetry.Init(nil)

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", fmt.Errorf("listen %s: %w", addr, err))
		}
	}()
	return srv
}
