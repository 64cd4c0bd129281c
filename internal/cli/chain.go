package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/roach88/mudsync/internal/config"
	"github.com/roach88/mudsync/internal/dispatch"
	"github.com/roach88/mudsync/internal/hierarchy"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
	"github.com/roach88/mudsync/internal/syncer"
)

// Source is a log source holding a connection.
type Source interface {
	syncer.LogSource
	Close()
}

// Dialer connects to the JSON-RPC endpoint at url.
type Dialer func(ctx context.Context, url string) (Source, error)

// DialEthereum dials url with go-ethereum's ethclient. Live subscriptions
// need a ws:// or wss:// url.
func DialEthereum(ctx context.Context, url string) (Source, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChainOptions holds the flags shared by commands that talk to a chain.
// Flags override values from the config file.
type ChainOptions struct {
	ConfigPath string
	RPCURL     string
	World      string
	Namespace  string
	Database   string
	BlockRange uint64

	// Dial connects to the chain. If nil, defaults to DialEthereum.
	Dial Dialer
}

func (o *ChainOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.ConfigPath, "config", "c", "", "path to YAML config file")
	f.StringVar(&o.RPCURL, "rpc", "", "JSON-RPC endpoint (overrides rpc_url)")
	f.StringVar(&o.World, "world", "", "world contract address (overrides world_address)")
	f.StringVar(&o.Namespace, "namespace", "", "namespace to mirror (overrides namespace)")
	f.StringVar(&o.Database, "db", "", "path to SQLite database (overrides database)")
	f.Uint64Var(&o.BlockRange, "block-range", 0, "blocks per backfill query, 0 for one query (overrides block_range)")
}

// load reads the config file, applies flag overrides and validates the
// result.
func (o *ChainOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}

	f := cmd.Flags()
	if f.Changed("rpc") {
		cfg.RPCURL = o.RPCURL
	}
	if f.Changed("world") {
		cfg.WorldAddress = o.World
	}
	if f.Changed("namespace") {
		cfg.Namespace = o.Namespace
	}
	if f.Changed("db") {
		cfg.Database = o.Database
	}
	if f.Changed("block-range") {
		cfg.BlockRange = o.BlockRange
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

func (o *ChainOptions) dial(ctx context.Context, url string) (Source, error) {
	dial := o.Dial
	if dial == nil {
		dial = DialEthereum
	}
	src, err := dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return src, nil
}

// pipeline is the store and dispatcher for one configured world.
type pipeline struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	address    common.Address
	namespace  [resource.NamespaceSize]byte
	blockRange uint64
}

func openPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	ns, err := cfg.NamespaceID()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid namespace", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid tables", err)
	}
	m, err := hierarchy.New(hierarchy.WithCacheSize(cfg.CacheSize), hierarchy.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &pipeline{
		store:      st,
		dispatcher: dispatch.New(st, m, reg, dispatch.WithLogger(logger)),
		address:    cfg.Address(),
		namespace:  ns,
		blockRange: cfg.BlockRange,
	}, nil
}

func (p *pipeline) syncer(src syncer.LogSource, logger *slog.Logger) *syncer.Syncer {
	return syncer.New(src, p.dispatcher, p.store,
		syncer.WithBlockRange(p.blockRange),
		syncer.WithLogger(logger),
	)
}

func (p *pipeline) close(logger *slog.Logger) {
	if err := p.store.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
