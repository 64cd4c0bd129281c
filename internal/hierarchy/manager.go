// Package hierarchy resolves the World, Namespace and Table rows an event
// belongs to, creating them on first sight.
//
// Every method takes the caller's open store.Session, so a whole dispatch
// (hierarchy rows plus the record write) commits or rolls back as one unit.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/resource"
	"github.com/roach88/mudsync/internal/store"
	"github.com/roach88/mudsync/internal/telemetry"
)

// DefaultCacheSize bounds each of the row caches.
const DefaultCacheSize = 1024

// Manager implements get-or-create for the entity hierarchy.
//
// Rows resolved inside a session are cached only once that session commits,
// so a rolled-back dispatch never leaves a row ID in the cache that the
// database does not have.
type Manager struct {
	worlds     *lru.Cache[string, ir.World]
	namespaces *lru.Cache[string, ir.Namespace]
	tables     *lru.Cache[string, ir.Table]
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	cacheSize int
	logger    *slog.Logger
}

// WithCacheSize sets the capacity of each row cache.
func WithCacheSize(n int) Option {
	return func(c *managerConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithLogger sets the logger used for hierarchy creation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *managerConfig) {
		c.logger = l
	}
}

// New creates a Manager.
func New(opts ...Option) (*Manager, error) {
	cfg := managerConfig{cacheSize: DefaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	worlds, err := lru.New[string, ir.World](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("world cache: %w", err)
	}
	namespaces, err := lru.New[string, ir.Namespace](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("namespace cache: %w", err)
	}
	tables, err := lru.New[string, ir.Table](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("table cache: %w", err)
	}

	return &Manager{worlds: worlds, namespaces: namespaces, tables: tables, logger: cfg.logger}, nil
}

func worldCacheKey(chainID uint64, address string) string {
	return "w/" + strconv.FormatUint(chainID, 10) + "/" + address
}

func namespaceCacheKey(worldID int64, hex string) string {
	return "n/" + strconv.FormatInt(worldID, 10) + "/" + hex
}

func tableCacheKey(nsID int64, name string) string {
	return "t/" + strconv.FormatInt(nsID, 10) + "/" + name
}

// GetOrCreateWorld returns the World for (chainID, address), creating it
// with checkpoint block if absent. An existing world's checkpoint advances
// to max(current, block).
func (m *Manager) GetOrCreateWorld(ctx context.Context, sess *store.Session, chainID uint64, address common.Address, block uint64) (ir.World, error) {
	addr := address.Hex()
	key := worldCacheKey(chainID, addr)

	w, ok := m.worlds.Get(key)
	if !ok {
		found, exists, err := sess.FindWorld(ctx, chainID, addr)
		if err != nil {
			return ir.World{}, fmt.Errorf("get world: %w", err)
		}
		w, ok = found, exists
	}

	if ok {
		cp, err := sess.AdvanceWorldCheckpoint(ctx, w.ID, block)
		switch {
		case err == nil:
			w.LastSyncedBlock = cp
			sess.OnCommit(func() { m.worlds.Add(key, w) })
			return w, nil
		case errors.Is(err, store.ErrNotFound):
			// Deleted since it was cached.
			m.worlds.Remove(key)
		default:
			return ir.World{}, fmt.Errorf("get world: %w", err)
		}
	}

	w, err := sess.InsertWorld(ctx, ir.World{
		ChainID:         chainID,
		Address:         addr,
		UniqueKey:       ir.WorldKey(chainID, address),
		LastSyncedBlock: block,
	})
	if err != nil {
		return ir.World{}, fmt.Errorf("create world: %w", err)
	}
	m.logger.Info("created world", "chain_id", chainID, "address", addr, "block", block)
	sess.OnCommit(func() { m.worlds.Add(key, w) })
	return w, nil
}

// GetOrCreateNamespace returns the Namespace of res under world, creating it
// with checkpoint block if absent. An existing namespace's checkpoint
// advances to max(current, block).
func (m *Manager) GetOrCreateNamespace(ctx context.Context, sess *store.Session, res resource.Resource, world ir.World, block uint64) (ir.Namespace, error) {
	hex := res.NamespaceHex()
	key := namespaceCacheKey(world.ID, hex)

	ns, ok := m.namespaces.Get(key)
	if !ok {
		found, exists, err := sess.FindNamespace(ctx, world.ID, hex)
		if err != nil {
			return ir.Namespace{}, fmt.Errorf("get namespace: %w", err)
		}
		ns, ok = found, exists
	}

	if ok {
		cp, err := sess.AdvanceNamespaceCheckpoint(ctx, ns.ID, block)
		switch {
		case err == nil:
			ns.LastSyncedBlock = &cp
			ns.WorldKey = world.UniqueKey
			m.publishNamespace(sess, key, ns)
			return ns, nil
		case errors.Is(err, store.ErrNotFound):
			m.namespaces.Remove(key)
		default:
			return ir.Namespace{}, fmt.Errorf("get namespace: %w", err)
		}
	}

	ns, err := sess.InsertNamespace(ctx, ir.Namespace{
		WorldID:         world.ID,
		Hex:             hex,
		LastSyncedBlock: &block,
	})
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("create namespace: %w", err)
	}
	ns.WorldKey = world.UniqueKey
	m.logger.Info("created namespace", "world_id", world.ID, "namespace", hex, "block", block)
	m.publishNamespace(sess, key, ns)
	return ns, nil
}

func (m *Manager) publishNamespace(sess *store.Session, key string, ns ir.Namespace) {
	sess.OnCommit(func() {
		m.namespaces.Add(key, ns)
		telemetry.SetCheckpoint(ns.Hex, *ns.LastSyncedBlock)
	})
}

// GetOrCreateTable returns the Table named by res under ns, creating it if
// absent. The returned Table carries its parents' world key and namespace
// hex.
func (m *Manager) GetOrCreateTable(ctx context.Context, sess *store.Session, res resource.Resource, ns ir.Namespace) (ir.Table, error) {
	key := tableCacheKey(ns.ID, res.Name)

	t, ok := m.tables.Get(key)
	if !ok {
		found, exists, err := sess.FindTable(ctx, ns.ID, res.Name)
		if err != nil {
			return ir.Table{}, fmt.Errorf("get table: %w", err)
		}
		if !exists {
			found, err = sess.InsertTable(ctx, ir.Table{NamespaceID: ns.ID, Name: res.Name})
			if err != nil {
				return ir.Table{}, fmt.Errorf("create table: %w", err)
			}
			m.logger.Info("created table", "namespace", ns.Hex, "table", res.Name)
		}
		t = found
		sess.OnCommit(func() { m.tables.Add(key, t) })
	}

	t.WorldKey = ns.WorldKey
	t.Namespace = ns.Hex
	return t, nil
}
