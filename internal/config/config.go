// Package config loads the mudsync configuration file.
//
// A file is checked in three stages: its shape against an embedded CUE
// schema, then defaults are applied, then semantic checks that need the
// decoders (addresses, namespaces, field types).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mudsync/internal/handler"
	"github.com/roach88/mudsync/internal/protocol"
	"github.com/roach88/mudsync/internal/resource"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Defaults.
const (
	DefaultDatabase        = "mudsync.db"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = time.Minute
	DefaultCacheSize       = 1024
)

// Config is the top-level configuration.
type Config struct {
	RPCURL       string  `yaml:"rpc_url" json:"rpc_url"`
	WorldAddress string  `yaml:"world_address" json:"world_address"`
	Namespace    string  `yaml:"namespace" json:"namespace"`
	Database     string  `yaml:"database" json:"database"`
	BlockRange   uint64  `yaml:"block_range" json:"block_range"`
	LogLevel     string  `yaml:"log_level" json:"log_level"`
	LogFormat    string  `yaml:"log_format" json:"log_format"`
	MetricsAddr  string  `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
	CacheSize    int     `yaml:"cache_size" json:"cache_size"`
	Retry        Retry   `yaml:"retry" json:"retry"`
	Tables       []Table `yaml:"tables" json:"tables"`
}

// Retry bounds the restart loop of the sync command. MaxAttempts 0 retries
// forever.
type Retry struct {
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval"`
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`
}

// Table declares one table to mirror and the layout of its records. Fields
// are written "type name", for example "uint32 x".
type Table struct {
	Name    string   `yaml:"name" json:"name"`
	Key     []string `yaml:"key" json:"key,omitempty"`
	Static  []string `yaml:"static" json:"static,omitempty"`
	Dynamic []string `yaml:"dynamic" json:"dynamic,omitempty"`
}

// Load reads and checks the file at path. Required chain settings are not
// enforced here so that command-line flags can still supply them; call
// Validate once overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data, checks it against the schema and applies
// defaults.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := checkSchema(raw); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// checkSchema unifies raw with #Config from the embedded schema.
func checkSchema(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = DefaultInitialInterval
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = DefaultMaxInterval
	}
}

// Validate runs the semantic checks. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc_url is required"))
	}
	if !common.IsHexAddress(c.WorldAddress) {
		errs = append(errs, fmt.Errorf("world_address %q is not a hex address", c.WorldAddress))
	}
	if _, err := resource.ParseNamespace(c.Namespace); err != nil {
		errs = append(errs, err)
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		errs = append(errs, fmt.Errorf("retry.max_interval %s is below initial_interval %s", c.Retry.MaxInterval, c.Retry.InitialInterval))
	}

	seen := make(map[string]bool, len(c.Tables))
	for i, t := range c.Tables {
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("tables[%d]: duplicate table %q", i, t.Name))
		}
		seen[t.Name] = true
		if len(t.Name) > resource.NameSize {
			errs = append(errs, fmt.Errorf("tables[%d]: name %q exceeds %d bytes", i, t.Name, resource.NameSize))
		}
		if _, err := t.Schema(); err != nil {
			errs = append(errs, fmt.Errorf("tables[%d] %s: %w", i, t.Name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Address returns the world address.
func (c *Config) Address() common.Address {
	return common.HexToAddress(c.WorldAddress)
}

// NamespaceID returns the namespace bytes.
func (c *Config) NamespaceID() ([resource.NamespaceSize]byte, error) {
	return resource.ParseNamespace(c.Namespace)
}

// Schema parses the table's field declarations.
func (t Table) Schema() (protocol.Schema, error) {
	return protocol.NewSchema(t.Key, t.Static, t.Dynamic)
}

// Registry builds a handler registry with one schema handler per table.
func (c *Config) Registry() (*handler.Registry, error) {
	reg := handler.NewRegistry()
	for _, t := range c.Tables {
		schema, err := t.Schema()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		if err := reg.Register(t.Name, handler.NewSchemaHandler(schema)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
