// Package config loads opensurgery.toml.
//
// The file has one table per concern. Every key is optional; missing keys
// keep the defaults of [Default]:
//
//	[estimator]
//	physical_error_rate = 1e-3
//	safety_factor = 99
//
//	[topology]
//	max_rows = 12
//	size_from_estimate = true
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// Files ending in .yaml or .yml are read as YAML with the same keys.
// A few OPENSURGERY_* environment variables override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// FileName is the config file looked up in the working directory.
const FileName = "opensurgery.toml"

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config is the full configuration.
type Config struct {
	Estimator estimate.Params `toml:"estimator" yaml:"estimator" json:"estimator"`
	Topology  Topology        `toml:"topology" yaml:"topology" json:"topology"`
	Scheduler Scheduler       `toml:"scheduler" yaml:"scheduler" json:"scheduler"`
	Cache     Cache           `toml:"cache" yaml:"cache" json:"cache"`
	Store     Store           `toml:"store" yaml:"store" json:"store"`
	Server    Server          `toml:"server" yaml:"server" json:"server"`
}

// Topology configures grid generation.
type Topology struct {
	Block            topology.Block `toml:"block" yaml:"block" json:"block"`
	MaxRows          int            `toml:"max_rows" yaml:"max_rows" json:"max_rows"`
	SizeFromEstimate bool           `toml:"size_from_estimate" yaml:"size_from_estimate" json:"size_from_estimate"`
}

// Scheduler configures the spacetime layout.
type Scheduler struct {
	// Bounded caps the time axis at the worst-case number of slices.
	Bounded bool `toml:"bounded" yaml:"bounded" json:"bounded"`
}

// Cache selects the result cache backend.
type Cache struct {
	Backend       string `toml:"backend" yaml:"backend" json:"backend"`
	Dir           string `toml:"dir" yaml:"dir" json:"dir,omitempty"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr" json:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password" json:"-"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db" json:"redis_db,omitempty"`
	// TTL overrides the per-kind defaults, e.g. "24h".
	TTL string `toml:"ttl" yaml:"ttl" json:"ttl,omitempty"`
}

// Store selects where compile and estimate runs are recorded.
type Store struct {
	Backend  string `toml:"backend" yaml:"backend" json:"backend"`
	Path     string `toml:"path" yaml:"path" json:"path,omitempty"`
	MongoURI string `toml:"mongo_uri" yaml:"mongo_uri" json:"-"`
	Database string `toml:"database" yaml:"database" json:"database,omitempty"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Estimator: estimate.DefaultParams(),
		Topology: Topology{
			Block:            topology.DefaultBlock,
			MaxRows:          topology.DefaultMaxRows,
			SizeFromEstimate: true,
		},
		Scheduler: Scheduler{Bounded: true},
		Cache:     Cache{Backend: BackendFile, RedisAddr: "localhost:6379"},
		Store:     Store{Backend: BackendSQLite, Database: "opensurgery"},
		Server:    Server{Addr: ":8080"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, oserrors.Wrap(oserrors.ErrCodeInvalidConfig, err, "read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, oserrors.Wrap(oserrors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(path))
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENSURGERY_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("OPENSURGERY_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("OPENSURGERY_MONGO_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := os.Getenv("OPENSURGERY_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks backend names and values the loaders cannot type-check.
func (c *Config) Validate() error {
	if err := c.Estimator.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendNone, BackendFile, BackendRedis:
	default:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case BackendNone, BackendSQLite, BackendMongo:
	default:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "store backend mongo needs mongo_uri")
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return err
	}
	if err := topology.CheckLimits(c.Topology.Block, c.Topology.MaxRows); err != nil {
		return oserrors.Wrap(oserrors.ErrCodeInvalidConfig, err, "topology")
	}
	return nil
}

// TTLDuration parses the cache TTL override; zero means per-kind defaults.
func (c Cache) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, oserrors.Wrap(oserrors.ErrCodeInvalidConfig, err, "cache ttl %q", c.TTL)
	}
	return d, nil
}

// Save writes c as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
