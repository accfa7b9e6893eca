// Package cli implements the opensurgery command-line interface.
//
// # Commands
//
//   - compile: place an instruction stream on a grid and export the layout
//   - estimate: resource estimate for a workload
//   - sweep: estimator parameter sweeps
//   - render: draw one time slice of an exported layout
//   - inspect: interactive time-slice viewer
//   - serve: run the HTTP API
//   - runs: list and show recorded runs
//   - cache, config, completion: housekeeping
//
// All commands read opensurgery.toml from the working directory unless
// --config points elsewhere. --verbose switches the logger to debug level.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/pkg/buildinfo"
	"github.com/matzehuels/opensurgery/pkg/cache"
	"github.com/matzehuels/opensurgery/pkg/config"
	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "opensurgery"

	// runsFile is the SQLite run index under the data directory.
	runsFile = "runs.db"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		configPath: config.FileName,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "opensurgery compiles lattice-surgery instruction streams",
		Long:         `opensurgery places Clifford+T instruction streams onto a 2D grid of surface-code patches over time and estimates the physical resources a workload needs.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", c.configPath, "config file (TOML, or YAML by extension)")

	root.AddCommand(c.compileCommand())
	root.AddCommand(c.estimateCommand())
	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config", "path", c.configPath, "cache", cfg.Cache.Backend, "store", cfg.Store.Backend)
	return nil
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config().Cache
	if noCache || cfg.Backend == config.BackendNone {
		return cache.NewNullCache(), nil
	}
	ttl, err := cfg.TTLDuration()
	if err != nil {
		return nil, err
	}

	var cc cache.Cache
	switch cfg.Backend {
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   appName + ":",
		})
		if err != nil {
			return nil, err
		}
		cc = rc
	default:
		dir, err := c.cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		if cc, err = cache.NewFileCache(dir); err != nil {
			return nil, err
		}
	}
	return cache.WithTTL(cc, ttl), nil
}

// openStore opens the configured run store. The SQLite index defaults to
// the XDG data directory.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg := c.config().Store
	switch cfg.Backend {
	case config.BackendNone:
		return store.NullStore{}, nil
	case config.BackendMongo:
		return store.OpenMongo(ctx, store.MongoConfig{URI: cfg.MongoURI, Database: cfg.Database})
	default:
		path := cfg.Path
		if path == "" {
			dir, err := dataDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, runsFile)
		}
		return store.OpenSQLite(path)
	}
}

// record saves a run, logging instead of failing when the store is
// unavailable.
func (c *CLI) record(ctx context.Context, kind store.Kind, inputHash, input, summary string, result any) string {
	st, err := c.openStore(ctx)
	if err != nil {
		c.Logger.Warn("run not recorded", "err", err)
		return ""
	}
	defer st.Close()
	if _, ok := st.(store.NullStore); ok {
		return ""
	}

	run, err := store.NewRun(kind, inputHash, input, summary, result)
	if err == nil {
		err = st.SaveRun(ctx, run)
	}
	if err != nil {
		c.Logger.Warn("run not recorded", "err", err)
		return ""
	}
	c.Logger.Debug("recorded run", "id", run.ID, "kind", kind)
	return run.ID
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to the XDG
// standard (~/.cache/opensurgery/).
func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	return cacheDir()
}

func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/opensurgery/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
