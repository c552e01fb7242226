package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spacecache/spacecache/internal/cda"
	"github.com/spacecache/spacecache/internal/config"
	"github.com/spacecache/spacecache/internal/space"
	"github.com/spacecache/spacecache/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagSpaceID     string
	flagAccessToken string
	flagJSON        bool
	flagVerbose     bool
	flagQuiet       bool
)

// resolvedCfg holds the effective configuration loaded by
// PersistentPreRunE, available to all subcommands after the root
// pre-run phase completes.
var resolvedCfg *config.Config

// httpClientTimeout is the default timeout for delivery API requests.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spacecache",
		Short: "Mirror a content space into a local queryable cache",
		Long: `spacecache mirrors a remote content space (content types, entries,
and assets) into a local sqlite database, keeps it fresh with incremental
delta syncs, and serves fully link-resolved views of the content.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.CLIOverrides{
				ConfigPath:  flagConfigPath,
				SpaceID:     flagSpaceID,
				AccessToken: flagAccessToken,
			})
			if err != nil {
				return err
			}

			resolvedCfg = cfg
			slog.SetDefault(buildLogger(cfg))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagSpaceID, "space", "", "space id (overrides config)")
	cmd.PersistentFlags().StringVar(&flagAccessToken, "access-token", "", "delivery API token (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "errors only")

	cmd.AddCommand(
		newSyncCmd(),
		newStatusCmd(),
		newGetCmd(),
		newFindCmd(),
		newExportCmd(),
		newServeCmd(),
	)

	return cmd
}

// buildLogger creates an slog.Logger configured by the resolved config
// and the --verbose/--quiet/--json flags. Logs go to stderr; when
// logging.log_file is set they go to a size-rotated file instead.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr

	if cfg.Logging.LogFile != "" {
		out = &lumberjack.Logger{
			Filename: cfg.Logging.LogFile,
			MaxAge:   cfg.Logging.LogRetentionDays,
			Compress: true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(cfg) {
		return slog.New(slog.NewJSONHandler(out, opts))
	}

	return slog.New(slog.NewTextHandler(out, opts))
}

// useJSONLogs decides the log format: explicit config wins, then --json,
// then "text on a terminal, JSON otherwise".
func useJSONLogs(cfg *config.Config) bool {
	switch cfg.Logging.LogFormat {
	case "json":
		return true
	case "text":
		return false
	}

	if flagJSON {
		return true
	}

	if cfg.Logging.LogFile != "" {
		return true
	}

	return !isatty.IsTerminal(os.Stderr.Fd())
}

// openEngine opens the store and wires the consumer-facing engine.
// The caller must close the returned store.
func openEngine(cfg *config.Config) (*space.Engine, *store.Store, error) {
	cacheDir, err := cfg.EnsureCacheDir()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(config.DatabasePath(cacheDir, cfg.Space.ID), slog.Default())
	if err != nil {
		return nil, nil, err
	}

	resolver := store.NewResolver(st, slog.Default(), cfg.Resolve.Concurrency)
	engine := space.NewEngine(st, resolver, slog.Default(), config.StatePath(cacheDir, cfg.Space.ID))

	return engine, st, nil
}

// newCoordinator wires the sync pipeline: API client, ingestor,
// coordinator. policy overrides the configured cache policy when
// non-empty (used by sync --force).
func newCoordinator(cfg *config.Config, st *store.Store, policy string) *space.Coordinator {
	if policy == "" {
		policy = cfg.Cache.Policy
	}

	client := cda.NewClient(
		cfg.Space.BaseURL,
		cfg.Space.ID,
		defaultHTTPClient(),
		cda.StaticToken(cfg.Space.AccessToken),
		slog.Default(),
	)

	ingestor := space.NewIngestor(client, st, slog.Default(), cfg.Ingest.Concurrency, cfg.Ingest.PageSize)

	cacheDir, _ := cfg.EnsureCacheDir()

	return space.NewCoordinator(
		client, st, ingestor, slog.Default(),
		cfg.Space.ID,
		config.StatePath(cacheDir, cfg.Space.ID),
		policy,
		cfg.TTLDuration(),
	)
}

// exitOnError prints an error to stderr and exits non-zero.
func exitOnError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
