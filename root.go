package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tvuorinen/flickrarc/internal/config"
	"github.com/tvuorinen/flickrarc/internal/flickr"
	"github.com/tvuorinen/flickrarc/internal/tokenfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// loadedCfg holds the effective configuration loaded by PersistentPreRunE.
var loadedCfg *config.Config

// httpClientTimeout bounds API and thumbnail requests so a hung connection
// cannot stall a sync run indefinitely.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flickrarc",
		Short:   "Flickr photo archive",
		Long:    "Incrementally mirrors a Flickr account's albums, photos, and comments into a local SQLite archive with a built-in browsing UI.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

// loadConfig loads the config file into loadedCfg. An explicit --config path
// must exist; the default path is optional and falls back to defaults.
func loadConfig() error {
	var (
		cfg *config.Config
		err error
	)

	if flagConfigPath != "" {
		cfg, err = config.Load(flagConfigPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultConfigPath())
	}

	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loadedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the loaded config and CLI
// flags. Config-file log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win. Non-TTY stderr gets JSON lines
// so logs piped to a file stay machine-parseable.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if loadedCfg != nil {
		switch loadedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newFlickrClient loads credentials and the session token and builds an API
// client. The token may be absent; callers check HasToken.
func newFlickrClient(logger *slog.Logger) (*flickr.Client, error) {
	creds, err := config.LoadCredentials(config.DefaultCredentialsPath())
	if err != nil {
		return nil, err
	}

	if creds == nil {
		return nil, fmt.Errorf("no API credentials at %s, run 'flickrarc login' first", config.DefaultCredentialsPath())
	}

	token, err := tokenfile.Load(config.DefaultTokenPath())
	if err != nil {
		logger.Warn("session token unusable", "error", err)

		token = nil
	}

	client := flickr.NewClient("", flickr.Credentials{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		UserID:    creds.UserID,
	}, token, defaultHTTPClient(), logger)

	if loadedCfg != nil {
		client.SetPageDelay(loadedCfg.PageDelayDuration())
	}

	return client, nil
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
