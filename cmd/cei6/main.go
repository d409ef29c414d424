// Command cei6 fetches the publisher's category listings and article pages
// and appends them to deduplicated record files.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/agentx56431/cei6"
	"github.com/agentx56431/cei6/config"
	"github.com/agentx56431/cei6/discovery"
	"github.com/agentx56431/cei6/logging"
	"github.com/agentx56431/cei6/sources"
	"github.com/agentx56431/cei6/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	cfg       *config.Config
	logger    *zap.Logger
	logCloser io.Closer
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "cei6",
	Short: "Archive engine for cei.org listings and articles",
	Long: `cei6 reads the first listing page of each content category (blog, news
releases, op-eds, studies), optionally fetches every article page, and appends
new records to one JSONL file per category. Records already present in a file
are never written twice.

Example usage:
  cei6 fetch                             # print the first page of every category
  cei6 fetch --types blog op_ed --save   # save listings for two categories
  cei6 fetch --save --details            # also fetch and save article pages
  cei6 sources                           # show crawl state per category`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.cei6/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// initConfig loads configuration and builds the logger.
func initConfig(cmd *cobra.Command) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser, err = logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Verbose: verbose,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	logger.Debug("configuration loaded",
		zap.String("listings_dir", cfg.Output.ListingsDir),
		zap.String("details_dir", cfg.Output.DetailsDir),
		zap.String("state", cfg.State.DSN),
	)
	return nil
}

func closeLogger() error {
	if logger != nil {
		_ = logger.Sync()
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// openState opens the crawl-state database, creating its directory.
func openState() (*sources.SourceStore, error) {
	if dir := filepath.Dir(cfg.State.DSN); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return sources.NewSourceStore(cfg.State.DSN)
}

// openEngine wires an engine from the loaded configuration. The returned
// function releases what the engine holds.
func openEngine() (*cei6.Engine, func(), error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}

	// One client for the whole run; the fetcher applies per-request
	// timeouts.
	client := &http.Client{}
	fetcher, err := discovery.NewHTTPFetcher(client, cfg.Fetcher(), logger)
	if err != nil {
		return nil, nil, err
	}

	listings, err := store.New(cfg.Output.ListingsDir, logger)
	if err != nil {
		return nil, nil, err
	}
	details, err := store.New(cfg.Output.DetailsDir, logger)
	if err != nil {
		return nil, nil, err
	}

	state, err := openState()
	if err != nil {
		return nil, nil, err
	}

	engine, err := cei6.NewEngine(cei6.Options{
		Fetcher:  fetcher,
		Registry: registry,
		Listings: listings,
		Details:  details,
		Sources:  state,
		Logger:   logger,
	})
	if err != nil {
		state.Close()
		return nil, nil, err
	}

	cleanup := func() {
		client.CloseIdleConnections()
		if err := state.Close(); err != nil {
			logger.Warn("failed to close state database", zap.Error(err))
		}
	}
	return engine, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = closeLogger()
		os.Exit(1)
	}
}
