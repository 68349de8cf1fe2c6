package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codesnap/internal/config"
	"codesnap/internal/logging"
	"codesnap/internal/queue"
	"codesnap/internal/scan"
	"codesnap/internal/storage"
	"codesnap/internal/version"
)

var (
	// rootFlag is the CLI --root flag value: the data root holding the
	// .codesnap directory.
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codesnap",
	Short: "codesnap - application dependency snapshot builder",
	Long: `codesnap ingests per-service static-analysis scans and assembles composite
application dependency snapshots: a hierarchical app template plus a pool of
function definitions, for a pinned set of service revisions.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("codesnap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Data root containing the .codesnap directory")
}

// env bundles everything a command needs.
type env struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *storage.DB
	scans  *scan.Service
	queues *storage.QueueMappingStore
}

// openEnv loads configuration and opens the database. Callers must Close.
func openEnv() (*env, error) {
	cfg, err := config.LoadConfig(rootFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	db, err := storage.Open(rootFlag, logger)
	if err != nil {
		return nil, err
	}

	processor := scan.NewProcessor(logger, cfg.Scan.KnownTopicResolutions)
	factory := scan.NewRecordFactory(processor)
	scanService := scan.NewService(factory,
		storage.NewScanStore(db), storage.NewFailureStore(db), logger)

	return &env{
		cfg:    cfg,
		logger: logger,
		db:     db,
		scans:  scanService,
		queues: storage.NewQueueMappingStore(db),
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("Failed to close database", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// queueResolver builds the configured queue resolver variant.
func (e *env) queueResolver() queue.Resolver {
	if e.cfg.ResolverMode() == config.ModeEndpoint {
		return queue.NewEndpointResolver(e.cfg.QueueResolver, e.logger)
	}
	return queue.NewStoreResolver(e.queues, e.logger)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
