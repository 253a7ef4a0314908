package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/history"
	"github.com/spigell/bioinfo-job-tracker/internal/ingest"
	"github.com/spigell/bioinfo-job-tracker/internal/logger"
	"github.com/spigell/bioinfo-job-tracker/internal/metrics"
	"github.com/spigell/bioinfo-job-tracker/internal/output"
	"github.com/spigell/bioinfo-job-tracker/internal/pipeline"
	"github.com/spigell/bioinfo-job-tracker/internal/store"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultOutDir  = "out"
	defaultWorkers = 4
)

var errLocked = errors.New("history is locked by another run")

var runFlags = []string{
	"input", "filter", "out-dir", "history", "history-mode",
	"batch-interval", "workers", "db", "metrics-file", "skip-gate",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Filter the fetched postings, update the history and write the artifacts",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, runFlags...)
	},
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceP("input", "i", nil, "JSONL file written by a fetcher (repeatable)")
	runCmd.Flags().StringP("filter", "f", "", "filter rules file (YAML or JSON). Built-in rules only when unset")
	runCmd.Flags().StringP("out-dir", "o", defaultOutDir, "directory for the run artifacts")
	runCmd.Flags().String("history", "", "history CSV (default is history.csv in the out dir)")
	runCmd.Flags().String("history-mode", string(pipeline.HistoryKept), "postings recorded in the history: kept or all")
	runCmd.Flags().Duration("batch-interval", 0, "flush artifacts at most this often while sources are read. 0 flushes once at the end")
	runCmd.Flags().Int("workers", defaultWorkers, "sources read concurrently")
	runCmd.Flags().String("db", "", "SQLite file mirroring the history and latest scores for the dashboard")
	runCmd.Flags().String("metrics-file", "", "Prometheus textfile to write after every flush")
	runCmd.Flags().StringSlice("skip-gate", nil, "filter gate to disable by name (repeatable)")
}

// run is the main command for the cli.
func run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the job-tracker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if len(config.Inputs) == 0 {
		logger.Fatal("at least one --input is required")
	}

	mode, err := pipeline.ParseHistoryMode(config.HistoryMode)
	if err != nil {
		logger.Fatal("parsing history mode", zap.Error(err))
	}

	filterCfg, err := loadFilter(config.Filter, logger)
	if err != nil {
		logger.Fatal("loading filter rules", zap.Error(err))
	}

	filter := filtering.New(filterCfg, filtering.WithLogger(logger))
	for _, name := range config.SkipGates {
		if !filter.Disable(name, "disabled by --skip-gate") {
			logger.Warn("unknown gate in --skip-gate", zap.String("name", name))
		}
	}

	outDir := config.OutDir
	if outDir == "" {
		outDir = defaultOutDir
	}
	historyPath := config.History
	if historyPath == "" {
		historyPath = filepath.Join(outDir, "history.csv")
	}

	unlock, err := lockHistory(historyPath)
	if err != nil {
		logger.Fatal("locking history", zap.String("path", historyPath), zap.Error(err))
	}
	defer unlock()

	hist, err := history.Load(historyPath)
	if err != nil {
		logger.Fatal("loading history", zap.String("path", historyPath), zap.Error(err))
	}
	if err := hist.Check(); err != nil {
		logger.Warn("history has duplicated identities, observing them will abort the run", zap.Error(err))
	}
	logger.Info("history loaded", zap.String("path", historyPath), zap.Int("records", hist.Len()))

	var db *store.DB
	if config.DB != "" {
		db, err = store.Open(config.DB)
		if err != nil {
			logger.Fatal("opening roles db", zap.String("path", config.DB), zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("migrating roles db", zap.Error(err))
		}
	}

	runner, err := pipeline.New(pipeline.Config{
		HistoryMode:   mode,
		BatchInterval: config.BatchInterval,
		Artifacts:     output.DefaultArtifacts(outDir),
		HistoryPath:   historyPath,
		MetricsFile:   config.MetricsFile,
	}, pipeline.Deps{
		Filter:  filter,
		History: hist,
		DB:      db,
		Metrics: metrics.New(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("creating the runner", zap.Error(err))
	}

	sources := make([]ingest.Source, 0, len(config.Inputs))
	for _, path := range config.Inputs {
		sources = append(sources, ingest.NewFileSource(path))
	}

	workers := config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	err = ingest.Collect(ctx, logger, sources, workers, func(b ingest.Batch) error {
		if b.Err != nil {
			runner.AddError(b.Source, b.Err)
			return nil
		}
		runner.Add(b.Source, b.Postings)

		_, err := runner.MaybeFlush(ctx, time.Now())
		return err
	})
	if err != nil {
		logger.Fatal("reading sources", zap.Error(err))
	}

	summary, err := runner.Finish(ctx)
	if err != nil {
		logger.Fatal("finishing the run", zap.Error(err))
	}

	if summary.Kept == 0 {
		logger.Info("exiting", zap.String("reason", "no postings left after filters"))
	}
}

// lockHistory takes the single-writer lock next to the history file.
func lockHistory(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, errLocked
	}
	return func() { _ = lock.Unlock() }, nil
}

// loadFilter reads the rule document at path. An empty path yields nil, the
// built-in rules only.
func loadFilter(path string, logger *zap.Logger) (*filtering.Config, error) {
	if path == "" {
		logger.Info("no filter rules file, using built-in rules only")
		return nil, nil
	}

	cfg, warnings, err := filtering.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, cfg.Normalize().Validate()...)
	for _, w := range warnings {
		logger.Warn("filter rules", zap.String("path", path), zap.String("warning", w))
	}
	return cfg, nil
}
