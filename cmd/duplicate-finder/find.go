package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bejglee/duplicate-finder/internal/config"
	"github.com/bejglee/duplicate-finder/internal/deletion"
	"github.com/bejglee/duplicate-finder/internal/diskengine"
	"github.com/bejglee/duplicate-finder/internal/fastengine"
	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/logging"
	"github.com/bejglee/duplicate-finder/internal/report"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/safeengine"
	"github.com/bejglee/duplicate-finder/internal/scanner"
	"github.com/bejglee/duplicate-finder/internal/selector"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// reportFileName is the fixed name of the duplicates report, always written
// to the working directory.
const reportFileName = "duplicates.txt"

// findOptions holds the CLI flags for the find command before they are
// parsed and validated into a config.Config.
type findOptions struct {
	input            string
	strategy         string
	writeLength      int
	hashFields       int
	hashDelimiter    string
	filePattern      string
	mergeBatchSize   int
	deleteDuplicates bool

	workers    int
	noProgress bool
	verbose    bool
	logDir     string
	tempDir    string
}

func newFindCmd() *cobra.Command {
	opts := &findOptions{
		input:          "input",
		strategy:       string(config.StrategyAuto),
		writeLength:    47,
		hashFields:     6,
		hashDelimiter:  ";",
		filePattern:    "*.csv",
		mergeBatchSize: 256,
		workers:        defaultWorkers(),
		logDir:         "logs",
		tempDir:        "temp_duplicate_finder",
	}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find duplicate records across the input directory's delimited text files",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runFind(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", opts.input, "input directory")
	flags.StringVarP(&opts.strategy, "strategy", "s", opts.strategy, "engine selection (auto, fast, safe, disk)")
	flags.IntVar(&opts.writeLength, "write-length", opts.writeLength, "DisplayPrefix length in bytes")
	flags.IntVarP(&opts.hashFields, "hash-fields", "k", opts.hashFields, "number of leading fields included in the hash key")
	flags.StringVarP(&opts.hashDelimiter, "hash-delimiter", "d", opts.hashDelimiter, "single-byte field delimiter")
	flags.StringVar(&opts.filePattern, "file-pattern", opts.filePattern, "glob pattern selecting input files")
	flags.IntVar(&opts.mergeBatchSize, "merge-batch-size", opts.mergeBatchSize, "max run files merged per DISK engine batch")
	flags.BoolVar(&opts.deleteDuplicates, "deleteduplicates", false, "run the deletion pipeline after the engine pass, before the report is written")
	flags.IntVarP(&opts.workers, "workers", "w", opts.workers, "worker pool size")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable progress bar output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug-level logging")
	flags.StringVar(&opts.logDir, "log-dir", opts.logDir, "directory for the run log file")
	flags.StringVar(&opts.tempDir, "temp-dir", opts.tempDir, "DISK engine scratch directory")

	return cmd
}

func runFind(opts *findOptions) error {
	delim, err := parseDelimiter(opts.hashDelimiter)
	if err != nil {
		return fmt.Errorf("invalid --hash-delimiter: %w", err)
	}
	if err := validateFilePattern(opts.filePattern); err != nil {
		return fmt.Errorf("invalid --file-pattern: %w", err)
	}

	cfg := config.Config{
		InputDir:         opts.input,
		Strategy:         config.Strategy(opts.strategy),
		WriteLength:      opts.writeLength,
		HashFields:       opts.hashFields,
		HashDelimiter:    delim,
		FilePattern:      opts.filePattern,
		MergeBatchSize:   opts.mergeBatchSize,
		DeleteDuplicates: opts.deleteDuplicates,
		Workers:          opts.workers,
		NoProgress:       opts.noProgress,
		Verbose:          opts.verbose,
		LogDir:           opts.logDir,
		TempDir:          opts.tempDir,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	startedAt := time.Now()
	logger, logPath, err := logging.New(cfg.LogDir, cfg.Verbose, startedAt)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Infow("duplicate-finder starting", "log_file", logPath, "input", cfg.InputDir, "strategy", cfg.Strategy,
		"hash_algorithm", hasher.Name, "hash_seed", hasher.Seed)

	rc := runctx.New(logger, cfg)

	files, err := scanner.Enumerate(cfg.InputDir, cfg.FilePattern)
	if err != nil {
		logger.Errorw("failed to enumerate input directory", "error", err)
		return err
	}
	logger.Infow("input files enumerated", "count", len(files))

	if len(files) == 0 {
		return report.Write(reportFileName, nil)
	}

	decision := selector.Select(rc, files)

	var entries []types.DuplicateEntry
	switch decision.Strategy {
	case config.StrategyFast:
		entries = fastengine.Run(rc, files)
	case config.StrategySafe:
		entries = safeengine.Run(rc, files)
	case config.StrategyDisk:
		entries, err = diskengine.Run(rc, files)
		if err != nil {
			logger.Errorw("disk engine failed", "error", err)
			return err
		}
	default:
		return fmt.Errorf("unresolved strategy %q", decision.Strategy)
	}
	logger.Infow("engine run complete", "strategy", decision.Strategy, "duplicate_entries", len(entries))

	var deletionErr error
	if cfg.DeleteDuplicates {
		stats, derr := deletion.Run(rc, files)
		logger.Infow("deletion pipeline complete",
			"stage_a_files_rewritten", stats.FilesRewrittenStageA,
			"stage_a_lines_deleted", stats.LinesDeletedStageA,
			"stage_b_files_rewritten", stats.FilesRewrittenStageB,
			"stage_b_lines_deleted", stats.LinesDeletedStageB,
			"failed_files", stats.FailedFiles,
		)
		deletionErr = derr
	}

	if err := report.Write(reportFileName, entries); err != nil {
		logger.Errorw("failed to write report", "error", err)
		return err
	}

	logger.Infow("duplicate-finder finished", "elapsed", rc.Elapsed().String())

	if deletionErr != nil {
		fmt.Fprintln(os.Stderr, "duplicate-finder: "+deletionErr.Error())
		return deletionErr
	}
	return nil
}
