package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/theimaginaryfoundation/alt-text-updater/internal/logging"
	"github.com/theimaginaryfoundation/alt-text-updater/migration"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	log, err := logging.Setup("alt-text-updater", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JSONRoot == "" {
		root, err := migration.EnsureJSONRoot(cfg.BaseDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		cfg.JSONRoot = root
	}

	files, err := migration.CollectJSONFiles(cfg.JSONRoot, cfg.BackupDir, cfg.ReportsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	sum, err := migration.UpdateAltText(ctx, cfg.CSVPath, cfg.JSONRoot, files, migration.UpdateOptions{
		DryRun:     cfg.DryRun,
		Backup:     cfg.Backup,
		BackupDir:  cfg.BackupDir,
		RewriteSrc: cfg.RewriteSrc,
		Logger:     log,
	})
	if err != nil {
		if errors.Is(err, migration.ErrMappingNotFound) {
			fmt.Fprintf(os.Stderr, "CSV not found: %s\n", cfg.CSVPath)
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}

	reports, err := migration.WriteReports(cfg.ReportsDir, sum)
	if err != nil {
		log.Warn("could not write reports", "dir", cfg.ReportsDir, "err", err)
	}

	printSummary(os.Stdout, cfg, sum, reports)
}

func printSummary(w io.Writer, cfg Config, sum migration.RunSummary, reports migration.ReportPaths) {
	root := cfg.JSONRoot
	if rel, err := filepath.Rel(cfg.BaseDir, cfg.JSONRoot); err == nil {
		root = rel
	}

	fmt.Fprintln(w, "Alt-text Updater")
	fmt.Fprintln(w, "----------------")
	fmt.Fprintf(w, "CSV:        %s\n", filepath.Base(cfg.CSVPath))
	fmt.Fprintf(w, "JSON root:  %s\n", root)
	fmt.Fprintf(w, "Scanned:    %d JSON files\n", sum.TotalFiles)
	fmt.Fprintf(w, "Updated:    %d files\n", sum.ChangedFiles)
	if len(sum.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:    %d invalid JSON files\n", len(sum.Skipped))
	}
	fmt.Fprintf(w, "Rewrite:    %s\n", onOff(sum.RewriteSrc))
	if sum.DryRun {
		fmt.Fprintln(w, "Dry run:    ON (no files written)")
	}
	switch {
	case len(sum.Details) > 0 && reports.CSV != "":
		fmt.Fprintf(w, "Report:     %s\n", reports.CSV)
	case reports.Summary != "":
		fmt.Fprintln(w, "Report:     (no changes; summary.json saved)")
	default:
		fmt.Fprintln(w, "Report:     (not written)")
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.BaseDir, "dir", cfg.BaseDir, "Working folder holding the CSV, jsonFiles/, reports/ and backups")
	fs.StringVar(&cfg.CSVPath, "csv", "", "Mapping CSV (default: <dir>/alt-text-output.csv, the only *.csv in <dir>, or one named *alt*)")
	fs.StringVar(&cfg.JSONRoot, "json-root", "", "Folder of JSON documents, searched recursively (default: <dir>/jsonFiles)")
	fs.StringVar(&cfg.ReportsDir, "reports", "", "Folder for the summary and CSV reports (default: <dir>/reports)")
	fs.StringVar(&cfg.BackupDir, "backup-dir", "", "Folder for backup copies (default: <dir>/backup_jsonFiles)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Preview only; do not write JSON files (env ALT_DRY_RUN)")
	fs.BoolVar(&cfg.Backup, "backup", cfg.Backup, "Copy all JSON files to the backup folder before saving (env ALT_BACKUP)")
	fs.BoolVar(&cfg.RewriteSrc, "rewrite-src", cfg.RewriteSrc, "Rewrite src values that match a CSV original link to the CSV relative path (env ALT_REWRITE_SRC)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/alt-text-updater -dir AltTextUpdater -dry-run")
		fmt.Fprintln(fs.Output(), "  ALT_REWRITE_SRC=1 go run ./cmd/alt-text-updater -dir AltTextUpdater -backup")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	if cfg.CSVPath == "" {
		cfg.CSVPath = migration.FindCSV(cfg.BaseDir)
	}
	cfg.CSVPath = filepath.Clean(cfg.CSVPath)
	if cfg.JSONRoot != "" {
		cfg.JSONRoot = filepath.Clean(cfg.JSONRoot)
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = filepath.Join(cfg.BaseDir, migration.DefaultReportsDir)
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.BaseDir, migration.DefaultBackupDir)
	}
	cfg.ReportsDir = filepath.Clean(cfg.ReportsDir)
	cfg.BackupDir = filepath.Clean(cfg.BackupDir)
	return cfg, nil
}
