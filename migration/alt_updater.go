package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/alt-text-updater/migration/fileutils"
)

// ErrInvalidDocument is returned by ProcessFile when a file is not valid JSON. The run skips
// such files.
var ErrInvalidDocument = errors.New("invalid JSON document")

// UpdateOptions controls an UpdateAltText run.
type UpdateOptions struct {
	// DryRun computes changes without writing documents or backups.
	DryRun bool

	// Backup copies every input file into BackupDir before any document is modified.
	// Ignored when DryRun is set.
	Backup bool

	// BackupDir receives the backup copies, laid out relative to the JSON root.
	BackupDir string

	// RewriteSrc replaces references that match a CSV original link with the CSV's new path.
	RewriteSrc bool

	// Logger receives warnings and per-file progress. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o UpdateOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// FileResult is the outcome of processing one document.
type FileResult struct {
	Path     string
	Changed  bool
	Changes  []Change
	Encoding string
}

// RunSummary describes a completed run.
type RunSummary struct {
	CSV          string              `json:"csv"`
	JSONRoot     string              `json:"json_root"`
	TotalFiles   int                 `json:"total_json_files_scanned"`
	ChangedFiles int                 `json:"changed_files"`
	RewriteSrc   bool                `json:"rewrite_src_enabled"`
	DryRun       bool                `json:"dry_run"`
	Skipped      []string            `json:"skipped,omitempty"`
	Details      map[string][]Change `json:"details"`
}

// UpdateAltText loads the CSV at csvPath and applies it to each file in files, in order.
// A missing CSV aborts the run. Invalid documents and failed backups are logged and skipped.
func UpdateAltText(ctx context.Context, csvPath, jsonRoot string, files []string, opts UpdateOptions) (RunSummary, error) {
	if ctx == nil {
		return RunSummary{}, errors.New("UpdateAltText: ctx is nil")
	}
	log := opts.logger()

	m, err := LoadMapping(csvPath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("UpdateAltText: %w", err)
	}
	log.Debug("mapping loaded", "csv", csvPath, "keys", m.Len(), "rewrites", len(m.ByOrigMap))

	if opts.Backup && !opts.DryRun {
		if err := BackupFiles(jsonRoot, opts.BackupDir, files, log); err != nil {
			return RunSummary{}, fmt.Errorf("UpdateAltText: %w", err)
		}
	}

	sum := RunSummary{
		CSV:        csvPath,
		JSONRoot:   jsonRoot,
		RewriteSrc: opts.RewriteSrc,
		DryRun:     opts.DryRun,
		Details:    map[string][]Change{},
	}
	for _, path := range files {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		sum.TotalFiles++
		res, err := ProcessFile(path, m, opts)
		if err != nil {
			if errors.Is(err, ErrInvalidDocument) {
				log.Warn("skipping non-JSON or invalid JSON", "file", filepath.Base(path), "err", err)
				sum.Skipped = append(sum.Skipped, path)
				continue
			}
			return sum, fmt.Errorf("UpdateAltText: %w", err)
		}
		if len(res.Changes) > 0 {
			sum.Details[path] = res.Changes
		}
		if res.Changed {
			sum.ChangedFiles++
		}
		log.Debug("processed", "file", path, "changed", res.Changed, "changes", len(res.Changes), "encoding", res.Encoding)
	}
	return sum, nil
}

// ProcessFile updates a single document. Both passes run on an in-memory tree, and the file
// is rewritten only if something changed and opts.DryRun is false.
func ProcessFile(path string, m *Mapping, opts UpdateOptions) (FileResult, error) {
	text, enc, err := fileutils.ReadTextFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("ProcessFile: read %s: %w", path, err)
	}
	doc, err := DecodeDocument(text)
	if err != nil {
		return FileResult{}, fmt.Errorf("ProcessFile: %s: %w: %w", path, ErrInvalidDocument, err)
	}

	changed, changes := UpdateDocument(doc, m, opts.RewriteSrc)
	res := FileResult{Path: path, Changed: changed, Changes: changes, Encoding: enc}
	if !changed || opts.DryRun {
		return res, nil
	}

	out, err := EncodeDocument(doc)
	if err != nil {
		return res, fmt.Errorf("ProcessFile: encode %s: %w", path, err)
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := fileutils.WriteFileAtomicSameDir(path, out, mode); err != nil {
		return res, fmt.Errorf("ProcessFile: write %s: %w", path, err)
	}
	return res, nil
}

// BackupFiles copies files into backupDir, preserving their layout relative to root. A file
// that cannot be copied, or has disappeared since discovery, is logged and skipped.
func BackupFiles(root, backupDir string, files []string, log *slog.Logger) error {
	if backupDir == "" {
		return errors.New("BackupFiles: backupDir is empty")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("BackupFiles: mkdir backupDir: %w", err)
	}
	for _, p := range files {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(p)
		}
		copied, err := fileutils.CopyFileIfExists(p, filepath.Join(backupDir, rel), true)
		switch {
		case err != nil:
			log.Warn("backup failed", "file", filepath.Base(p), "err", err)
		case !copied:
			log.Warn("backup skipped, file no longer exists", "file", filepath.Base(p))
		}
	}
	return nil
}
