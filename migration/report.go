package migration

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/theimaginaryfoundation/alt-text-updater/migration/fileutils"
)

const (
	SummaryFileName = "alt-text-update-summary.json"
	ReportFileName  = "alt-text-update-report.csv"
)

// ReportPaths lists the files written by WriteReports.
type ReportPaths struct {
	Summary string
	CSV     string
}

// WriteReports writes the JSON summary and the flat CSV report into dir. The summary is
// written first, so it exists even when the CSV report fails.
func WriteReports(dir string, sum RunSummary) (ReportPaths, error) {
	if dir == "" {
		return ReportPaths{}, errors.New("WriteReports: dir is empty")
	}
	paths := ReportPaths{
		Summary: filepath.Join(dir, SummaryFileName),
		CSV:     filepath.Join(dir, ReportFileName),
	}
	if err := WriteSummaryJSON(paths.Summary, sum); err != nil {
		return ReportPaths{}, err
	}
	if err := WriteReportCSV(paths.CSV, sum); err != nil {
		return ReportPaths{Summary: paths.Summary}, err
	}
	return paths, nil
}

// WriteSummaryJSON writes sum as indented JSON.
func WriteSummaryJSON(path string, sum RunSummary) error {
	if sum.Details == nil {
		sum.Details = map[string][]Change{}
	}
	if err := fileutils.WriteJSONFileAtomic(path, sum, true); err != nil {
		return fmt.Errorf("WriteSummaryJSON: %w", err)
	}
	return nil
}

// WriteReportCSV writes one row per change: json_file, old_src, new_alt, new_src_if_rewritten.
// Files are listed in path order, changes in the order they were found.
func WriteReportCSV(path string, sum RunSummary) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"json_file", "old_src", "new_alt", "new_src_if_rewritten"}); err != nil {
		return fmt.Errorf("WriteReportCSV: %w", err)
	}
	for _, file := range sortedDetailKeys(sum.Details) {
		for _, c := range sum.Details[file] {
			if err := w.Write([]string{file, c.OldSrc, c.Alt, c.NewSrc}); err != nil {
				return fmt.Errorf("WriteReportCSV: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("WriteReportCSV: %w", err)
	}
	if err := fileutils.WriteFileAtomicSameDir(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("WriteReportCSV: write: %w", err)
	}
	return nil
}

func sortedDetailKeys(details map[string][]Change) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
