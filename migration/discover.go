package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultCSVName      = "alt-text-output.csv"
	DefaultJSONDirName  = "jsonFiles"
	DefaultBackupDir    = "backup_jsonFiles"
	DefaultReportsDir   = "reports"
	DefaultSuggestions  = "alt-text-suggestions.csv"
	jsonFileExtension   = ".json"
	csvFileExtension    = ".csv"
	csvNameHintFragment = "alt"
)

// FindCSV picks the mapping CSV in dir: alt-text-output.csv if present, else the only *.csv,
// else the first *.csv whose name mentions "alt". When nothing fits, the default path is
// returned so the caller reports it as missing.
func FindCSV(dir string) string {
	def := filepath.Join(dir, DefaultCSVName)
	if _, err := os.Stat(def); err == nil {
		return def
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return def
	}
	var csvs []string
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != csvFileExtension {
			continue
		}
		csvs = append(csvs, e.Name())
	}
	if len(csvs) == 1 {
		return filepath.Join(dir, csvs[0])
	}
	for _, name := range csvs {
		if strings.Contains(strings.ToLower(name), csvNameHintFragment) {
			return filepath.Join(dir, name)
		}
	}
	return def
}

// EnsureJSONRoot returns dir/jsonFiles, creating it when absent.
func EnsureJSONRoot(dir string) (string, error) {
	root := filepath.Join(dir, DefaultJSONDirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("EnsureJSONRoot: %w", err)
	}
	return root, nil
}

// CollectJSONFiles walks root and returns every regular *.json file in lexical order.
// Directories whose absolute path is listed in skip are not entered.
func CollectJSONFiles(root string, skip ...string) ([]string, error) {
	skipSet := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(s); err == nil {
			skipSet[abs] = struct{}{}
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if abs, err := filepath.Abs(path); err == nil {
				if _, ok := skipSet[abs]; ok {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.ToLower(filepath.Ext(path)) != jsonFileExtension {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CollectJSONFiles: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
