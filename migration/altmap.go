package migration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/theimaginaryfoundation/alt-text-updater/migration/fileutils"
)

// ErrMappingNotFound is returned by LoadMapping when the CSV file does not exist.
var ErrMappingNotFound = errors.New("alt text CSV not found")

// Rewrite is the target of an original-link mapping: the new image location and its alt text.
type Rewrite struct {
	NewSrc string `json:"new_src"`
	Alt    string `json:"alt"`
}

// Mapping holds the lookup indices built from an alt text CSV.
//
// Rows are applied in file order and later rows overwrite earlier ones that share a key.
// The indices are read-only once BuildMapping returns.
type Mapping struct {
	// ByRelPath maps a canonical path (e.g. /images/x.jpg) to alt text.
	ByRelPath map[string]string
	// ByBasename maps a lowercase filename to alt text.
	ByBasename map[string]string
	// BySlug maps a letters-only filename key to alt text. Lowest confidence.
	BySlug map[string]string
	// ByOrigMap maps a canonical original-link path to its new location and alt text.
	ByOrigMap map[string]Rewrite
	// AltByOrigPath maps a canonical original-link path to alt text.
	AltByOrigPath map[string]string
	// AltByOrigBase maps a lowercase original-link filename to alt text.
	AltByOrigBase map[string]string
}

func NewMapping() *Mapping {
	return &Mapping{
		ByRelPath:     map[string]string{},
		ByBasename:    map[string]string{},
		BySlug:        map[string]string{},
		ByOrigMap:     map[string]Rewrite{},
		AltByOrigPath: map[string]string{},
		AltByOrigBase: map[string]string{},
	}
}

// Len returns the number of keys across all indices.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ByRelPath) + len(m.ByBasename) + len(m.BySlug) +
		len(m.ByOrigMap) + len(m.AltByOrigPath) + len(m.AltByOrigBase)
}

// LoadMapping reads an alt text CSV and builds its indices. Rows the CSV reader cannot parse
// are skipped; only a missing or unreadable file is an error.
func LoadMapping(path string) (*Mapping, error) {
	if path == "" {
		return nil, errors.New("LoadMapping: path is empty")
	}
	text, _, err := fileutils.ReadTextFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("LoadMapping: %w: %s: %w", ErrMappingNotFound, path, err)
		}
		return nil, fmt.Errorf("LoadMapping: read file: %w", err)
	}
	rows, err := readCSVRows(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("LoadMapping: %w", err)
	}
	return BuildMapping(rows), nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
}

// BuildMapping builds the indices from CSV rows.
//
// Two layouts are accepted, per row:
//   - [locator, alt]: locator is a filename, relative path or URL.
//   - [new_relative_path, alt, original_link]: content moved from original_link to
//     new_relative_path. A blank third field falls back to the two column layout.
//
// A first row that looks like a header (second field mentions "alt" or first field mentions
// "image") is skipped.
func BuildMapping(rows [][]string) *Mapping {
	m := NewMapping()
	if len(rows) == 0 {
		return m
	}

	start := 0
	if isHeaderRow(rows[0]) {
		start = 1
	}

	for _, row := range rows[start:] {
		if len(row) < 2 {
			continue
		}
		if len(row) == 2 || strings.TrimSpace(row[2]) == "" {
			m.addLocatorRow(row[0], row[1])
			continue
		}
		m.addMovedRow(row[0], row[1], row[2])
	}
	return m
}

func isHeaderRow(row []string) bool {
	if len(row) < 2 {
		return false
	}
	return strings.Contains(strings.ToLower(row[1]), "alt") ||
		strings.Contains(strings.ToLower(row[0]), "image")
}

func (m *Mapping) addLocatorRow(locator, alt string) {
	locator = strings.TrimSpace(locator)
	alt = strings.TrimSpace(alt)
	if locator == "" || alt == "" {
		return
	}

	// Locators without a leading slash or an image extension (bare domains, extensionless
	// names) only get basename and slug entries.
	if rel := NormalizePath(locator); rel != "" && (strings.HasPrefix(rel, "/") || IsImagePath(rel)) {
		m.ByRelPath[rel] = alt
	}
	m.addNameKeys(Basename(locator), alt)
}

func (m *Mapping) addMovedRow(newPath, alt, origLink string) {
	newRel := NormalizePath(strings.TrimSpace(newPath))
	alt = strings.TrimSpace(alt)
	origRaw := strings.TrimSpace(origLink)
	origPath := NormalizePath(origRaw)
	if alt == "" || origPath == "" {
		return
	}

	m.AltByOrigPath[origPath] = alt
	if ob := Basename(origRaw); ob != "" {
		m.AltByOrigBase[strings.ToLower(ob)] = alt
	}

	if newRel == "" {
		m.addNameKeys(Basename(origRaw), alt)
		return
	}
	m.ByOrigMap[origPath] = Rewrite{NewSrc: newRel, Alt: alt}
	if strings.HasPrefix(newRel, "/") || IsImagePath(newRel) {
		m.ByRelPath[newRel] = alt
	}
	m.addNameKeys(Basename(newRel), alt)
}

func (m *Mapping) addNameKeys(base, alt string) {
	if base == "" {
		return
	}
	m.ByBasename[strings.ToLower(base)] = alt
	if slug := ToSlug(base); slug != "" {
		m.BySlug[slug] = alt
	}
}
