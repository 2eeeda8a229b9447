package migration

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/alt-text-updater/migration/fileutils"
)

// contextKeys are sibling fields that commonly describe an image in content exports.
var contextKeys = []string{"caption", "title", "heading", "name", "label", "description", "text"}

// UnmatchedImage is an image reference that no CSV entry covers and that has no alt text yet.
type UnmatchedImage struct {
	Src       string   `json:"src"`
	Shape     string   `json:"shape"`
	Context   string   `json:"context,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// AltSuggestion is a proposed alt text for an unmatched image.
type AltSuggestion struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// AltSuggester proposes alt text for a batch of unmatched images. Returned suggestions are
// matched back to the batch by Src.
type AltSuggester interface {
	SuggestAltText(ctx context.Context, images []UnmatchedImage) ([]AltSuggestion, error)
}

// SuggestOptions controls SuggestAltText.
type SuggestOptions struct {
	// BatchSize is the number of images sent per suggester call (defaults to 25).
	BatchSize int

	// MaxImages limits how many unmatched images are sent in total (0 = all).
	MaxImages int

	Logger *slog.Logger
}

// CollectUnmatched returns the image references in doc that Resolve cannot place and whose
// alt field is blank, in traversal order. Bare src fields are only considered when they look
// like image paths.
func CollectUnmatched(doc any, m *Mapping) []UnmatchedImage {
	var out []UnmatchedImage
	seen := map[string]struct{}{}
	var visit func(v any)
	visit = func(v any) {
		switch t := v.(type) {
		case *Object:
			if t == nil {
				return
			}
			s := RecognizeShape(t, m)
			if s.Found() && strings.TrimSpace(s.CurrentAlt()) == "" {
				if _, ok := Resolve(s.Ref, m, true); !ok {
					if _, dup := seen[s.Ref]; !dup {
						seen[s.Ref] = struct{}{}
						out = append(out, UnmatchedImage{Src: s.Ref, Shape: s.Kind.String(), Context: nodeContext(t, s)})
					}
				}
			}
			for pair := t.Oldest(); pair != nil; pair = pair.Next() {
				visit(pair.Value)
			}
		case []any:
			for _, e := range t {
				visit(e)
			}
		}
	}
	visit(doc)
	return out
}

func nodeContext(node *Object, s Shape) string {
	var parts []string
	for _, obj := range []*Object{s.Container, node} {
		for _, k := range contextKeys {
			v, _ := obj.Get(k)
			if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
				parts = append(parts, strings.TrimSpace(str))
			}
		}
	}
	return fileutils.Truncate(strings.Join(dedupeStrings(parts), " | "), 300)
}

// SuggestAltText collects unmatched images across files (deduplicated by canonical path),
// asks suggester for alt text in batches, and returns the usable suggestions. Invalid
// documents are skipped with a warning.
func SuggestAltText(ctx context.Context, files []string, m *Mapping, suggester AltSuggester, opts SuggestOptions) ([]AltSuggestion, error) {
	if ctx == nil {
		return nil, errors.New("SuggestAltText: ctx is nil")
	}
	if suggester == nil {
		return nil, errors.New("SuggestAltText: suggester is nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var images []UnmatchedImage
	byKey := map[string]int{}
	for _, path := range files {
		text, _, err := fileutils.ReadTextFile(path)
		if err != nil {
			return nil, fmt.Errorf("SuggestAltText: read %s: %w", path, err)
		}
		doc, err := DecodeDocument(text)
		if err != nil {
			log.Warn("skipping non-JSON or invalid JSON", "file", filepath.Base(path), "err", err)
			continue
		}
		for _, img := range CollectUnmatched(doc, m) {
			key := NormalizePath(img.Src)
			if i, ok := byKey[key]; ok {
				images[i].Documents = append(images[i].Documents, path)
				continue
			}
			img.Documents = []string{path}
			byKey[key] = len(images)
			images = append(images, img)
		}
	}
	if opts.MaxImages > 0 && len(images) > opts.MaxImages {
		images = images[:opts.MaxImages]
	}

	var out []AltSuggestion
	for start := 0; start < len(images); start += opts.BatchSize {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		end := min(start+opts.BatchSize, len(images))
		batch := images[start:end]
		got, err := suggester.SuggestAltText(ctx, batch)
		if err != nil {
			return out, fmt.Errorf("SuggestAltText: batch %d-%d: %w", start, end, err)
		}
		out = append(out, filterSuggestions(batch, got)...)
		log.Info("suggestions", "batch_start", start, "batch_end", end, "total", len(images), "accepted", len(out))
	}
	return out, nil
}

func filterSuggestions(batch []UnmatchedImage, got []AltSuggestion) []AltSuggestion {
	want := make(map[string]struct{}, len(batch))
	for _, img := range batch {
		want[img.Src] = struct{}{}
	}
	out := make([]AltSuggestion, 0, len(got))
	for _, s := range got {
		alt := strings.Join(strings.Fields(s.Alt), " ")
		if alt == "" {
			continue
		}
		if _, ok := want[s.Src]; !ok {
			continue
		}
		delete(want, s.Src)
		out = append(out, AltSuggestion{Src: s.Src, Alt: alt})
	}
	return out
}

// WriteSuggestionsCSV writes suggestions as a two column CSV with an "image,alt" header, the
// same layout LoadMapping reads.
func WriteSuggestionsCSV(path string, suggestions []AltSuggestion) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"image", "alt"}); err != nil {
		return fmt.Errorf("WriteSuggestionsCSV: %w", err)
	}
	for _, s := range suggestions {
		if err := w.Write([]string{s.Src, s.Alt}); err != nil {
			return fmt.Errorf("WriteSuggestionsCSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("WriteSuggestionsCSV: %w", err)
	}
	if err := fileutils.WriteFileAtomicSameDir(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("WriteSuggestionsCSV: write: %w", err)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
