package migration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

type fixture struct {
	dir      string
	csv      string
	root     string
	changed  string
	nested   string
	plain    string
	invalid  string
	original map[string]string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		csv:      filepath.Join(dir, DefaultCSVName),
		root:     filepath.Join(dir, DefaultJSONDirName),
		original: map[string]string{},
	}
	f.changed = filepath.Join(f.root, "home.json")
	f.nested = filepath.Join(f.root, "sub", "about.json")
	f.plain = filepath.Join(f.root, "plain.json")
	f.invalid = filepath.Join(f.root, "broken.json")

	writeFile(t, f.csv, "image,alt\n"+
		"dog.png,A dog\n"+
		"/photos/a.jpg,A cat,https://old.example/-/media/a.ashx\n")

	files := map[string]string{
		f.changed: `{"title":"Home","hero":{"image":{"src":"/images/dog.png"}},"n":1.0}`,
		f.nested:  `{"type":"image","attrs":{"src":"https://old.example/-/media/a.ashx"}}`,
		f.plain:   `{"title":"No images","items":[]}`,
		f.invalid: `{"title":`,
	}
	for path, content := range files {
		writeFile(t, path, content)
		f.original[path] = content
	}
	return f
}

func (f fixture) files(t *testing.T) []string {
	t.Helper()
	files, err := CollectJSONFiles(f.root)
	if err != nil {
		t.Fatalf("CollectJSONFiles: %v", err)
	}
	return files
}

func TestUpdateAltText_Run(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sum, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{RewriteSrc: true, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("UpdateAltText: %v", err)
	}

	if sum.TotalFiles != 4 || sum.ChangedFiles != 2 {
		t.Fatalf("total=%d changed=%d, want 4/2", sum.TotalFiles, sum.ChangedFiles)
	}
	if !sum.RewriteSrc || sum.DryRun {
		t.Fatalf("flags: rewrite=%v dry=%v", sum.RewriteSrc, sum.DryRun)
	}
	if diff := cmp.Diff([]string{f.invalid}, sum.Skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
	wantDetails := map[string][]Change{
		f.changed: {{OldSrc: "/images/dog.png", Alt: "A dog"}},
		f.nested:  {{OldSrc: "https://old.example/-/media/a.ashx", Alt: "A cat", NewSrc: "/photos/a.jpg"}},
	}
	if diff := cmp.Diff(wantDetails, sum.Details); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}

	wantHome := "{\n" +
		"  \"title\": \"Home\",\n" +
		"  \"hero\": {\n" +
		"    \"image\": {\n" +
		"      \"src\": \"/images/dog.png\",\n" +
		"      \"alt\": \"A dog\"\n" +
		"    }\n" +
		"  },\n" +
		"  \"n\": 1.0\n" +
		"}\n"
	if diff := cmp.Diff(wantHome, readFile(t, f.changed)); diff != "" {
		t.Fatalf("home.json mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, f.plain); got != f.original[f.plain] {
		t.Fatalf("unchanged file was rewritten: %q", got)
	}
	if got := readFile(t, f.invalid); got != f.original[f.invalid] {
		t.Fatalf("invalid file was rewritten: %q", got)
	}

	again, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{RewriteSrc: true, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("second UpdateAltText: %v", err)
	}
	if again.ChangedFiles != 0 || len(again.Details) != 0 {
		t.Fatalf("second run: changed=%d details=%v", again.ChangedFiles, again.Details)
	}
}

func TestUpdateAltText_DryRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	backupDir := filepath.Join(f.dir, DefaultBackupDir)
	sum, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{
		DryRun:    true,
		Backup:    true,
		BackupDir: backupDir,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("UpdateAltText: %v", err)
	}
	if sum.ChangedFiles != 2 || !sum.DryRun {
		t.Fatalf("changed=%d dry=%v", sum.ChangedFiles, sum.DryRun)
	}
	for path, content := range f.original {
		if got := readFile(t, path); got != content {
			t.Fatalf("dry run modified %s: %q", path, got)
		}
	}
	if _, err := os.Stat(backupDir); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("dry run created backups: err=%v", err)
	}
}

func TestUpdateAltText_RewriteDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sum, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("UpdateAltText: %v", err)
	}
	want := []Change{{OldSrc: "https://old.example/-/media/a.ashx", Alt: "A cat"}}
	if diff := cmp.Diff(want, sum.Details[f.nested]); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, f.nested); !strings.Contains(got, `"src": "https://old.example/-/media/a.ashx"`) {
		t.Fatalf("src rewritten with rewrite disabled:\n%s", got)
	}
}

func TestUpdateAltText_Backup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	backupDir := filepath.Join(f.dir, DefaultBackupDir)
	if _, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{
		Backup:    true,
		BackupDir: backupDir,
		Logger:    discardLogger(),
	}); err != nil {
		t.Fatalf("UpdateAltText: %v", err)
	}

	for path, content := range f.original {
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			t.Fatalf("Rel: %v", err)
		}
		if got := readFile(t, filepath.Join(backupDir, rel)); got != content {
			t.Fatalf("backup of %s = %q, want original %q", rel, got, content)
		}
	}
}

func TestUpdateAltText_MissingCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := UpdateAltText(context.Background(), filepath.Join(dir, "nope.csv"), dir, nil, UpdateOptions{Logger: discardLogger()})
	if !errors.Is(err, ErrMappingNotFound) {
		t.Fatalf("err=%v, want ErrMappingNotFound", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err=%v, want fs.ErrNotExist in chain", err)
	}
}

func TestUpdateAltText_CanceledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := UpdateAltText(ctx, f.csv, f.root, f.files(t), UpdateOptions{Logger: discardLogger()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if sum.TotalFiles != 0 {
		t.Fatalf("total=%d, want 0", sum.TotalFiles)
	}
}

func TestProcessFile_Latin1Document(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "latin.json")
	// "Café" in ISO-8859-1.
	raw := []byte("{\"title\":\"Caf\xe9\",\"src\":\"dog.png\"}")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := ProcessFile(path, BuildMapping([][]string{{"dog.png", "A dog"}}), UpdateOptions{})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if !res.Changed || res.Encoding != "latin-1" {
		t.Fatalf("changed=%v encoding=%q", res.Changed, res.Encoding)
	}
	want := "{\n  \"title\": \"Café\",\n  \"src\": \"dog.png\",\n  \"alt\": \"A dog\"\n}\n"
	if diff := cmp.Diff(want, readFile(t, path)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%v, want 0600", fi.Mode().Perm())
	}
}

func TestProcessFile_InvalidDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	writeFile(t, path, "not json")
	_, err := ProcessFile(path, NewMapping(), UpdateOptions{})
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("err=%v, want ErrInvalidDocument", err)
	}
}

func TestBackupFiles_OutsideRootUsesBaseName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	outside := filepath.Join(dir, "elsewhere", "x.json")
	writeFile(t, outside, "{}")
	backupDir := filepath.Join(dir, "backup")

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	if err := BackupFiles(root, backupDir, []string{outside, filepath.Join(root, "missing.json")}, log); err != nil {
		t.Fatalf("BackupFiles: %v", err)
	}
	if got := readFile(t, filepath.Join(backupDir, "x.json")); got != "{}" {
		t.Fatalf("backup=%q", got)
	}
	if !strings.Contains(logs.String(), "backup skipped") || !strings.Contains(logs.String(), "file=missing.json") {
		t.Fatalf("missing file not reported:\n%s", logs.String())
	}
	if err := BackupFiles(root, "", nil, nil); err == nil {
		t.Fatalf("expected error for empty backupDir")
	}
}

func TestUpdateAltText_BackupFailureOnlyWarns(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	backupDir := filepath.Join(f.dir, DefaultBackupDir)
	// A directory where the backup copy of home.json should go makes that copy fail.
	if err := os.MkdirAll(filepath.Join(backupDir, "home.json", "occupied"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var logs bytes.Buffer
	sum, err := UpdateAltText(context.Background(), f.csv, f.root, f.files(t), UpdateOptions{
		Backup:    true,
		BackupDir: backupDir,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatalf("UpdateAltText: %v", err)
	}
	if sum.ChangedFiles != 2 {
		t.Fatalf("changed=%d, want 2", sum.ChangedFiles)
	}
	if !strings.Contains(logs.String(), "backup failed") || !strings.Contains(logs.String(), "file=home.json") {
		t.Fatalf("backup failure not logged:\n%s", logs.String())
	}
	if got := readFile(t, f.changed); !strings.Contains(got, `"alt": "A dog"`) {
		t.Fatalf("home.json not updated after failed backup:\n%s", got)
	}
	if got := readFile(t, filepath.Join(backupDir, "sub", "about.json")); got != f.original[f.nested] {
		t.Fatalf("other backups missing: %q", got)
	}
}
