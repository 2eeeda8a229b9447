package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindCSV(t *testing.T) {
	t.Parallel()

	t.Run("default name wins", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "other.csv"), "")
		writeFile(t, filepath.Join(dir, DefaultCSVName), "")
		if got, want := FindCSV(dir), filepath.Join(dir, DefaultCSVName); got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("single csv", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "Export.CSV"), "")
		if got, want := FindCSV(dir), filepath.Join(dir, "Export.CSV"); got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("name hint among several", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "b-pages.csv"), "")
		writeFile(t, filepath.Join(dir, "c-images-ALT.csv"), "")
		if got, want := FindCSV(dir), filepath.Join(dir, "c-images-ALT.csv"); got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("nothing fits", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.csv"), "")
		writeFile(t, filepath.Join(dir, "b.csv"), "")
		if got, want := FindCSV(dir), filepath.Join(dir, DefaultCSVName); got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestEnsureJSONRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root, err := EnsureJSONRoot(dir)
	if err != nil {
		t.Fatalf("EnsureJSONRoot: %v", err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	if again, err := EnsureJSONRoot(dir); err != nil || again != root {
		t.Fatalf("second call: %s, %v", again, err)
	}
}

func TestCollectJSONFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{"b.json", "a.JSON", "notes.txt", "sub/c.json", "backup/old.json", "reports/summary.json"} {
		writeFile(t, filepath.Join(root, rel), "{}")
	}

	got, err := CollectJSONFiles(root, filepath.Join(root, "backup"), filepath.Join(root, "reports"), "")
	if err != nil {
		t.Fatalf("CollectJSONFiles: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.JSON"),
		filepath.Join(root, "b.json"),
		filepath.Join(root, "sub", "c.json"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	if _, err := CollectJSONFiles(filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}
