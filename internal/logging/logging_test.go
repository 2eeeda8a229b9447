package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// Setup replaces the process-wide default logger, so these tests do not run in parallel.

func TestSetup_TextWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup("alt-text-updater", Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Debug("mapping loaded", "keys", 3)

	out := buf.String()
	for _, want := range []string{"component=alt-text-updater", "mapping loaded", "keys=3", "level=DEBUG"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output: %s", want, out)
		}
	}
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := Setup("alt-text-suggester", Options{Level: "info", Format: "JSON", Output: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Warn("skipping non-JSON or invalid JSON", "file", "a.json")

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"component":"alt-text-suggester"`, `"file":"a.json"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in output: %s", want, out)
		}
	}
}

func TestSetup_LevelGatingAndDefault(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Setup("gate", Options{Level: "warn", Output: &buf}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	slog.Info("suppressed")
	New("other").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=other") {
		t.Fatalf("warn missing: %s", out)
	}
}

func TestSetup_RejectsUnknownValues(t *testing.T) {
	if _, err := Setup("x", Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := Setup("x", Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
