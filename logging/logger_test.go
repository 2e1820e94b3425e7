package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn message missing: %q", out)
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("loud", &buf)

	l.Debug().Msg("debug")
	l.Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, "debug") {
		t.Fatalf("debug message logged with default level: %q", out)
	}
	if !strings.Contains(out, "info") {
		t.Fatalf("info message missing: %q", out)
	}
}

func TestRetry_WritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	r := Retry(New("debug", &buf))

	r.Warn("retrying request", "url", "https://files.example/files", "attempt", 2)

	out := buf.String()
	if !strings.Contains(out, "retrying request") || !strings.Contains(out, "files.example") {
		t.Fatalf("unexpected output: %q", out)
	}
}
