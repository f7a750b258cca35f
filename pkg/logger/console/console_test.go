package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger_DebugHiddenByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf})

	l.Debug("hidden", "k", "v")
	l.Info("visible", "node", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "node=abc") {
		t.Fatalf("expected info line with keyvals, got %q", out)
	}
}

func TestConsoleLogger_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Debug: true, Prefix: "server", Output: &buf})

	l.Debug("layout pass", "nodes", 3)

	out := buf.String()
	if !strings.Contains(out, "layout pass") || !strings.Contains(out, "server") {
		t.Fatalf("expected prefixed debug line, got %q", out)
	}
}
