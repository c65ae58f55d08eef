package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithFieldsRendersJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf).WithField("component", "dispatcher").WithError(errors.New("boom"))

	l.Info("Received")

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "[INFO] Received | ") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, `"component":"dispatcher"`) || !strings.Contains(line, `"error":"boom"`) {
		t.Fatalf("missing fields: %q", line)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf)
	_ = parent.WithField("k", "v")

	parent.Warn("plain")
	if got := strings.TrimSpace(buf.String()); got != "[WARN] plain" {
		t.Fatalf("expected parent without fields, got %q", got)
	}
}

func TestDisabledLoggerDropsLines(t *testing.T) {
	l, err := newLogger(Options{Disabled: true, Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	var buf bytes.Buffer
	l.std.SetOutput(&buf)

	l.WithField("a", 1).Error("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestFileOutputWritesThroughRotator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "guildkit.log")
	var console bytes.Buffer

	l, err := newLogger(Options{FilePath: path, Stdout: &console})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	t.Cleanup(func() { _ = rotator.Close() })

	l.Info("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] to both") {
		t.Fatalf("file missing line: %q", data)
	}
	if !strings.Contains(console.String(), "[INFO] to both") {
		t.Fatalf("console missing line: %q", console.String())
	}
}
