package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewCreatesLogFileAndWritesJSON(t *testing.T) {
	dir := t.TempDir()
	startedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	logger, path, err := New(dir, false, startedAt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "duplicate_finder_20240102_030405") {
		t.Errorf("unexpected log file name: %s", filepath.Base(path))
	}

	logger.Infow("hello", "key", "value")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Errorf("expected log file to contain the logged message, got: %s", content)
	}
}

func TestNewCreatesLogDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	_, _, err := New(dir, true, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected log dir to be created: %v", err)
	}
}
