package diskengine

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/bejglee/duplicate-finder/internal/config"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testRunContext(tempDir string) *runctx.RunContext {
	return runctx.New(zap.NewNop().Sugar(), config.Config{
		HashFields:     6,
		WriteLength:    47,
		Workers:        2,
		MergeBatchSize: 2,
		TempDir:        tempDir,
	})
}

func TestDiskRunDetectsInterFileDuplicate(t *testing.T) {
	dir := t.TempDir()
	line := "010;HO;1O01;2024;0450273881;000002;xxx"
	writeFile(t, filepath.Join(dir, "a.csv"), "header\n"+line+"\nunique-a\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "header\n"+line+"\nunique-b\n")

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext(filepath.Join(dir, "tmp"))
	rc.Config.HashDelimiter = ';'
	entries, err := Run(rc, files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].Prefix != line {
		t.Errorf("expected prefix %q, got %q", line, entries[0].Prefix)
	}
	want := []string{"a.csv", "b.csv"}
	sort.Strings(entries[0].Basenames)
	for i := range want {
		if entries[0].Basenames[i] != want[i] {
			t.Errorf("expected basenames %v, got %v", want, entries[0].Basenames)
			break
		}
	}
}

func TestDiskRunManyFilesExercisesCascadingMerge(t *testing.T) {
	dir := t.TempDir()
	line := "same;key;across;many;files;tail"
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, string(rune('a'+i))+".csv"), "header\n"+line+"\n")
	}

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext(filepath.Join(dir, "tmp"))
	rc.Config.HashDelimiter = ';'
	// MergeBatchSize of 2 forces multiple cascading merge rounds over 5 runs.
	entries, err := Run(rc, files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d", len(entries))
	}
	if len(entries[0].Basenames) != 5 {
		t.Errorf("expected 5 basenames, got %d: %v", len(entries[0].Basenames), entries[0].Basenames)
	}
}

func TestDiskRunNoDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "header\na;b;c\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "header\nd;e;f\n")

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext(filepath.Join(dir, "tmp"))
	rc.Config.HashDelimiter = ';'
	entries, err := Run(rc, files)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 duplicate entries, got %d", len(entries))
	}

	if _, err := os.Stat(filepath.Join(dir, "tmp")); err == nil {
		t.Errorf("expected temp dir to be removed after successful run")
	}
}
