package fastengine

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/bejglee/duplicate-finder/internal/config"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/scanner"
	"github.com/bejglee/duplicate-finder/internal/testfix"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testRunContext() *runctx.RunContext {
	return runctx.New(zap.NewNop().Sugar(), config.Config{
		HashFields:  6,
		WriteLength: 47,
		Workers:     2,
	})
}

func TestRunDetectsInterFileDuplicate(t *testing.T) {
	dir := t.TempDir()
	line := "010;HO;1O01;2024;0450273881;000002;xxx"
	writeFile(t, filepath.Join(dir, "a.csv"), "header\n"+line+"\nunique-a\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "header\n"+line+"\nunique-b\n")

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext()
	rc.Config.HashDelimiter = ';'
	entries := Run(rc, files)

	if len(entries) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].Prefix != line {
		t.Errorf("expected prefix %q, got %q", line, entries[0].Prefix)
	}
	want := []string{"a.csv", "b.csv"}
	sort.Strings(entries[0].Basenames)
	if !equal(entries[0].Basenames, want) {
		t.Errorf("expected basenames %v, got %v", want, entries[0].Basenames)
	}
}

func TestRunDetectsIntraFileDuplicate(t *testing.T) {
	dir := t.TempDir()
	line := "a;b;c;d;e;f"
	writeFile(t, filepath.Join(dir, "a.csv"), "header\n"+line+"\n"+line+"\n")

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext()
	rc.Config.HashDelimiter = ';'
	entries := Run(rc, files)

	if len(entries) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d", len(entries))
	}
	if len(entries[0].Basenames) != 1 || entries[0].Basenames[0] != "a.csv" {
		t.Errorf("expected single basename a.csv, got %v", entries[0].Basenames)
	}
}

func TestRunNoDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "header\na;b;c\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "header\nd;e;f\n")

	files, err := scanner.Enumerate(dir, "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext()
	rc.Config.HashDelimiter = ';'
	entries := Run(rc, files)
	if len(entries) != 0 {
		t.Fatalf("expected 0 duplicate entries, got %d", len(entries))
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunPrefixPicksLowestFileID(t *testing.T) {
	keyFields := []string{"from-a", "b", "c", "d", "e", "f"}
	// a.csv (smaller, lower FileId) carries a distinguishable prefix line
	// from b.csv despite colliding under the same NormalizedKey's hash.
	corpus := testfix.New(t,
		testfix.FileSpec{Name: "a.csv", Header: "header", Lines: []string{
			testfix.RepeatedLine(';', keyFields, ""),
		}},
		testfix.FileSpec{Name: "b.csv", Header: "header", Lines: []string{
			testfix.RepeatedLine(';', keyFields, "extra-long-tail-in-b"),
		}},
	)

	files, err := scanner.Enumerate(corpus.Dir(), "*.csv")
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	rc := testRunContext()
	rc.Config.HashDelimiter = ';'
	entries := Run(rc, files)

	if len(entries) != 1 {
		t.Fatalf("expected 1 duplicate entry, got %d", len(entries))
	}
	if entries[0].Prefix != "from-a;b;c;d;e;f" {
		t.Errorf("expected prefix from lowest-FileId file, got %q", entries[0].Prefix)
	}
}
