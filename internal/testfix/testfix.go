// Package testfix provides integration test infrastructure for building
// small CSV corpora on disk, using a t.TempDir()-backed fixture object
// that test files build once and query repeatedly.
package testfix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileSpec describes one input file to materialize: a header line (kept
// verbatim, never hashed) and the data lines that follow it.
type FileSpec struct {
	Name   string
	Header string
	Lines  []string
}

// Corpus is a temporary directory populated with FileSpecs.
//
// Usage:
//
//	c := testfix.New(t,
//	    testfix.FileSpec{Name: "a.csv", Header: "h", Lines: []string{"x;y;z"}},
//	    testfix.FileSpec{Name: "b.csv", Header: "h", Lines: []string{"x;y;z"}},
//	)
//	files, err := scanner.Enumerate(c.Dir(), "*.csv")
type Corpus struct {
	t   *testing.T
	dir string
}

// New creates a Corpus by writing every FileSpec into a fresh temp
// directory. The directory is cleaned up automatically by t.TempDir().
func New(t *testing.T, files ...FileSpec) *Corpus {
	t.Helper()

	dir := t.TempDir()
	c := &Corpus{t: t, dir: dir}

	for _, f := range files {
		var b strings.Builder
		b.WriteString(f.Header)
		b.WriteByte('\n')
		for _, line := range f.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			t.Fatalf("testfix: write %s: %v", f.Name, err)
		}
	}

	return c
}

// Dir returns the corpus's root directory, suitable as an input directory
// for scanner.Enumerate.
func (c *Corpus) Dir() string { return c.dir }

// Path returns the absolute path of a named file within the corpus.
func (c *Corpus) Path(name string) string { return filepath.Join(c.dir, name) }

// ReadFile returns the current contents of a named file, failing the test
// if it cannot be read. Used to assert on deletion-pipeline rewrites.
func (c *Corpus) ReadFile(name string) string {
	c.t.Helper()
	b, err := os.ReadFile(c.Path(name))
	if err != nil {
		c.t.Fatalf("testfix: read %s: %v", name, err)
	}
	return string(b)
}

// Lines returns a named file's non-empty lines after its header.
func (c *Corpus) Lines(name string) []string {
	c.t.Helper()
	content := c.ReadFile(name)
	all := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(all) == 0 {
		return nil
	}
	var lines []string
	for _, l := range all[1:] {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// RepeatedLine builds a line from the K key fields (so it normalizes to the
// same key) followed by tail as a (K+1)th field; an empty tail adds no
// field. Useful for constructing inter-file duplicate fixtures.
func RepeatedLine(delim byte, keyFields []string, tail string) string {
	d := string(delim)
	line := strings.Join(keyFields, d)
	if tail != "" {
		line += d + tail
	}
	return line
}
