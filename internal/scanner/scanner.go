// Package scanner implements the File Scanner (FS): non-recursive input
// directory enumeration plus per-file line streaming.
//
// Enumeration assigns the run's FileID total order (ascending size, ties by
// basename) the moment the input set is known, so every later component
// agrees on it without re-deriving it. Input lives in a single flat
// directory, so there is no walker fan-out here — just a batched
// os.ReadDir pass.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bejglee/duplicate-finder/internal/types"
)

// Enumerate lists dir non-recursively for regular files whose basename
// matches pattern (a filepath.Match glob) and returns them with FileIDs
// assigned in ascending size, ties broken by basename.
func Enumerate(dir, pattern string) ([]*types.InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []*types.InputFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matched, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("file pattern %q: %w", pattern, err)
		}
		if !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // race with deletion between ReadDir and Info; skip
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, &types.InputFile{
			Path:     filepath.Join(dir, entry.Name()),
			Basename: entry.Name(),
			Size:     info.Size(),
		})
	}

	return types.AssignFileIDs(files), nil
}
