package main

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// parseDelimiter validates that s is exactly one byte long and returns it.
func parseDelimiter(s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("delimiter must be exactly one byte, got %q", s)
	}
	return s[0], nil
}

// validateFilePattern checks that pattern is a valid filepath.Match pattern.
func validateFilePattern(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return nil
}

// defaultWorkers leaves one core free for the OS and I/O: max(1, NumCPU-1).
func defaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}
