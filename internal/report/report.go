// Package report renders the engine's DuplicateEntries to a single UTF-8
// text file in ascending DisplayPrefix order.
package report

import (
	"bufio"
	"fmt"
	"os"

	"github.com/bejglee/duplicate-finder/internal/types"
)

const intraFileMarker = "(Fájlon belüli duplikátumok) "
const noDuplicatesLine = "Nem található duplikátum."

// Write renders entries to path, sorted ascending by DisplayPrefix. An
// entry whose Basenames has exactly one element (pure intra-file
// duplication) is prefixed with intraFileMarker. If entries is empty, a
// single noDuplicatesLine ("no duplicates", in Hungarian) is written instead.
func Write(path string, entries []types.DuplicateEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)

	if len(entries) == 0 {
		if _, err := fmt.Fprintln(w, noDuplicatesLine); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}
		return w.Flush()
	}

	sorted := types.NewSorted(entries, func(e types.DuplicateEntry) string { return e.Prefix })
	for _, e := range sorted.Items() {
		line := e.Prefix
		if len(e.Basenames) == 1 {
			line = intraFileMarker + line
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}
		for _, b := range e.Basenames {
			if _, err := fmt.Fprintf(w, "    - %s\n", b); err != nil {
				return fmt.Errorf("write report %s: %w", path, err)
			}
		}
	}

	return w.Flush()
}
