// Package fastengine implements the FAST engine: a single-pass, per-file
// parallel build of local hash maps merged by the driver.
//
// N fixed workers consume jobs from a channel; the driver is the sole
// writer of the aggregate map, so no locking is needed on the merge step.
package fastengine

import (
	"sync"

	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/normalizer"
	"github.com/bejglee/duplicate-finder/internal/progress"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/scanner"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// localEntry is one file worker's view of a hash: the first prefix it saw
// for that hash, and how many times it saw the hash within its own file.
type localEntry struct {
	prefix string
	count  int
}

// fileResult is what one worker returns for one InputFile.
type fileResult struct {
	file *types.InputFile
	hits map[types.Hash64]*localEntry
	err  error
}

// Run executes the FAST engine and returns every DuplicateEntry whose
// total occurrence count across all files exceeds 1. The entries are in no
// particular order; report.Write sorts them by prefix.
//
// A worker failure on one file is logged and does not abort the run; that
// file simply contributes nothing.
func Run(rc *runctx.RunContext, files []*types.InputFile) []types.DuplicateEntry {
	jobs := make(chan *types.InputFile, len(files))
	results := make(chan fileResult, len(files))

	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	var wg sync.WaitGroup
	workers := rc.Config.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	bar := progress.New(!rc.Config.NoProgress, int64(len(files)))
	var processed int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				results <- processFile(rc, f)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	global := make(map[types.Hash64]*types.OccurrenceEntry)
	for res := range results {
		processed++
		bar.Set(uint64(processed))
		if res.err != nil {
			rc.Logger.Errorw("fast engine: file skipped", "file", res.file.Path, "error", res.err)
			continue
		}
		mergeInto(global, res.file.ID, res.hits)
	}
	bar.Finish(message("fast engine: scan complete"))

	return toDuplicateEntries(global, files)
}

// processFile streams one file and builds its local hash map.
func processFile(rc *runctx.RunContext, f *types.InputFile) fileResult {
	local := make(map[types.Hash64]*localEntry)
	err := scanner.ScanLines(f.Path, func(line []byte) error {
		key := normalizer.Normalize(line, rc.Config.HashDelimiter, rc.Config.HashFields)
		if len(key) == 0 {
			return nil
		}
		h := hasher.Hash64(key)

		e, ok := local[h]
		if !ok {
			prefix := line
			if len(prefix) > rc.Config.WriteLength {
				prefix = prefix[:rc.Config.WriteLength]
			}
			e = &localEntry{prefix: string(prefix)}
			local[h] = e
		}
		e.count++
		return nil
	})
	return fileResult{file: f, hits: local, err: err}
}

// mergeInto folds one file's local hash map into the global occurrence
// table. The driver is the only goroutine touching global, so no lock is
// required. A hash's DisplayPrefix is always the one contributed by its
// lowest-FileId occurrence, independent of worker completion order.
func mergeInto(global map[types.Hash64]*types.OccurrenceEntry, fileID types.FileID, local map[types.Hash64]*localEntry) {
	for h, le := range local {
		g, ok := global[h]
		if !ok {
			g = &types.OccurrenceEntry{Prefix: le.prefix, PrefixFileID: fileID, Counts: make(map[types.FileID]int)}
			global[h] = g
		} else if fileID < g.PrefixFileID {
			g.Prefix = le.prefix
			g.PrefixFileID = fileID
		}
		g.Counts[fileID] += le.count
	}
}

// toDuplicateEntries emits a DuplicateEntry for every hash whose total
// occurrence count exceeds 1, with basenames sorted ascending.
func toDuplicateEntries(global map[types.Hash64]*types.OccurrenceEntry, files []*types.InputFile) []types.DuplicateEntry {
	basenameByID := make(map[types.FileID]string, len(files))
	for _, f := range files {
		basenameByID[f.ID] = f.Basename
	}

	var entries []types.DuplicateEntry
	for _, e := range global {
		if e.Total() <= 1 {
			continue
		}
		var basenames []string
		for fid, count := range e.Counts {
			if count > 0 {
				basenames = append(basenames, basenameByID[fid])
			}
		}
		entries = append(entries, types.DuplicateEntry{Prefix: e.Prefix, Basenames: sortedUnique(basenames)})
	}
	return entries
}

func sortedUnique(ss []string) []string {
	sorted := types.NewSorted(ss, func(s string) string { return s })
	return sorted.Items()
}

// message is a fmt.Stringer wrapping a fixed progress-bar final message.
type message string

func (m message) String() string { return string(m) }
