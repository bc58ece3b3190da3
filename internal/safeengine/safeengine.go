// Package safeengine implements the SAFE engine: a memory-frugal two-pass
// strategy that reads prefix strings only for hashes already known to be
// duplicates, keeping at most one per hash per file until the driver reduces
// them to one per hash.
//
// Pass 1 discovers which hashes are duplicates without storing any prefix.
// Pass 2 re-scans only to recover a DisplayPrefix for the hashes pass 1
// flagged. Both passes reuse the fastengine worker pool shape: a fixed set
// of workers pulling InputFiles off a job channel, with the driver as sole
// writer of the aggregate maps.
package safeengine

import (
	"sync"

	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/normalizer"
	"github.com/bejglee/duplicate-finder/internal/progress"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/scanner"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// candidate is a pass-2 worker's proposed DisplayPrefix for a hash, tagged
// with the FileId it was read from so the driver can apply the lowest-FileId
// tie-break deterministically, regardless of worker completion order.
type candidate struct {
	hash   types.Hash64
	prefix string
	fileID types.FileID
}

func workerCount(cfg int, n int) int {
	if cfg > n {
		cfg = n
	}
	if cfg < 1 {
		cfg = 1
	}
	return cfg
}

// Run executes the SAFE engine's two passes and returns every duplicate
// entry, analogous in shape to fastengine.Run's result.
func Run(rc *runctx.RunContext, files []*types.InputFile) []types.DuplicateEntry {
	counts := pass1(rc, files)

	duplicateHashes := make(map[types.Hash64]struct{})
	for h, perFile := range counts {
		total := 0
		for _, c := range perFile {
			total += c
		}
		if total > 1 {
			duplicateHashes[h] = struct{}{}
		}
	}

	prefixes := pass2(rc, files, duplicateHashes)

	return toDuplicateEntries(duplicateHashes, counts, prefixes, files)
}

// pass1 streams every file once and folds per-file Hash64 counts into a
// single hash -> (FileId -> count) table. No prefixes are retained.
func pass1(rc *runctx.RunContext, files []*types.InputFile) map[types.Hash64]map[types.FileID]int {
	type fileCounts struct {
		file   *types.InputFile
		counts map[types.Hash64]int
		err    error
	}

	jobs := make(chan *types.InputFile, len(files))
	results := make(chan fileCounts, len(files))
	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	workers := workerCount(rc.Config.Workers, len(files))
	var wg sync.WaitGroup
	bar := progress.New(!rc.Config.NoProgress, int64(len(files)))
	var processed int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				local := make(map[types.Hash64]int)
				err := scanner.ScanLines(f.Path, func(line []byte) error {
					key := normalizer.Normalize(line, rc.Config.HashDelimiter, rc.Config.HashFields)
					if len(key) == 0 {
						return nil
					}
					local[hasher.Hash64(key)]++
					return nil
				})
				results <- fileCounts{file: f, counts: local, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	folded := make(map[types.Hash64]map[types.FileID]int)
	for res := range results {
		processed++
		bar.Set(uint64(processed))
		if res.err != nil {
			rc.Logger.Errorw("safe engine pass 1: file skipped", "file", res.file.Path, "error", res.err)
			continue
		}
		for h, c := range res.counts {
			perFile, ok := folded[h]
			if !ok {
				perFile = make(map[types.FileID]int)
				folded[h] = perFile
			}
			perFile[res.file.ID] += c
		}
	}
	bar.Finish(message("safe engine: pass 1 complete"))
	return folded
}

// pass2 re-scans every file, collecting a candidate DisplayPrefix for each
// hash in duplicateHashes, tagged by FileId. The driver then keeps the
// lowest-FileId candidate per hash for cross-run determinism.
func pass2(rc *runctx.RunContext, files []*types.InputFile, duplicateHashes map[types.Hash64]struct{}) map[types.Hash64]string {
	if len(duplicateHashes) == 0 {
		return map[types.Hash64]string{}
	}

	jobs := make(chan *types.InputFile, len(files))
	results := make(chan []candidate, len(files))
	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	workers := workerCount(rc.Config.Workers, len(files))
	var wg sync.WaitGroup
	bar := progress.New(!rc.Config.NoProgress, int64(len(files)))
	var processed int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				seen := make(map[types.Hash64]struct{})
				var local []candidate
				err := scanner.ScanLines(f.Path, func(line []byte) error {
					key := normalizer.Normalize(line, rc.Config.HashDelimiter, rc.Config.HashFields)
					if len(key) == 0 {
						return nil
					}
					h := hasher.Hash64(key)
					if _, want := duplicateHashes[h]; !want {
						return nil
					}
					if _, already := seen[h]; already {
						return nil
					}
					seen[h] = struct{}{}

					prefix := line
					if len(prefix) > rc.Config.WriteLength {
						prefix = prefix[:rc.Config.WriteLength]
					}
					local = append(local, candidate{hash: h, prefix: string(prefix), fileID: f.ID})
					return nil
				})
				if err != nil {
					rc.Logger.Errorw("safe engine pass 2: file skipped", "file", f.Path, "error", err)
				}
				results <- local
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	best := make(map[types.Hash64]candidate)
	for local := range results {
		processed++
		bar.Set(uint64(processed))
		for _, c := range local {
			cur, ok := best[c.hash]
			if !ok || c.fileID < cur.fileID {
				best[c.hash] = c
			}
		}
	}
	bar.Finish(message("safe engine: pass 2 complete"))

	prefixes := make(map[types.Hash64]string, len(best))
	for h, c := range best {
		prefixes[h] = c.prefix
	}
	return prefixes
}

func toDuplicateEntries(
	duplicateHashes map[types.Hash64]struct{},
	counts map[types.Hash64]map[types.FileID]int,
	prefixes map[types.Hash64]string,
	files []*types.InputFile,
) []types.DuplicateEntry {
	basenameByID := make(map[types.FileID]string, len(files))
	for _, f := range files {
		basenameByID[f.ID] = f.Basename
	}

	entries := make([]types.DuplicateEntry, 0, len(duplicateHashes))
	for h := range duplicateHashes {
		var basenames []string
		for fid, c := range counts[h] {
			if c > 0 {
				basenames = append(basenames, basenameByID[fid])
			}
		}
		entries = append(entries, types.DuplicateEntry{
			Prefix:    prefixes[h],
			Basenames: types.NewSorted(basenames, func(s string) string { return s }).Items(),
		})
	}
	return entries
}

type message string

func (m message) String() string { return string(m) }
