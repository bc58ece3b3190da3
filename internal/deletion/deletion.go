// Package deletion implements the deletion pipeline: an optional
// post-engine pass that rewrites source files so every normalized key
// survives exactly once, in the lowest-FileId file that originally
// contained it, at its earliest in-file position.
//
// Stage A removes every line whose hash spans more than one file from all
// but the lowest-FileId file. Stage B then drops all but the first
// occurrence of each surviving hash within each file. Both stages rewrite
// a file by streaming it to a temp file and replacing it atomically,
// keeping a short-lived .backup copy in case the final rename fails.
package deletion

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/normalizer"
	"github.com/bejglee/duplicate-finder/internal/progress"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// Stats summarizes one Run invocation, for logging and the exit-status
// decision.
type Stats struct {
	FilesRewrittenStageA int
	LinesDeletedStageA   int
	FilesRewrittenStageB int
	LinesDeletedStageB   int
	FailedFiles          int
}

// Run executes Stage A then Stage B over every file. A failure on one file
// is logged and does not abort processing of the others; Run returns a
// non-nil error if any file failed, so the driver can set a non-zero exit
// status while still having attempted every file.
func Run(rc *runctx.RunContext, files []*types.InputFile) (Stats, error) {
	var stats Stats

	counts, err := buildHashFileCounts(rc, files)
	if err != nil {
		return stats, fmt.Errorf("deletion pipeline: building hash counts: %w", err)
	}

	deleteSet := stageADeletionSet(counts)

	bar := progress.New(!rc.Config.NoProgress, int64(len(files)))
	var processed int64
	var failed bool

	for _, f := range files {
		processed++
		bar.Set(uint64(processed))

		hashes := deleteSet[f.ID]
		if len(hashes) > 0 {
			kept, dropped, err := rewriteFile(rc, f.Path, func(h types.Hash64) bool {
				_, drop := hashes[h]
				return !drop
			})
			if err != nil {
				rc.Logger.Errorw("deletion pipeline stage A: file rewrite failed", "file", f.Path, "error", err)
				stats.FailedFiles++
				failed = true
				continue
			}
			stats.FilesRewrittenStageA++
			stats.LinesDeletedStageA += dropped
			rc.Logger.Infow("deletion pipeline stage A: file rewritten", "file", f.Path, "kept", kept, "dropped", dropped)
		}
	}
	bar.Finish(message("deletion pipeline: stage A complete"))

	bar = progress.New(!rc.Config.NoProgress, int64(len(files)))
	processed = 0
	for _, f := range files {
		processed++
		bar.Set(uint64(processed))

		seen := make(map[types.Hash64]struct{})
		kept, dropped, err := rewriteFile(rc, f.Path, func(h types.Hash64) bool {
			if _, ok := seen[h]; ok {
				return false
			}
			seen[h] = struct{}{}
			return true
		})
		if err != nil {
			rc.Logger.Errorw("deletion pipeline stage B: file rewrite failed", "file", f.Path, "error", err)
			stats.FailedFiles++
			failed = true
			continue
		}
		if dropped > 0 {
			stats.FilesRewrittenStageB++
			stats.LinesDeletedStageB += dropped
			rc.Logger.Infow("deletion pipeline stage B: file rewritten", "file", f.Path, "kept", kept, "dropped", dropped)
		}
	}
	bar.Finish(message("deletion pipeline: stage B complete"))

	if failed {
		return stats, fmt.Errorf("deletion pipeline: %d file(s) failed to rewrite", stats.FailedFiles)
	}
	return stats, nil
}

// buildHashFileCounts streams every file once, folding per-file Hash64
// counts into hash -> (FileId -> count), mirroring safeengine's pass 1.
func buildHashFileCounts(rc *runctx.RunContext, files []*types.InputFile) (map[types.Hash64]map[types.FileID]int, error) {
	counts := make(map[types.Hash64]map[types.FileID]int)
	for _, f := range files {
		err := streamHashes(f.Path, rc.Config.HashDelimiter, rc.Config.HashFields, func(h types.Hash64) {
			perFile, ok := counts[h]
			if !ok {
				perFile = make(map[types.FileID]int)
				counts[h] = perFile
			}
			perFile[f.ID]++
		})
		if err != nil {
			rc.Logger.Errorw("deletion pipeline: counting pass skipped file", "file", f.Path, "error", err)
		}
	}
	return counts, nil
}

// stageADeletionSet determines, for every hash spanning more than one
// file, the lowest FileId to keep it in, and returns the set of hashes to
// strip entirely from every other file.
func stageADeletionSet(counts map[types.Hash64]map[types.FileID]int) map[types.FileID]map[types.Hash64]struct{} {
	deleteSet := make(map[types.FileID]map[types.Hash64]struct{})
	for h, perFile := range counts {
		if len(perFile) < 2 {
			continue
		}
		keep := types.FileID(-1)
		for fid := range perFile {
			if keep == -1 || fid < keep {
				keep = fid
			}
		}
		for fid := range perFile {
			if fid == keep {
				continue
			}
			if deleteSet[fid] == nil {
				deleteSet[fid] = make(map[types.Hash64]struct{})
			}
			deleteSet[fid][h] = struct{}{}
		}
	}
	return deleteSet
}

// streamHashes reads path line by line (header discarded, blanks skipped,
// lossy UTF-8 decoded, trimmed) and invokes fn with each line's Hash64.
func streamHashes(path string, delim byte, fields int, fn func(types.Hash64)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 16<<20)
	if !s.Scan() {
		return s.Err()
	}
	for s.Scan() {
		trimmed := strings.TrimSpace(decodeLossy(s.Bytes()))
		if trimmed == "" {
			continue
		}
		key := normalizer.Normalize([]byte(trimmed), delim, fields)
		if len(key) == 0 {
			continue
		}
		fn(hasher.Hash64(key))
	}
	return s.Err()
}

func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

type message string

func (m message) String() string { return string(m) }
