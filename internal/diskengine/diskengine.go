// Package diskengine implements the DISK engine: a three-phase external
// merge sort used when neither FAST nor SAFE fits the configured memory
// budget.
//
// Phase 1 chunks every InputFile into byte-bounded runs, sorts each run by
// Hash64 and writes it to a temp file. Phase 2 cascades a k-way merge over
// the run files in batches bounded by --merge-batch-size. Phase 3 streams
// the single surviving run and groups adjacent records sharing a hash into
// DuplicateEntries.
package diskengine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/normalizer"
	"github.com/bejglee/duplicate-finder/internal/progress"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/scanner"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// fmtBytes is a shorthand for humanize.IBytes (human-readable byte sizes).
var fmtBytes = humanize.IBytes

// chunkBytes is the default byte budget per phase-1 chunk, roughly 128 MiB.
const chunkBytes = 128 << 20

const diskModeDelimiter = '\t'

// hashRecord is one line item (Hash64, FileId, DisplayPrefix) as written to
// and read from run files.
type hashRecord struct {
	hash   types.Hash64
	fileID types.FileID
	prefix string
}

// Run executes all three DISK engine phases and returns the resulting
// DuplicateEntries. tempDir is created if missing and cleaned up on exit;
// cleanup failures are logged as warnings, never fatal.
func Run(rc *runctx.RunContext, files []*types.InputFile) ([]types.DuplicateEntry, error) {
	tempDir := rc.Config.TempDir
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	var allTempFiles []string
	defer cleanup(rc, tempDir, &allTempFiles)

	runFiles, err := phase1(rc, files, tempDir)
	if err != nil {
		return nil, fmt.Errorf("disk engine phase 1: %w", err)
	}
	allTempFiles = append(allTempFiles, runFiles...)

	finalRun, intermediates, err := phase2(rc, runFiles, tempDir)
	allTempFiles = append(allTempFiles, intermediates...)
	if err != nil {
		return nil, fmt.Errorf("disk engine phase 2: %w", err)
	}

	entries, err := phase3(rc, finalRun, files)
	if err != nil {
		return nil, fmt.Errorf("disk engine phase 3: %w", err)
	}
	return entries, nil
}

func cleanup(rc *runctx.RunContext, tempDir string, runFiles *[]string) {
	for _, p := range *runFiles {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			rc.Logger.Warnw("disk engine cleanup: could not remove run file", "file", p, "error", err)
		}
	}
	if err := os.Remove(tempDir); err != nil && !os.IsNotExist(err) {
		rc.Logger.Warnw("disk engine cleanup: temp dir not empty or removable", "dir", tempDir, "error", err)
	}
}

// phase1 produces zero or more sorted run files per InputFile (none for a
// file with no data lines).
func phase1(rc *runctx.RunContext, files []*types.InputFile, tempDir string) ([]string, error) {
	type jobResult struct {
		runs []string
		err  error
		file *types.InputFile
	}

	rc.Logger.Infow("disk engine: chunking files", "chunk_budget", fmtBytes(chunkBytes), "files", len(files))

	jobs := make(chan *types.InputFile, len(files))
	results := make(chan jobResult, len(files))
	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	workers := rc.Config.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	bar := progress.New(!rc.Config.NoProgress, int64(len(files)))
	var processed int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				runs, err := chunkAndSortFile(rc, f, tempDir)
				results <- jobResult{runs: runs, err: err, file: f}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var allRuns []string
	var firstErr error
	for res := range results {
		processed++
		bar.Set(uint64(processed))
		if res.err != nil {
			rc.Logger.Errorw("disk engine phase 1: file skipped", "file", res.file.Path, "error", res.err)
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		allRuns = append(allRuns, res.runs...)
	}
	bar.Finish(message("disk engine: phase 1 complete"))

	if len(allRuns) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return allRuns, nil
}

// chunkAndSortFile scans one InputFile in byte-bounded chunks, sorting and
// flushing each chunk to its own run file.
func chunkAndSortFile(rc *runctx.RunContext, f *types.InputFile, tempDir string) ([]string, error) {
	var runs []string
	var chunk []hashRecord
	var chunkSize int
	chunkIndex := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		slices.SortStableFunc(chunk, func(a, b hashRecord) int {
			if a.hash < b.hash {
				return -1
			}
			if a.hash > b.hash {
				return 1
			}
			return 0
		})
		path := filepath.Join(tempDir, fmt.Sprintf("hashes_%d_chunk_%d.tmp", f.ID, chunkIndex))
		if err := writeRunFile(path, chunk); err != nil {
			return err
		}
		runs = append(runs, path)
		chunk = chunk[:0]
		chunkSize = 0
		chunkIndex++
		return nil
	}

	err := scanner.ScanLines(f.Path, func(line []byte) error {
		key := normalizer.Normalize(line, rc.Config.HashDelimiter, rc.Config.HashFields)
		if len(key) == 0 {
			return nil
		}
		h := hasher.Hash64(key)

		prefix := line
		if len(prefix) > rc.Config.WriteLength {
			prefix = prefix[:rc.Config.WriteLength]
		}
		prefixStr := strings.ReplaceAll(string(prefix), string(diskModeDelimiter), " ")

		chunk = append(chunk, hashRecord{hash: h, fileID: f.ID, prefix: prefixStr})
		chunkSize += len(line)
		if chunkSize >= chunkBytes {
			return flush()
		}
		return nil
	})
	if err != nil {
		return runs, err
	}
	if ferr := flush(); ferr != nil {
		return runs, ferr
	}
	return runs, nil
}

func writeRunFile(path string, records []hashRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create run file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", hasher.HexString(r.hash), r.fileID, r.prefix); err != nil {
			return fmt.Errorf("write run file %s: %w", path, err)
		}
	}
	return w.Flush()
}

func readRecord(line string) (hashRecord, error) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return hashRecord{}, fmt.Errorf("malformed run record: %q", line)
	}
	var h uint64
	if _, err := fmt.Sscanf(parts[0], "%x", &h); err != nil {
		return hashRecord{}, fmt.Errorf("malformed hash field: %q: %w", parts[0], err)
	}
	fid, err := strconv.Atoi(parts[1])
	if err != nil {
		return hashRecord{}, fmt.Errorf("malformed fileid field: %q: %w", parts[1], err)
	}
	return hashRecord{hash: types.Hash64(h), fileID: types.FileID(fid), prefix: parts[2]}, nil
}

// message is a fmt.Stringer wrapping a fixed progress-bar final message.
type message string

func (m message) String() string { return string(m) }
