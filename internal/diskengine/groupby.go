package diskengine

import (
	"bufio"
	"fmt"
	"os"

	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// phase3 streams the single surviving merged run and groups adjacent
// records sharing a hash. Groups of size > 1 become DuplicateEntries; the
// DisplayPrefix adopted is the minimum-FileId record in the group, which
// unifies DISK's choice with SAFE's lowest-FileId rule.
func phase3(rc *runctx.RunContext, finalRun string, files []*types.InputFile) ([]types.DuplicateEntry, error) {
	basenameByID := make(map[types.FileID]string, len(files))
	for _, f := range files {
		basenameByID[f.ID] = f.Basename
	}

	f, err := os.Open(finalRun)
	if err != nil {
		return nil, fmt.Errorf("open final run %s: %w", finalRun, err)
	}
	defer func() { _ = f.Close() }()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 4<<20)

	var entries []types.DuplicateEntry
	var group []hashRecord
	currentHash := types.Hash64(0)
	haveGroup := false

	flushGroup := func() {
		if len(group) <= 1 {
			return
		}
		entries = append(entries, groupToEntry(group, basenameByID))
	}

	for s.Scan() {
		rec, err := readRecord(s.Text())
		if err != nil {
			rc.Logger.Errorw("disk engine phase 3: malformed run record skipped", "error", err)
			continue
		}
		if haveGroup && rec.hash != currentHash {
			flushGroup()
			group = group[:0]
		}
		group = append(group, rec)
		currentHash = rec.hash
		haveGroup = true
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read final run %s: %w", finalRun, err)
	}
	flushGroup()

	rc.Logger.Infow("disk engine: phase 3 complete", "duplicate_groups", len(entries))
	return entries, nil
}

func groupToEntry(group []hashRecord, basenameByID map[types.FileID]string) types.DuplicateEntry {
	minIdx := 0
	for i, r := range group {
		if r.fileID < group[minIdx].fileID {
			minIdx = i
		}
	}

	seenFile := make(map[types.FileID]struct{})
	var basenames []string
	for _, r := range group {
		if _, ok := seenFile[r.fileID]; ok {
			continue
		}
		seenFile[r.fileID] = struct{}{}
		basenames = append(basenames, basenameByID[r.fileID])
	}

	return types.DuplicateEntry{
		Prefix:    group[minIdx].prefix,
		Basenames: types.NewSorted(basenames, func(s string) string { return s }).Items(),
	}
}
