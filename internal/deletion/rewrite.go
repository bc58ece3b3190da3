package deletion

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bejglee/duplicate-finder/internal/hasher"
	"github.com/bejglee/duplicate-finder/internal/normalizer"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// rewriteFile streams path, preserving its header and blank lines
// unconditionally, and keeping a data line only when keep(hash) returns
// true. The result replaces path atomically: write to a .tmp file, rename
// the original aside to .backup, rename .tmp into place, then remove the
// .backup. If writing the .tmp file or backing up the original fails, the
// original is left untouched and no .backup exists. If the final rename
// fails, the .backup is renamed back over path, so no .backup remains; only
// when that restore also fails is the .backup left in place and named in the
// returned error.
func rewriteFile(rc *runctx.RunContext, path string, keep func(types.Hash64) bool) (keptLines, droppedLines int, err error) {
	tmpPath := path + ".tmp"
	backupPath := path + ".backup"

	if werr := writeFiltered(rc, path, tmpPath, keep, &keptLines, &droppedLines); werr != nil {
		_ = os.Remove(tmpPath)
		return 0, 0, werr
	}

	if err := os.Rename(path, backupPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, 0, fmt.Errorf("back up %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if restoreErr := os.Rename(backupPath, path); restoreErr != nil {
			return 0, 0, fmt.Errorf("replace %s failed (%w) and restore failed (%v); backup at %s", path, err, restoreErr, backupPath)
		}
		return 0, 0, fmt.Errorf("replace %s: %w", path, err)
	}

	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		rc.Logger.Warnw("deletion pipeline: could not remove backup", "file", backupPath, "error", err)
	}

	return keptLines, droppedLines, nil
}

func writeFiltered(rc *runctx.RunContext, path, tmpPath string, keep func(types.Hash64) bool, keptLines, droppedLines *int) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}
	defer func() { _ = out.Close() }()

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 16<<20)
	w := bufio.NewWriter(out)

	lineNo := 0
	for s.Scan() {
		raw := s.Bytes()
		isHeader := lineNo == 0
		lineNo++

		if isHeader {
			if _, err := w.Write(raw); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			continue
		}

		trimmed := strings.TrimSpace(decodeLossy(raw))
		if trimmed == "" {
			if _, err := w.Write(raw); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			continue
		}

		key := normalizer.Normalize([]byte(trimmed), rc.Config.HashDelimiter, rc.Config.HashFields)
		h := hasher.Hash64(key)

		if keep(h) {
			if _, err := w.Write(raw); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			*keptLines++
			continue
		}
		*droppedLines++
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	return nil
}
