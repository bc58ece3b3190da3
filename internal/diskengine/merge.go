package diskengine

import (
	"bufio"
	"container/heap"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// runReader wraps one open run file with its current decoded record, for
// use as a heap element in the k-way merge.
type runReader struct {
	scanner *bufio.Scanner
	file    *os.File
	current hashRecord
	seq     int // submission order, used only to keep the heap deterministic
	done    bool
}

func openRunReader(path string, seq int) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file %s: %w", path, err)
	}
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 4<<20)
	r := &runReader{scanner: s, file: f, seq: seq}
	if err := r.advance(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *runReader) advance() error {
	if !r.scanner.Scan() {
		r.done = true
		return r.scanner.Err()
	}
	rec, err := readRecord(r.scanner.Text())
	if err != nil {
		return err
	}
	r.current = rec
	return nil
}

func (r *runReader) close() {
	_ = r.file.Close()
}

// runHeap is a min-heap over open runReaders keyed by (HEX_HASH lexicographic
// order == Hash64 numeric order, then submission order for determinism).
type runHeap []*runReader

func (h runHeap) Len() int { return len(h) }
func (h runHeap) Less(i, j int) bool {
	if h[i].current.hash != h[j].current.hash {
		return h[i].current.hash < h[j].current.hash
	}
	return h[i].seq < h[j].seq
}
func (h runHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x interface{}) { *h = append(*h, x.(*runReader)) }
func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeBatch k-way merges the given run files into a single sorted output
// run file, preserving hash order with stable tie-breaking on submission
// order.
func mergeBatch(paths []string, outPath string) error {
	readers := make([]*runReader, 0, len(paths))
	defer func() {
		for _, r := range readers {
			r.close()
		}
	}()

	h := &runHeap{}
	for i, p := range paths {
		r, err := openRunReader(p, i)
		if err != nil {
			return err
		}
		readers = append(readers, r)
		if !r.done {
			heap.Push(h, r)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create merge output %s: %w", outPath, err)
	}
	defer func() { _ = out.Close() }()
	w := bufio.NewWriter(out)

	for h.Len() > 0 {
		r := heap.Pop(h).(*runReader)
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", hexOf(r.current.hash), r.current.fileID, r.current.prefix); err != nil {
			return fmt.Errorf("write merge output %s: %w", outPath, err)
		}
		if err := r.advance(); err != nil {
			return err
		}
		if !r.done {
			heap.Push(h, r)
		}
	}

	return w.Flush()
}

func hexOf(h types.Hash64) string {
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	v := uint64(h)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}

// phase2 repeatedly merges batches of at most --merge-batch-size run files
// until a single run remains. It returns the final run's path together with
// every intermediate merge output it created, so the caller can clean them
// up alongside the phase-1 runs.
func phase2(rc *runctx.RunContext, runs []string, tempDir string) (final string, intermediates []string, err error) {
	if len(runs) == 0 {
		path := filepath.Join(tempDir, "hashes_empty.tmp")
		f, createErr := os.Create(path)
		if createErr != nil {
			return "", nil, fmt.Errorf("create empty run: %w", createErr)
		}
		_ = f.Close()
		return path, []string{path}, nil
	}

	batchSize := rc.Config.MergeBatchSize
	if batchSize < 2 {
		batchSize = 2
	}

	current := runs
	round := 0

	for len(current) > 1 {
		var next []string
		for i := 0; i < len(current); i += batchSize {
			end := i + batchSize
			if end > len(current) {
				end = len(current)
			}
			batch := current[i:end]
			if len(batch) == 1 {
				next = append(next, batch[0])
				continue
			}
			outPath := filepath.Join(tempDir, fmt.Sprintf("merged_round%d_batch%d.tmp", round, i/batchSize))
			if mergeErr := mergeBatch(batch, outPath); mergeErr != nil {
				return "", intermediates, fmt.Errorf("merge batch: %w", mergeErr)
			}
			next = append(next, outPath)
			intermediates = append(intermediates, outPath)
		}
		rc.Logger.Infow("disk engine: merge round complete", "round", round, "runs_in", len(current), "runs_out", len(next))
		current = next
		round++
	}

	return current[0], intermediates, nil
}
