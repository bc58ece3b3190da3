package types

import "testing"

func TestAssignFileIDsOrdersBySizeThenBasename(t *testing.T) {
	files := []*InputFile{
		{Basename: "z.csv", Size: 100},
		{Basename: "a.csv", Size: 50},
		{Basename: "a.csv", Size: 100},
	}
	AssignFileIDs(files)

	want := []struct {
		basename string
		size     int64
		id       FileID
	}{
		{"a.csv", 50, 0},
		{"a.csv", 100, 1},
		{"z.csv", 100, 2},
	}

	byBasenameSize := make(map[string]*InputFile)
	for _, f := range files {
		byBasenameSize[f.Basename] = f
	}

	for _, w := range want {
		var found *InputFile
		for _, f := range files {
			if f.Basename == w.basename && f.Size == w.size {
				found = f
			}
		}
		if found == nil {
			t.Fatalf("missing file %s size %d", w.basename, w.size)
		}
		if found.ID != w.id {
			t.Errorf("file %s size %d: expected ID %d, got %d", w.basename, w.size, w.id, found.ID)
		}
	}
}

func TestOccurrenceEntryTotal(t *testing.T) {
	e := OccurrenceEntry{Counts: map[FileID]int{0: 2, 1: 3}}
	if e.Total() != 5 {
		t.Errorf("expected total 5, got %d", e.Total())
	}
}

func TestSortedOrdersByKey(t *testing.T) {
	s := NewSorted([]string{"banana", "apple", "cherry"}, func(v string) string { return v })
	got := s.Items()
	want := []string{"apple", "banana", "cherry"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("expected Len() 3, got %d", s.Len())
	}
}

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	sem.Acquire()
	sem.Acquire()

	acquired := make(chan struct{})
	go func() {
		sem.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third Acquire should have blocked while semaphore was full")
	default:
	}

	sem.Release()
	<-acquired
}
