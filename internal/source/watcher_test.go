package source

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/chunkrecall/internal/chunker"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_RebuildsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	other := filepath.Join(dir, "ignored.txt")
	writeFile(t, path, "first version")

	rec := &recordingCollector{}
	w := NewWatcher(NewFeeder(rec, chunker.NewChunker(8, 0)), []string{path}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if !waitFor(t, 2*time.Second, func() bool { _, adds := rec.snapshot(); return adds == 1 }) {
		t.Fatal("initial feed did not happen")
	}

	// Give fsnotify a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, other, "not watched")
	writeFile(t, path, "second version")

	if !waitFor(t, 3*time.Second, func() bool {
		chunks, _ := rec.snapshot()
		return reflect.DeepEqual(chunks, []string{"second version"})
	}) {
		chunks, adds := rec.snapshot()
		t.Fatalf("expected rebuild, chunks=%q adds=%d", chunks, adds)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not return after cancel")
	}
}

func TestWatcher_InitialFeedError(t *testing.T) {
	rec := &recordingCollector{}
	w := NewWatcher(NewFeeder(rec, chunker.NewChunker(8, 0)), []string{"/nonexistent/notes.txt"})
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error when the initial feed fails")
	}
}

// slowCollector delays Add to simulate embedding inference and tracks overlapping calls.
type slowCollector struct {
	recordingCollector
	delay time.Duration

	activeMu  sync.Mutex
	active    int
	maxActive int
}

func (s *slowCollector) Add(ctx context.Context, chunks []string) error {
	s.activeMu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.activeMu.Unlock()

	time.Sleep(s.delay)

	s.activeMu.Lock()
	s.active--
	s.activeMu.Unlock()
	return s.recordingCollector.Add(ctx, chunks)
}

func (s *slowCollector) peak() int {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.maxActive
}

func TestWatcher_RebuildsDoNotOverlap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "version 0")

	slow := &slowCollector{delay: 300 * time.Millisecond}
	w := NewWatcher(NewFeeder(slow, chunker.NewChunker(8, 0)), []string{path}, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if !waitFor(t, 2*time.Second, func() bool { _, adds := slow.snapshot(); return adds == 1 }) {
		t.Fatal("initial feed did not happen")
	}
	time.Sleep(100 * time.Millisecond)

	// Each write lands while the previous rebuild is still inside Add.
	for _, v := range []string{"version 1", "version 2", "version 3"} {
		writeFile(t, path, v)
		time.Sleep(100 * time.Millisecond)
	}

	if !waitFor(t, 5*time.Second, func() bool {
		chunks, _ := slow.snapshot()
		return reflect.DeepEqual(chunks, []string{"version 3"})
	}) {
		chunks, adds := slow.snapshot()
		t.Fatalf("latest edit lost, chunks=%q adds=%d", chunks, adds)
	}
	if peak := slow.peak(); peak != 1 {
		t.Errorf("rebuilds overlapped: %d concurrent Add calls", peak)
	}
}
