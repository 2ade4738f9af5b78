package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("meeting")

	first := gen.Next()
	second := gen.Next()

	if first != "meeting-1" || second != "meeting-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued ids, got %d", gen.Issued())
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("user")
	_ = gen.Next()
	gen.Reset("")

	if next := gen.Next(); next != "id-1" {
		t.Fatalf("expected id-1 after reset, got %q", next)
	}
}

func TestIDGeneratorIsUniqueUnderConcurrency(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("c")
	const workers = 16

	var mu sync.Mutex
	seen := make(map[string]bool, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Fatalf("expected %d distinct ids, got %d", workers, len(seen))
	}
}
