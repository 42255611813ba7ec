package cache

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryCountersStartAtZero(t *testing.T) {
	counters := NewMemoryCounters()
	value, err := counters.Get(context.Background(), "wages:ver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 0 {
		t.Fatalf("expected missing key to read zero, got %d", value)
	}
}

func TestMemoryCountersIncrReturnsNewValue(t *testing.T) {
	counters := NewMemoryCounters()
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := counters.Incr(ctx, "orgs:ver")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("expected incr to return %d, got %d", want, got)
		}
	}
	stored, err := counters.Get(ctx, "orgs:ver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 3 {
		t.Fatalf("expected stored value 3, got %d", stored)
	}
}

func TestMemoryCountersKeysAreIndependent(t *testing.T) {
	counters := NewMemoryCounters()
	ctx := context.Background()
	if _, err := counters.Incr(ctx, "wages:ver"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, err := counters.Get(ctx, "locations:ver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other != 0 {
		t.Fatalf("expected untouched key to stay zero, got %d", other)
	}
}

func TestMemoryCountersConcurrentIncr(t *testing.T) {
	counters := NewMemoryCounters()
	ctx := context.Background()

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := counters.Incr(ctx, "wages:ver"); err != nil {
					t.Errorf("incr failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	value, err := counters.Get(ctx, "wages:ver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != workers*perWorker {
		t.Fatalf("expected %d after concurrent increments, got %d", workers*perWorker, value)
	}
}
