package cache

import (
	"context"
	"errors"
	"testing"
)

type failingCounters struct {
	inner    *MemoryCounters
	failKeys map[string]bool
}

func (c *failingCounters) Incr(ctx context.Context, key string) (int64, error) {
	if c.failKeys[key] {
		return 0, errors.New("counter store unavailable")
	}
	return c.inner.Incr(ctx, key)
}

func (c *failingCounters) Get(ctx context.Context, key string) (int64, error) {
	return c.inner.Get(ctx, key)
}

func TestNewInvalidatorRequiresCounters(t *testing.T) {
	if _, err := NewInvalidator(nil, nil); err == nil {
		t.Fatal("expected error for missing counter store")
	}
}

func TestBumpAdvancesAllKeysInLockstep(t *testing.T) {
	counters := NewMemoryCounters()
	invalidator, err := NewInvalidator(counters, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	for bump := int64(1); bump <= 3; bump++ {
		if err := invalidator.Bump(ctx); err != nil {
			t.Fatalf("bump %d failed: %v", bump, err)
		}
		for _, key := range []string{KeyWagesVersion, KeyOrgsVersion, KeyLocationsVersion} {
			value, err := invalidator.Version(ctx, key)
			if err != nil {
				t.Fatalf("failed to read %s: %v", key, err)
			}
			if value != bump {
				t.Fatalf("expected %s at %d after %d bumps, got %d", key, bump, bump, value)
			}
		}
	}
}

func TestBumpContinuesPastFailedKey(t *testing.T) {
	backing := &failingCounters{
		inner:    NewMemoryCounters(),
		failKeys: map[string]bool{KeyOrgsVersion: true},
	}
	invalidator, err := NewInvalidator(backing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := invalidator.Bump(ctx); err == nil {
		t.Fatal("expected error when one key fails to advance")
	}

	wagesVer, err := invalidator.Version(ctx, KeyWagesVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	locationsVer, err := invalidator.Version(ctx, KeyLocationsVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wagesVer != 1 || locationsVer != 1 {
		t.Fatalf("expected remaining keys to advance, got wages=%d locations=%d", wagesVer, locationsVer)
	}
}

func TestVersionReadsZeroBeforeFirstBump(t *testing.T) {
	invalidator, err := NewInvalidator(NewMemoryCounters(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err := invalidator.Version(context.Background(), KeyWagesVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 0 {
		t.Fatalf("expected zero before first bump, got %d", value)
	}
}
