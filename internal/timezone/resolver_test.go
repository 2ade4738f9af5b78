package timezone

import (
	"errors"
	"testing"
	"time"
)

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(4, time.UTC)

	loc, err := resolver.Resolve("America/New_York")
	if err != nil {
		t.Fatalf("expected zone to load, got %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Fatalf("expected America/New_York, got %s", loc)
	}
	if resolver.Len() != 1 {
		t.Fatalf("expected one cached zone, got %d", resolver.Len())
	}

	empty, err := resolver.Resolve("  ")
	if err != nil || empty != time.UTC {
		t.Fatalf("expected fallback for empty name, got %v %v", empty, err)
	}
}

func TestResolverCachesLoads(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(2, nil)
	calls := 0
	resolver.load = func(name string) (*time.Location, error) {
		calls++
		return time.FixedZone(name, 3600), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve("Test/Zone"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}
}

func TestResolverUnknownZone(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(2, time.UTC)
	if _, err := resolver.Resolve("Mars/Olympus_Mons"); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
	if got := resolver.ResolveOrFallback("Mars/Olympus_Mons"); got != time.UTC {
		t.Fatalf("expected fallback location, got %s", got)
	}
}
