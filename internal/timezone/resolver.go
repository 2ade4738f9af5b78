// Package timezone resolves IANA zone names into *time.Location values.
package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrUnknownZone is returned when a zone name cannot be loaded.
var ErrUnknownZone = errors.New("timezone: unknown zone")

const defaultCacheSize = 64

// Resolver loads zone data once per name and keeps the most recently used
// locations in memory. Zone data is immutable for the process lifetime.
type Resolver struct {
	cache    *lru.Cache[string, *time.Location]
	fallback *time.Location
	load     func(string) (*time.Location, error)
}

// NewResolver returns a resolver that maps empty names to fallback (UTC when nil).
func NewResolver(size int, fallback *time.Location) *Resolver {
	if size <= 0 {
		size = defaultCacheSize
	}
	if fallback == nil {
		fallback = time.UTC
	}
	cache, err := lru.New[string, *time.Location](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Resolver{cache: cache, fallback: fallback, load: time.LoadLocation}
}

// Default is a process-wide resolver with a UTC fallback.
var Default = NewResolver(defaultCacheSize, time.UTC)

// Fallback returns the location used for empty zone names.
func (r *Resolver) Fallback() *time.Location {
	if r == nil {
		return time.UTC
	}
	return r.fallback
}

// Resolve returns the location for name.
func (r *Resolver) Resolve(name string) (*time.Location, error) {
	if r == nil {
		r = Default
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return r.fallback, nil
	}
	if loc, ok := r.cache.Get(name); ok {
		return loc, nil
	}
	loc, err := r.load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	r.cache.Add(name, loc)
	return loc, nil
}

// ResolveOrFallback returns the location for name, or the fallback when the
// name cannot be loaded.
func (r *Resolver) ResolveOrFallback(name string) *time.Location {
	loc, err := r.Resolve(name)
	if err != nil {
		return r.Fallback()
	}
	return loc
}

// Len reports how many zones are cached.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return r.cache.Len()
}
