package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot holds both indices of one batch as loaded at Built.
type Snapshot struct {
	// Bitstreams maps item identifier to object keys.
	Bitstreams map[string][]string

	// Metadata maps item identifier to loader-defined records.
	Metadata map[string]MetadataItem

	// Built is the timestamp when this snapshot was loaded.
	Built time.Time

	// TTL is the time-to-live for this snapshot.
	TTL time.Duration
}

// IsExpired returns true if this snapshot has expired based on its TTL.
func (s *Snapshot) IsExpired() bool {
	if s.TTL == 0 {
		return true
	}
	return time.Since(s.Built) > s.TTL
}

// BitstreamSet returns the bitstream identifiers.
func (s *Snapshot) BitstreamSet() Set {
	out := make(Set, len(s.Bitstreams))
	for k := range s.Bitstreams {
		out[k] = struct{}{}
	}
	return out
}

// MetadataSet returns the metadata identifiers, excluding records without one.
func (s *Snapshot) MetadataSet() Set {
	out := make(Set, len(s.Metadata))
	for k := range s.Metadata {
		if k == "" {
			continue
		}
		out[k] = struct{}{}
	}
	return out
}

type cacheStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	sf        singleflight.Group
}

var globalCacheStore = &cacheStore{
	snapshots: make(map[string]*Snapshot),
}

// BuildSnapshot loads both indices concurrently without touching the cache.
func BuildSnapshot(ctx context.Context, spec *Spec) (*Snapshot, error) {
	var (
		bitstreams   map[string][]string
		metadata     map[string]MetadataItem
		bitstreamErr error
		metadataErr  error
		wg           sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		bitstreams, bitstreamErr = spec.Loader.LoadBitstreamIndex(ctx, spec.Prefix)
	}()

	go func() {
		defer wg.Done()
		metadata, metadataErr = spec.Loader.LoadMetadataIndex(ctx, spec.Prefix)
	}()

	wg.Wait()

	if bitstreamErr != nil {
		return nil, bitstreamErr
	}
	if metadataErr != nil {
		return nil, metadataErr
	}

	return &Snapshot{
		Bitstreams: bitstreams,
		Metadata:   metadata,
		Built:      time.Now(),
		TTL:        spec.CacheTTL,
	}, nil
}

// GetOrBuildSnapshot returns a fresh cached snapshot for the spec or loads one.
// Concurrent callers for the same key share a single load.
func GetOrBuildSnapshot(ctx context.Context, spec *Spec) (*Snapshot, error) {
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	snap, exists := globalCacheStore.snapshots[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !snap.IsExpired() {
		return snap, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		globalCacheStore.mu.RLock()
		snap, exists := globalCacheStore.snapshots[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !snap.IsExpired() {
			return snap, nil
		}

		fresh, err := BuildSnapshot(ctx, spec)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.snapshots[cacheKey] = fresh
		globalCacheStore.mu.Unlock()

		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Snapshot), nil
}

// Invalidate drops the cached snapshot for the spec.
func Invalidate(spec *Spec) {
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.snapshots, spec.CacheKey())
	globalCacheStore.mu.Unlock()
}
