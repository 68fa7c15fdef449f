package reconcile

import (
	"sort"
	"time"
)

// Set is an unordered set of item identifiers.
type Set map[string]struct{}

// NewSet builds a set from keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Result partitions the union of two identifier sets.
// The three lists are disjoint and each is sorted.
type Result struct {
	// Reconciled holds identifiers present in both sets.
	Reconciled []string `json:"reconciled"`
	// BitstreamsWithoutMetadata holds identifiers only present as bitstreams.
	BitstreamsWithoutMetadata []string `json:"bitstreams_without_metadata"`
	// MetadataWithoutBitstreams holds identifiers only present as metadata records.
	MetadataWithoutBitstreams []string `json:"metadata_without_bitstreams"`
}

// Matched is true when neither side has unmatched identifiers.
func (r Result) Matched() bool {
	return len(r.BitstreamsWithoutMetadata) == 0 && len(r.MetadataWithoutBitstreams) == 0
}

// Summary provides aggregate counts for a Result.
type Summary struct {
	Reconciled                int `json:"reconciled"`
	BitstreamsWithoutMetadata int `json:"bitstreams_without_metadata"`
	MetadataWithoutBitstreams int `json:"metadata_without_bitstreams"`
}

// Summary returns the size of each partition.
func (r Result) Summary() Summary {
	return Summary{
		Reconciled:                len(r.Reconciled),
		BitstreamsWithoutMetadata: len(r.BitstreamsWithoutMetadata),
		MetadataWithoutBitstreams: len(r.MetadataWithoutBitstreams),
	}
}

// MetadataItem is the loader-defined payload stored per metadata identifier.
type MetadataItem any

// Spec defines one reconciliation target.
type Spec struct {
	// Loader discovers both identifier indices.
	Loader Loader

	// Prefix is the object store prefix of the batch.
	Prefix string

	// CacheTTL is the time-to-live for cached snapshots.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Loader.Name() + "|" + s.Prefix
}
