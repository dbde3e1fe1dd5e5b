package domain

import (
	"maps"
	"slices"
)

// Table maps a key to the set of country names that claim it.
// Sets are created lazily on first insert.
type Table map[string]map[string]struct{}

// Add records that country claims key. Repeated pairs are no-ops.
func (t Table) Add(key, country string) {
	set, ok := t[key]
	if !ok {
		set = make(map[string]struct{}, 1)
		t[key] = set
	}
	set[country] = struct{}{}
}

// Countries returns the sorted country names for key, or nil when the key is
// absent. The slice is a copy.
func (t Table) Countries(key string) []string {
	set, ok := t[key]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}

// Has reports whether country claims key.
func (t Table) Has(key, country string) bool {
	_, ok := t[key][country]
	return ok
}

// Len returns the number of distinct keys.
func (t Table) Len() int {
	return len(t)
}

// Keys returns all keys in sorted order.
func (t Table) Keys() []string {
	return slices.Sorted(maps.Keys(t))
}
