// Package index groups registry records by geometry identifier. The in-memory
// Index is the join backbone of every view; Snapshot persists it as a SQLite
// file for point lookups by popups and the HTTP API.
package index

import (
	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Index maps a normalised geometry identifier to the registry records that
// carry it, in input order. An Index is immutable once built and safe for
// concurrent readers.
type Index struct {
	groups  map[string][]types.Record
	order   []string
	size    int
	skipped int
}

// Build groups records by normalised geometry_id in a single pass. Records
// whose identifier is missing or blank cannot join and are skipped.
func Build(records []types.Record) *Index {
	ix := &Index{groups: make(map[string][]types.Record)}
	for _, r := range records {
		id, ok := identifier.Usable(r.GeometryID())
		if !ok {
			ix.skipped++
			continue
		}
		group, seen := ix.groups[id]
		if !seen {
			ix.order = append(ix.order, id)
		}
		ix.groups[id] = append(group, r)
		ix.size++
	}
	return ix
}

// Lookup returns the records for id, normalising it first. Absent ids yield
// an empty result. The returned slice must not be modified; appending to it
// allocates.
func (ix *Index) Lookup(id interface{}) []types.Record {
	if ix == nil {
		return nil
	}
	recs := ix.groups[identifier.Normalize(id)]
	return recs[:len(recs):len(recs)]
}

// Has reports whether at least one record carries id.
func (ix *Index) Has(id interface{}) bool {
	return len(ix.Lookup(id)) > 0
}

// Len returns the number of distinct geometry identifiers.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.order)
}

// Size returns the number of indexed records.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Skipped returns the number of records dropped for lack of a usable id.
func (ix *Index) Skipped() int {
	if ix == nil {
		return 0
	}
	return ix.skipped
}

// IDs returns the geometry identifiers in first-seen order.
func (ix *Index) IDs() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Range calls fn for each identifier in first-seen order until fn returns
// false.
func (ix *Index) Range(fn func(id string, records []types.Record) bool) {
	if ix == nil {
		return
	}
	for _, id := range ix.order {
		recs := ix.groups[id]
		if !fn(id, recs[:len(recs):len(recs)]) {
			return
		}
	}
}
