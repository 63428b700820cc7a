// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package region

// Store is the keyed region map: RegionId -> RegionRecord, flat keyed
// storage with RegionId as key (regions form a forest, never a cyclic
// graph, so no parent/child links are kept — only the records
// themselves).
type Store struct {
	records map[ID]Record
}

// NewStore returns an empty region store.
func NewStore() *Store {
	return &Store{records: make(map[ID]Record)}
}

// Get returns the record for id, or ErrUnknownRegion if absent.
func (s *Store) Get(id ID) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrUnknownRegion
	}
	return r, nil
}

// Exists reports whether id has a live record.
func (s *Store) Exists(id ID) bool {
	_, ok := s.records[id]
	return ok
}

// Put inserts or overwrites the record for id, enforcing invariant R1: no
// other live record on the same (Begin, Core) may have an overlapping
// mask.
func (s *Store) Put(id ID, rec Record) error {
	for other := range s.records {
		if other == id {
			continue
		}
		if other.Begin == id.Begin && other.Core == id.Core && !other.Mask.Intersect(id.Mask).IsVoid() {
			return ErrMaskCollision
		}
	}
	s.records[id] = rec
	return nil
}

// Delete removes the record for id, if present.
func (s *Store) Delete(id ID) {
	delete(s.records, id)
}

// All returns every live region, for iteration in tests and diagnostics.
// The returned slice is a snapshot; mutating the store afterwards does
// not affect it.
func (s *Store) All() []Region {
	out := make([]Region, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, Region{ID: id, Record: rec})
	}
	return out
}

// Len reports the number of live regions.
func (s *Store) Len() int {
	return len(s.records)
}
