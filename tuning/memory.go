// MODUL: memory
// ZWECK: Read-mostly In-Memory Tuning-Store
// INPUT: Records (Bulk-Replace oder einzelnes Put)
// OUTPUT: Lookup ohne Lock auf dem Hot-Path
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: sync, sync/atomic (stdlib)
// HINWEISE: Schreiber kopieren die Map (copy-on-write) und tauschen den Zeiger atomar

package tuning

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// MemoryStore holds an immutable snapshot of records. Readers load the current
// snapshot atomically; writers serialize on mu and publish a new snapshot.
type MemoryStore struct {
	snapshot atomic.Pointer[map[string]Record]
	mu       sync.Mutex
}

// NewMemoryStore creates a store holding records.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(records)
	return s
}

// Lookup returns the record for fingerprint.
func (s *MemoryStore) Lookup(fingerprint string) (Record, bool) {
	m := s.snapshot.Load()
	if m == nil {
		return Record{}, false
	}
	r, ok := (*m)[fingerprint]
	return r, ok
}

// Replace swaps the whole snapshot. Later records win on duplicate fingerprints.
func (s *MemoryStore) Replace(records []Record) {
	m := make(map[string]Record, len(records))
	for _, r := range records {
		m[r.Fingerprint] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Store(&m)
}

// Put adds or replaces a single record. This copies the snapshot and is meant for
// rare maintenance updates, not steady-state traffic.
func (s *MemoryStore) Put(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]Record
	if old := s.snapshot.Load(); old != nil {
		m = maps.Clone(*old)
	} else {
		m = make(map[string]Record, 1)
	}
	m[r.Fingerprint] = r
	s.snapshot.Store(&m)
}

// Len returns the number of records in the current snapshot.
func (s *MemoryStore) Len() int {
	if m := s.snapshot.Load(); m != nil {
		return len(*m)
	}
	return 0
}

// All returns all records sorted by fingerprint.
func (s *MemoryStore) All() []Record {
	m := s.snapshot.Load()
	if m == nil {
		return nil
	}
	records := slices.Collect(maps.Values(*m))
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Fingerprint, b.Fingerprint)
	})
	return records
}
