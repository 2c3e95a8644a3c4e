package catalog

import (
	"sync/atomic"
)

// Store publishes the current catalog. Each replacement bumps a
// generation counter; batch producers tag their work with the generation
// they started under and discard results if it moved underneath them.
type Store struct {
	current    atomic.Pointer[Catalog]
	generation atomic.Uint64
}

// NewStore creates an empty Store at generation zero.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog (possibly nil) and its generation.
func (s *Store) Get() (*Catalog, uint64) {
	// Generation is read first: if a swap lands between the two loads we
	// report the older generation with the newer catalog, which only
	// causes one extra discarded batch.
	gen := s.generation.Load()
	return s.current.Load(), gen
}

// Set atomically replaces the catalog and returns the new generation.
func (s *Store) Set(c *Catalog) uint64 {
	s.current.Store(c)
	return s.generation.Add(1)
}

// Generation returns the current generation counter.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}
