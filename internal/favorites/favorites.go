// Package favorites keeps the set of favorite verses, keyed by verse id.
package favorites

import (
	"log/slog"
	"sort"
	"sync"

	"biblify/internal/verse"
)

// Persister stores the favorite id set.
type Persister interface {
	LoadFavorites() ([]string, error)
	SaveFavorites(ids []string) error
}

// Source provides the live collection.
type Source interface {
	Snapshot() *verse.Snapshot
}

// Set is the favorites set. It is safe for concurrent use.
type Set struct {
	source Source
	store  Persister

	// saveMu orders toggles with their saves so the persisted set never
	// goes back to an older state.
	saveMu sync.Mutex
	mu     sync.RWMutex
	ids    map[string]bool
}

// Load creates a Set from the persisted ids. A load failure is logged and
// yields an empty set.
func Load(source Source, store Persister) *Set {
	s := &Set{source: source, store: store, ids: map[string]bool{}}
	if store == nil {
		return s
	}
	ids, err := store.LoadFavorites()
	if err != nil {
		slog.Error("Failed to load favorites", "error", err)
		return s
	}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

// Toggle flips the favorite state of v and persists the set. Verses that are
// not in the live collection are ignored. It reports the new state.
func (s *Set) Toggle(v verse.Verse) bool {
	if !s.source.Snapshot().Contains(v) {
		return false
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	id := v.ID()
	if s.ids[id] {
		delete(s.ids, id)
	} else {
		s.ids[id] = true
	}
	now := s.ids[id]
	ids := s.sortedLocked()
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveFavorites(ids); err != nil {
			slog.Error("Failed to save favorites", "error", err, "count", len(ids))
		}
	}
	return now
}

// IsFavorite reports whether v is a favorite.
func (s *Set) IsFavorite(v verse.Verse) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[v.ID()]
}

// Len returns the number of stored ids, including ids whose verse is
// currently absent from the collection.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// List returns the favorite verses of snap in collection order.
func (s *Set) List(snap *verse.Snapshot) []verse.Verse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []verse.Verse
	for _, v := range snap.Verses() {
		if s.ids[v.ID()] {
			out = append(out, v)
		}
	}
	return out
}

func (s *Set) sortedLocked() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
