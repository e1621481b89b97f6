package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"biblify/internal/verse"
)

// Result is a matching verse with its favorite flag.
type Result struct {
	Verse    verse.Verse `json:"verse"`
	Favorite bool        `json:"favorite"`
}

// Source provides the live verse collection.
type Source interface {
	Snapshot() *verse.Snapshot
}

// FavoriteChecker reports favorite status for a verse.
type FavoriteChecker interface {
	IsFavorite(v verse.Verse) bool
}

// Searcher runs queries against the live collection, memoizing the verse
// matches per collection version.
type Searcher struct {
	source              Source
	favorites           FavoriteChecker
	includeAffirmations func() bool
	minQueryLength      int
	cache               *gocache.Cache
}

// NewSearcher creates a Searcher. includeAffirmations is consulted on every
// query so preference changes apply immediately. A zero cacheTTL disables
// memoization.
func NewSearcher(source Source, favorites FavoriteChecker, includeAffirmations func() bool, minQueryLength int, cacheTTL time.Duration) *Searcher {
	s := &Searcher{
		source:              source,
		favorites:           favorites,
		includeAffirmations: includeAffirmations,
		minQueryLength:      minQueryLength,
	}
	if cacheTTL > 0 {
		s.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// Search returns the results for query.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	snap := s.source.Snapshot()
	opts := Options{
		IncludeAffirmations: s.includeAffirmations == nil || s.includeAffirmations(),
		MinQueryLength:      s.minQueryLength,
	}

	q := Normalize(query)
	key := fmt.Sprintf("%d:%t:%s", snap.Version(), opts.IncludeAffirmations, q)

	var verses []verse.Verse
	if cached, found := s.lookup(key); found {
		verses = cached
	} else {
		started := time.Now()
		matched, err := FilterContext(ctx, snap, q, opts)
		if err != nil {
			return nil, err
		}
		verses = matched
		slog.Debug("Search finished", "query", q, "results", len(verses), "took", time.Since(started))
		if s.cache != nil {
			s.cache.SetDefault(key, verses)
		}
	}

	results := make([]Result, len(verses))
	for i, v := range verses {
		results[i] = Result{Verse: v, Favorite: s.favorites != nil && s.favorites.IsFavorite(v)}
	}
	return results, nil
}

func (s *Searcher) lookup(key string) ([]verse.Verse, bool) {
	if s.cache == nil {
		return nil, false
	}
	if val, found := s.cache.Get(key); found {
		return val.([]verse.Verse), true
	}
	return nil, false
}
