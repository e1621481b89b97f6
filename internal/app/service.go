// Package app wires the verse library together for the terminal reader, the
// command line and the HTTP API.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"biblify/internal/affirm"
	"biblify/internal/config"
	"biblify/internal/donate"
	"biblify/internal/favorites"
	"biblify/internal/history"
	"biblify/internal/notify"
	"biblify/internal/search"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

// Service owns the verse store and everything built on it.
type Service struct {
	Config    config.Config
	Store     *verse.Store
	Favorites *favorites.Set
	Editor    *affirm.Editor
	Searcher  *search.Searcher
	Donations *donate.Manager

	db *storage.DB

	mu    sync.Mutex
	prefs storage.Preferences
	rng   *rand.Rand
}

// Open loads the collection and opens the database. A database that cannot
// be opened is logged; the service then runs with default preferences and
// in-memory favorites.
func Open(cfg config.Config) *Service {
	scripture := verse.LoadScripture(cfg.ScriptureFile)
	affirmations := verse.LoadAffirmations(cfg.AffirmationsFile)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.Database, "error", err)
		db = nil
	}
	return New(cfg, verse.NewStore(scripture, affirmations), db)
}

// New builds a Service over an existing store. db may be nil.
func New(cfg config.Config, store *verse.Store, db *storage.DB) *Service {
	s := &Service{
		Config: cfg,
		Store:  store,
		Editor: affirm.NewEditor(store, cfg.AffirmationsFile),
		db:     db,
		prefs:  storage.DefaultPreferences(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	var persister favorites.Persister
	if db != nil {
		persister = db
		if p, err := db.Preferences(); err != nil {
			slog.Error("Failed to load preferences", "error", err)
		} else {
			s.prefs = p
		}
		s.Donations = donate.NewManager(donate.NewLedgerProvider(db))
	}
	s.Favorites = favorites.Load(store, persister)
	s.Searcher = search.NewSearcher(store, s.Favorites, s.AffirmationsEnabled,
		cfg.Search.MinQueryLength, cfg.Search.CacheTTL)

	snap := store.Snapshot()
	slog.Info("Verse library ready",
		"scripture", len(snap.Scripture()),
		"affirmations", len(snap.Affirmations()),
		"favorites", s.Favorites.Len())
	return s
}

// Close closes the database.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Snapshot returns the live collection.
func (s *Service) Snapshot() *verse.Snapshot { return s.Store.Snapshot() }

// Preferences returns the current user settings.
func (s *Service) Preferences() storage.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// UpdatePreferences applies fn and persists the result. Without a database
// the change lives for the process only.
func (s *Service) UpdatePreferences(fn func(*storage.Preferences)) (storage.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.prefs, err
	}
	if s.db != nil {
		if err := s.db.SavePreferences(next); err != nil {
			return s.prefs, err
		}
	}
	s.prefs = next
	return next, nil
}

// AffirmationsEnabled reports whether affirmations are part of the visible
// collection.
func (s *Service) AffirmationsEnabled() bool {
	return s.Preferences().AffirmationsEnabled
}

// Visible returns the verses a reader can currently see.
func (s *Service) Visible() []verse.Verse {
	return s.Snapshot().Visible(s.AffirmationsEnabled())
}

// RandomVerse picks a uniformly random visible verse.
func (s *Service) RandomVerse() (verse.Verse, bool) {
	visible := s.Visible()
	if len(visible) == 0 {
		return verse.Verse{}, false
	}
	s.mu.Lock()
	i := s.rng.IntN(len(visible))
	s.mu.Unlock()
	return visible[i], true
}

// DailyVerse returns the scripture verse for the calendar day of t. Every
// caller gets the same verse for the same day.
func (s *Service) DailyVerse(t time.Time) (verse.Verse, bool) {
	scripture := s.Snapshot().Scripture()
	if len(scripture) == 0 {
		return verse.Verse{}, false
	}
	sum := sha256.Sum256([]byte(t.Format("2006-01-02")))
	i := binary.BigEndian.Uint64(sum[:8]) % uint64(len(scripture))
	return scripture[i], true
}

// NotificationSettings reads the notification part of the preferences. The
// stored preferences are re-read so changes made by another process apply.
func (s *Service) NotificationSettings() (notify.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		p, err := s.db.Preferences()
		if err != nil {
			return notify.Settings{}, err
		}
		s.prefs = p
	}
	p := s.prefs
	return notify.Settings{
		Enabled: p.NotificationsEnabled,
		Hour:    p.NotificationHour,
		Minute:  p.NotificationMinute,
	}, nil
}

// Search runs a query against the live collection.
func (s *Service) Search(ctx context.Context, query string) ([]search.Result, error) {
	return s.Searcher.Search(ctx, query)
}

// NewEngine returns a debounced search engine over the service.
func (s *Service) NewEngine() *search.Engine {
	return search.NewEngine(s.Config.Search.Debounce, s.Search)
}

// NewNavigator returns a fresh navigator. A nil rng is randomly seeded.
func (s *Service) NewNavigator(rng *rand.Rand) *history.Navigator {
	return history.New(s, rng)
}

// DonationsEnabled reports whether the donation ledger is available.
func (s *Service) DonationsEnabled() bool { return s.Donations != nil }
