package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"biblify/internal/config"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

var (
	scripture = []verse.Verse{
		{Text: "In the beginning God created the heaven and the earth.", Reference: "Genesis 1:1"},
		{Text: "And the earth was without form, and void.", Reference: "Genesis 1:2"},
		{Text: "The LORD is my shepherd; I shall not want.", Reference: "Psalms 23:1"},
	}
	affirmation = verse.Verse{Text: "I am created with purpose.", Reference: "Morning"}
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.AffirmationsFile = filepath.Join(cfg.DataDir, "affirmations.txt")
	cfg.Database = filepath.Join(cfg.DataDir, "biblify.db")
	cfg.Search.CacheTTL = time.Minute
	return cfg
}

func newTestService(t *testing.T, cfg config.Config) *Service {
	t.Helper()
	db, err := storage.Open(cfg.Database)
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	s := New(cfg, verse.NewStore(scripture, []verse.Verse{affirmation}), db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAffirmationsPreferenceFiltersVisibility(t *testing.T) {
	s := newTestService(t, testConfig(t))
	ctx := context.Background()

	results, err := s.Search(ctx, "created")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected scripture and affirmation results, got %d", len(results))
	}

	if _, err := s.UpdatePreferences(func(p *storage.Preferences) { p.AffirmationsEnabled = false }); err != nil {
		t.Fatalf("UpdatePreferences() returned an unexpected error: %v", err)
	}
	results, err = s.Search(ctx, "created")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Verse.IsAffirmation {
		t.Errorf("Expected only scripture once affirmations are disabled, got %+v", results)
	}
	for i := 0; i < 20; i++ {
		if v, _ := s.RandomVerse(); v.IsAffirmation {
			t.Fatal("RandomVerse returned a hidden affirmation")
		}
	}
}

func TestSearchSeesAffirmationEdits(t *testing.T) {
	s := newTestService(t, testConfig(t))
	ctx := context.Background()

	if results, _ := s.Search(ctx, "sunrise"); len(results) != 0 {
		t.Fatalf("Expected no results before the edit, got %+v", results)
	}
	if _, err := s.Editor.Add("I rise with the sunrise.", "Dawn"); err != nil {
		t.Fatal(err)
	}
	results, err := s.Search(ctx, "sunrise")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("Expected the new affirmation to be searchable, got %+v", results)
	}
}

func TestFavoritesPersistThroughService(t *testing.T) {
	cfg := testConfig(t)
	s := newTestService(t, cfg)

	s.Favorites.Toggle(scripture[2])
	results, _ := s.Search(context.Background(), "23:1")
	if len(results) != 1 || !results[0].Favorite {
		t.Fatalf("Expected a favorite search result, got %+v", results)
	}
	s.Close()

	reopened := newTestService(t, cfg)
	if !reopened.Favorites.IsFavorite(scripture[2]) {
		t.Error("Expected the favorite to survive a restart")
	}
}

func TestPreferencesPersist(t *testing.T) {
	cfg := testConfig(t)
	s := newTestService(t, cfg)

	if _, err := s.UpdatePreferences(func(p *storage.Preferences) {
		p.NotificationsEnabled = true
		p.NotificationHour = 6
		p.NotificationMinute = 45
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdatePreferences(func(p *storage.Preferences) { p.NotificationHour = 30 }); err == nil {
		t.Error("Expected an invalid hour to be rejected")
	}
	s.Close()

	reopened := newTestService(t, cfg)
	settings, err := reopened.NotificationSettings()
	if err != nil {
		t.Fatal(err)
	}
	if !settings.Enabled || settings.Hour != 6 || settings.Minute != 45 {
		t.Errorf("Unexpected notification settings %+v", settings)
	}
}

func TestServiceWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, verse.NewStore(scripture, nil), nil)

	if s.DonationsEnabled() {
		t.Error("Expected donations to be unavailable without a database")
	}
	if p, err := s.UpdatePreferences(func(p *storage.Preferences) { p.Theme = storage.ThemeDark }); err != nil || p.Theme != storage.ThemeDark {
		t.Errorf("Expected in-memory preference update, got %+v, %v", p, err)
	}
	if !s.Favorites.Toggle(scripture[0]) {
		t.Error("Expected in-memory favorites")
	}
}

func TestDailyVerse(t *testing.T) {
	s := newTestService(t, testConfig(t))
	day := time.Date(2024, 12, 25, 7, 0, 0, 0, time.UTC)

	first, ok := s.DailyVerse(day)
	if !ok {
		t.Fatal("Expected a daily verse")
	}
	again, _ := s.DailyVerse(day.Add(10 * time.Hour))
	if first != again {
		t.Errorf("Expected the same verse all day, got %v and %v", first, again)
	}
	if first.IsAffirmation {
		t.Error("Expected the daily verse to come from scripture")
	}
}

func TestNavigatorUsesLiveCollection(t *testing.T) {
	s := newTestService(t, testConfig(t))
	n := s.NewNavigator(nil)

	stored := s.Snapshot().Affirmations()[0]
	n.ShowInitial(&stored)
	if cur, ok := n.Current(); !ok || cur != stored {
		t.Fatalf("Expected navigator on the affirmation, got %v", cur)
	}

	s.Editor.Remove(stored)
	if n.Ready() {
		t.Error("Expected the removed affirmation to no longer resolve")
	}
}

func TestSettingsRefreshDoesNotLoseUpdates(t *testing.T) {
	s := newTestService(t, testConfig(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.UpdatePreferences(func(p *storage.Preferences) { p.AffirmationsEnabled = !p.AffirmationsEnabled }); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.NotificationSettings(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stored, err := s.db.Preferences()
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Preferences(); got != stored {
		t.Errorf("Expected memory to match the database, got %+v and %+v", got, stored)
	}
	if !s.AffirmationsEnabled() {
		t.Error("Expected an even number of toggles to leave affirmations enabled")
	}
}
