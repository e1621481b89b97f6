package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "biblify.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestPreferencesDefaults(t *testing.T) {
	db, _ := openTestDB(t)

	got, err := db.Preferences()
	if err != nil {
		t.Fatalf("Preferences() returned an unexpected error: %v", err)
	}
	want := Preferences{Theme: "light", AffirmationsEnabled: true, NotificationHour: 8}
	if got != want {
		t.Errorf("Expected defaults %+v, got %+v", want, got)
	}
}

func TestSavePreferences(t *testing.T) {
	db, _ := openTestDB(t)

	want := Preferences{
		Theme:                ThemeDark,
		AffirmationsEnabled:  false,
		NotificationsEnabled: true,
		NotificationHour:     21,
		NotificationMinute:   45,
	}
	if err := db.SavePreferences(want); err != nil {
		t.Fatalf("SavePreferences() returned an unexpected error: %v", err)
	}
	got, err := db.Preferences()
	if err != nil {
		t.Fatalf("Preferences() returned an unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSavePreferencesValidation(t *testing.T) {
	db, _ := openTestDB(t)

	testCases := []struct {
		name string
		mod  func(*Preferences)
	}{
		{"unknown theme", func(p *Preferences) { p.Theme = "sepia" }},
		{"hour too large", func(p *Preferences) { p.NotificationHour = 24 }},
		{"negative minute", func(p *Preferences) { p.NotificationMinute = -1 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPreferences()
			tc.mod(&p)
			if err := db.SavePreferences(p); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestUpdatePreferences(t *testing.T) {
	db, _ := openTestDB(t)

	p, err := db.UpdatePreferences(func(p *Preferences) { p.Theme = ThemeDark })
	if err != nil {
		t.Fatalf("UpdatePreferences() returned an unexpected error: %v", err)
	}
	if p.Theme != ThemeDark || !p.AffirmationsEnabled {
		t.Errorf("Expected only the theme to change, got %+v", p)
	}
}

func TestFavoritesPersistAcrossReopen(t *testing.T) {
	db, path := openTestDB(t)

	if err := db.SaveFavorites([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("SaveFavorites() returned an unexpected error: %v", err)
	}
	if err := db.SaveFavorites([]string{"a", "c", "d"}); err != nil {
		t.Fatalf("SaveFavorites() returned an unexpected error: %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	defer reopened.Close()

	ids, err := reopened.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites() returned an unexpected error: %v", err)
	}
	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if len(ids) != 3 || !got["a"] || !got["c"] || !got["d"] {
		t.Errorf("Expected {a, c, d}, got %v", ids)
	}
}

func TestSaveFavoritesEmpty(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.SaveFavorites([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveFavorites(nil); err != nil {
		t.Fatal(err)
	}
	ids, err := db.LoadFavorites()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no favorites, got %v", ids)
	}
}

func TestDonationLedger(t *testing.T) {
	db, _ := openTestDB(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := db.InsertDonation("tok-1", "donation_tier_2", at); err != nil {
		t.Fatalf("InsertDonation() returned an unexpected error: %v", err)
	}
	if err := db.ConsumeDonation("tok-1", at.Add(time.Second)); err != nil {
		t.Fatalf("ConsumeDonation() returned an unexpected error: %v", err)
	}
	if err := db.ConsumeDonation("tok-1", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a consumed token, got %v", err)
	}
	if err := db.ConsumeDonation("missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown token, got %v", err)
	}

	donations, err := db.Donations()
	if err != nil {
		t.Fatalf("Donations() returned an unexpected error: %v", err)
	}
	if len(donations) != 1 {
		t.Fatalf("Expected 1 donation, got %d", len(donations))
	}
	d := donations[0]
	if d.ProductID != "donation_tier_2" || !d.PurchasedAt.Equal(at) || !d.ConsumedAt.Valid {
		t.Errorf("Unexpected donation row %+v", d)
	}
}
