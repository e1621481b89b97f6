package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"biblify/internal/app"
	"biblify/internal/config"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

func newTestServer(t *testing.T) (*Server, *app.Service) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.AffirmationsFile = filepath.Join(cfg.DataDir, "affirmations.txt")
	cfg.Database = filepath.Join(cfg.DataDir, "biblify.db")

	db, err := storage.Open(cfg.Database)
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	store := verse.NewStore(
		[]verse.Verse{
			{Text: "In the beginning God created the heaven and the earth.", Reference: "Genesis 1:1"},
			{Text: "And the earth was without form, and void.", Reference: "Genesis 1:2"},
			{Text: "Let there be light.", Reference: "Genesis 1:3"},
			{Text: "The LORD is my shepherd; I shall not want.", Reference: "Psalms 23:1"},
			{Text: "For God so loved the world.", Reference: "1 John 3:16"},
		},
		[]verse.Verse{{Text: "I am created with purpose.", Reference: "Morning"}},
	)
	svc := app.New(cfg, store, db)
	t.Cleanup(func() { svc.Close() })

	s := New(svc, "127.0.0.1:0")
	s.now = func() time.Time { return time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC) }
	return s, svc
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/v1/search?q=gen+1", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("Expected 200, got %d %+v", code, env)
	}
	var verses []VerseDTO
	decodeData(t, env, &verses)
	if len(verses) != 3 || verses[0].Reference != "Genesis 1:1" {
		t.Errorf("Unexpected search results %+v", verses)
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/search?q=3:16", nil)
	decodeData(t, env, &verses)
	if len(verses) != 1 || verses[0].Reference != "1 John 3:16" {
		t.Errorf("Expected the book name to be stripped from the index key, got %+v", verses)
	}
}

func TestRandomAndDailyVerse(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/v1/verses/random", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var v VerseDTO
	decodeData(t, env, &v)
	if v.Text == "" || v.ID == "" {
		t.Errorf("Expected a verse, got %+v", v)
	}

	_, first := do(t, s, http.MethodGet, "/api/v1/verses/daily", nil)
	_, second := do(t, s, http.MethodGet, "/api/v1/verses/daily", nil)
	if string(first.Data) != string(second.Data) {
		t.Errorf("Expected a stable daily verse, got %s and %s", first.Data, second.Data)
	}
}

func TestToggleFavorite(t *testing.T) {
	s, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/favorites/toggle", map[string]string{
		"text": "Let there be light.", "reference": "Genesis 1:3",
	})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", code, env)
	}
	var v VerseDTO
	decodeData(t, env, &v)
	if !v.Favorite {
		t.Error("Expected the verse to be a favorite")
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/favorites", nil)
	var favs []VerseDTO
	decodeData(t, env, &favs)
	if len(favs) != 1 || favs[0].ID != v.ID {
		t.Errorf("Unexpected favorites %+v", favs)
	}

	_, env = do(t, s, http.MethodPost, "/api/v1/favorites/toggle", map[string]string{"id": v.ID})
	decodeData(t, env, &v)
	if v.Favorite {
		t.Error("Expected a toggle by id to remove the favorite")
	}

	code, _ = do(t, s, http.MethodPost, "/api/v1/favorites/toggle", map[string]string{"text": "missing"})
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown verse, got %d", code)
	}
	code, _ = do(t, s, http.MethodPost, "/api/v1/favorites/toggle", map[string]string{})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty request, got %d", code)
	}
}

func TestAffirmationsCRUD(t *testing.T) {
	s, svc := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/affirmations", map[string]string{"text": "I am at peace.", "reference": "Evening"})
	if code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %+v", code, env)
	}
	code, _ = do(t, s, http.MethodPost, "/api/v1/affirmations", map[string]string{"text": "I am at peace.", "reference": "Evening"})
	if code != http.StatusConflict {
		t.Errorf("Expected 409 for a duplicate, got %d", code)
	}

	code, _ = do(t, s, http.MethodPut, "/api/v1/affirmations", map[string]interface{}{
		"old":  map[string]string{"text": "I am at peace.", "reference": "Evening"},
		"text": "I am calm.", "reference": "Evening",
	})
	if code != http.StatusOK {
		t.Fatalf("Expected 200 for an edit, got %d", code)
	}
	if _, ok := svc.Snapshot().FindReference("Evening"); !ok {
		t.Error("Expected the edited affirmation in the store")
	}

	code, _ = do(t, s, http.MethodDelete, "/api/v1/affirmations", map[string]string{"text": "I am calm.", "reference": "Evening"})
	if code != http.StatusOK {
		t.Errorf("Expected 200 for a delete, got %d", code)
	}
	code, _ = do(t, s, http.MethodDelete, "/api/v1/affirmations", map[string]string{"text": "I am calm.", "reference": "Evening"})
	if code != http.StatusNotFound {
		t.Errorf("Expected 404 for a second delete, got %d", code)
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/affirmations", nil)
	var list []VerseDTO
	decodeData(t, env, &list)
	if len(list) != 1 || !list[0].IsAffirmation {
		t.Errorf("Expected the seeded affirmation only, got %+v", list)
	}
}

func TestBooksAndChapters(t *testing.T) {
	s, _ := newTestServer(t)

	_, env := do(t, s, http.MethodGet, "/api/v1/books", nil)
	var books []BookDTO
	decodeData(t, env, &books)
	if len(books) != 3 || books[0].Name != "Genesis" {
		t.Errorf("Unexpected books %+v", books)
	}

	code, env := do(t, s, http.MethodGet, "/api/v1/books/gen/1", nil)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	var chapter struct {
		Book   string     `json:"book"`
		Verses []VerseDTO `json:"verses"`
	}
	decodeData(t, env, &chapter)
	if chapter.Book != "Genesis" || len(chapter.Verses) != 3 {
		t.Errorf("Unexpected chapter %+v", chapter)
	}

	if code, _ := do(t, s, http.MethodGet, "/api/v1/books/gen/99", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing chapter, got %d", code)
	}
	if code, _ := do(t, s, http.MethodGet, "/api/v1/books/gen/one", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad chapter, got %d", code)
	}
}

func TestPreferencesEndpoint(t *testing.T) {
	s, svc := newTestServer(t)

	code, env := do(t, s, http.MethodPatch, "/api/v1/preferences", map[string]interface{}{"theme": "dark", "affirmations_enabled": false})
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", code, env)
	}
	if p := svc.Preferences(); p.Theme != "dark" || p.AffirmationsEnabled {
		t.Errorf("Unexpected preferences %+v", p)
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/search?q=created", nil)
	var verses []VerseDTO
	decodeData(t, env, &verses)
	if len(verses) != 1 {
		t.Errorf("Expected affirmations hidden from search, got %+v", verses)
	}

	code, _ = do(t, s, http.MethodPatch, "/api/v1/preferences", map[string]interface{}{"notification_hour": 25})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid hour, got %d", code)
	}
}

func TestDonations(t *testing.T) {
	s, _ := newTestServer(t)

	_, env := do(t, s, http.MethodGet, "/api/v1/donations/products", nil)
	var products []map[string]string
	decodeData(t, env, &products)
	if len(products) != 3 {
		t.Errorf("Expected 3 products, got %+v", products)
	}

	code, env := do(t, s, http.MethodPost, "/api/v1/donations", map[string]string{"product_id": "donation_tier_1"})
	if code != http.StatusOK || env.Message != "Thank you for your support!" {
		t.Errorf("Unexpected donation response %d %+v", code, env)
	}

	code, env = do(t, s, http.MethodPost, "/api/v1/donations", map[string]string{"product_id": "nope"})
	if code != http.StatusNotFound || env.Success {
		t.Errorf("Expected 404 for an unknown product, got %d %+v", code, env)
	}
}
