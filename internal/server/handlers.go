package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"biblify/internal/affirm"
	"biblify/internal/donate"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

// VerseDTO is a verse as the API returns it.
type VerseDTO struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Reference     string `json:"reference"`
	IsAffirmation bool   `json:"is_affirmation"`
	Favorite      bool   `json:"favorite"`
}

type VerseRequest struct {
	ID            string `json:"id"`
	Text          string `json:"text" validate:"required_without=ID"`
	Reference     string `json:"reference"`
	IsAffirmation bool   `json:"is_affirmation"`
}

type AffirmationRequest struct {
	Text      string `json:"text" validate:"required"`
	Reference string `json:"reference"`
}

type EditAffirmationRequest struct {
	Old       AffirmationRequest `json:"old"`
	Text      string             `json:"text" validate:"required"`
	Reference string             `json:"reference"`
}

type PreferencesRequest struct {
	Theme                *string `json:"theme" validate:"omitempty,oneof=light dark"`
	AffirmationsEnabled  *bool   `json:"affirmations_enabled"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	NotificationHour     *int    `json:"notification_hour" validate:"omitempty,min=0,max=23"`
	NotificationMinute   *int    `json:"notification_minute" validate:"omitempty,min=0,max=59"`
}

type DonationRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type BookDTO struct {
	Name     string `json:"name"`
	Chapters []int  `json:"chapters"`
}

func (s *Server) toDTO(v verse.Verse) VerseDTO {
	return VerseDTO{
		ID:            v.ID(),
		Text:          v.Text,
		Reference:     v.Reference,
		IsAffirmation: v.IsAffirmation,
		Favorite:      s.svc.Favorites.IsFavorite(v),
	}
}

func (s *Server) toDTOs(verses []verse.Verse) []VerseDTO {
	out := make([]VerseDTO, len(verses))
	for i, v := range verses {
		out[i] = s.toDTO(v)
	}
	return out
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			failure(w, http.StatusBadRequest, "Missing required fields", fields)
			return false
		}
		failure(w, http.StatusBadRequest, "Invalid request", err.Error())
		return false
	}
	return true
}

func (s *Server) randomVerse(w http.ResponseWriter, r *http.Request) {
	v, ok := s.svc.RandomVerse()
	if !ok {
		failure(w, http.StatusNotFound, "No verses available", nil)
		return
	}
	success(w, s.toDTO(v), "successfully")
}

func (s *Server) dailyVerse(w http.ResponseWriter, r *http.Request) {
	v, ok := s.svc.DailyVerse(s.now())
	if !ok {
		failure(w, http.StatusNotFound, "No verses available", nil)
		return
	}
	success(w, s.toDTO(v), "successfully")
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		failure(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}
	out := make([]VerseDTO, len(results))
	for i, res := range results {
		out[i] = s.toDTO(res.Verse)
		out[i].Favorite = res.Favorite
	}
	success(w, out, "successfully")
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	success(w, s.toDTOs(s.svc.Favorites.List(s.svc.Snapshot())), "successfully")
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req VerseRequest
	if !s.decode(w, r, &req) {
		return
	}

	snap := s.svc.Snapshot()
	var (
		v  verse.Verse
		ok bool
	)
	if req.ID != "" {
		v, ok = snap.Lookup(req.ID)
	} else {
		v = verse.Verse{Text: req.Text, Reference: req.Reference, IsAffirmation: req.IsAffirmation}
		ok = snap.Contains(v)
	}
	if !ok {
		failure(w, http.StatusNotFound, "Verse not found", nil)
		return
	}

	s.svc.Favorites.Toggle(v)
	success(w, s.toDTO(v), "successfully")
}

func (s *Server) listAffirmations(w http.ResponseWriter, r *http.Request) {
	success(w, s.toDTOs(s.svc.Editor.List()), "successfully")
}

func (s *Server) addAffirmation(w http.ResponseWriter, r *http.Request) {
	var req AffirmationRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.svc.Editor.Add(req.Text, req.Reference)
	if err != nil {
		writeAffirmationError(w, err)
		return
	}
	created(w, s.toDTO(v), "Affirmation added")
}

func (s *Server) editAffirmation(w http.ResponseWriter, r *http.Request) {
	var req EditAffirmationRequest
	if !s.decode(w, r, &req) {
		return
	}
	old := verse.Verse{Text: req.Old.Text, Reference: req.Old.Reference, IsAffirmation: true}
	v, err := s.svc.Editor.Edit(old, req.Text, req.Reference)
	if err != nil {
		writeAffirmationError(w, err)
		return
	}
	success(w, s.toDTO(v), "Affirmation updated")
}

func (s *Server) removeAffirmation(w http.ResponseWriter, r *http.Request) {
	var req AffirmationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.svc.Editor.Remove(verse.Verse{Text: req.Text, Reference: req.Reference, IsAffirmation: true}) {
		failure(w, http.StatusNotFound, "Affirmation not found", nil)
		return
	}
	success(w, nil, "Affirmation removed")
}

func writeAffirmationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, affirm.ErrEmptyText):
		failure(w, http.StatusBadRequest, "Affirmation text is required", err.Error())
	case errors.Is(err, affirm.ErrDuplicate):
		failure(w, http.StatusConflict, "Affirmation already exists", err.Error())
	case errors.Is(err, affirm.ErrNotFound):
		failure(w, http.StatusNotFound, "Affirmation not found", err.Error())
	default:
		failure(w, http.StatusInternalServerError, "Failed to update affirmations", err.Error())
	}
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	books := s.svc.Snapshot().Books()
	out := make([]BookDTO, len(books))
	for i, b := range books {
		out[i] = BookDTO{Name: b.Name, Chapters: make([]int, len(b.Chapters))}
		for j, c := range b.Chapters {
			out[i].Chapters[j] = c.Number
		}
	}
	success(w, out, "successfully")
}

func (s *Server) chapter(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid chapter", err.Error())
		return
	}
	snap := s.svc.Snapshot()
	book, ok := snap.FindBook(chi.URLParam(r, "book"))
	if !ok {
		failure(w, http.StatusNotFound, "Book not found", nil)
		return
	}
	verses := snap.Chapter(book.Name, n)
	if len(verses) == 0 {
		failure(w, http.StatusNotFound, "Chapter not found", nil)
		return
	}
	success(w, map[string]interface{}{
		"book":    book.Name,
		"chapter": n,
		"verses":  s.toDTOs(verses),
	}, "successfully")
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	success(w, s.svc.Preferences(), "successfully")
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.svc.UpdatePreferences(func(p *storage.Preferences) {
		if req.Theme != nil {
			p.Theme = *req.Theme
		}
		if req.AffirmationsEnabled != nil {
			p.AffirmationsEnabled = *req.AffirmationsEnabled
		}
		if req.NotificationsEnabled != nil {
			p.NotificationsEnabled = *req.NotificationsEnabled
		}
		if req.NotificationHour != nil {
			p.NotificationHour = *req.NotificationHour
		}
		if req.NotificationMinute != nil {
			p.NotificationMinute = *req.NotificationMinute
		}
	})
	if err != nil {
		failure(w, http.StatusBadRequest, "Failed to update preferences", err.Error())
		return
	}
	success(w, p, "Preferences updated")
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	if !s.svc.DonationsEnabled() {
		failure(w, http.StatusServiceUnavailable, "Donations are unavailable", nil)
		return
	}
	products, err := s.svc.Donations.Products(r.Context())
	if err != nil {
		failure(w, http.StatusInternalServerError, "Failed to query products", err.Error())
		return
	}
	success(w, products, "successfully")
}

func (s *Server) donate(w http.ResponseWriter, r *http.Request) {
	if !s.svc.DonationsEnabled() {
		failure(w, http.StatusServiceUnavailable, "Donations are unavailable", nil)
		return
	}
	var req DonationRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Donations.Donate(r.Context(), req.ProductID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, donate.ErrUnknownProduct) {
			status = http.StatusNotFound
		}
		failure(w, status, res.Message, err.Error())
		return
	}
	success(w, res.Purchase, res.Message)
}
