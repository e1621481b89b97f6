// Package server exposes the verse library over a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"biblify/internal/app"
)

type Server struct {
	addr     string
	svc      *app.Service
	validate *validator.Validate
	handler  http.Handler
	now      func() time.Time
}

// New builds the server and its routes.
func New(svc *app.Service, addr string) *Server {
	s := &Server{
		addr:     addr,
		svc:      svc,
		validate: validator.New(),
		now:      time.Now,
	}
	s.handler = s.RegisterRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// HTTPServer returns the *http.Server to run.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.serverIsWorking)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.serverIsWorking)

		r.Get("/verses/random", s.randomVerse)
		r.Get("/verses/daily", s.dailyVerse)
		r.Get("/search", s.search)

		r.Get("/favorites", s.listFavorites)
		r.Post("/favorites/toggle", s.toggleFavorite)

		r.Get("/affirmations", s.listAffirmations)
		r.Post("/affirmations", s.addAffirmation)
		r.Put("/affirmations", s.editAffirmation)
		r.Delete("/affirmations", s.removeAffirmation)

		r.Get("/books", s.listBooks)
		r.Get("/books/{book}/{chapter}", s.chapter)

		r.Get("/preferences", s.getPreferences)
		r.Patch("/preferences", s.updatePreferences)

		r.Get("/donations/products", s.listProducts)
		r.Post("/donations", s.donate)
	})

	return r
}

func (s *Server) serverIsWorking(w http.ResponseWriter, r *http.Request) {
	success(w, map[string]string{"message": "Welcome to the biblify api"}, "Success")
}
