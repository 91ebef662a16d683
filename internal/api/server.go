// Package api serves extraction and reading over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperifyio/goreadable/internal/scrape"
)

// DefaultMaxUploadBytes caps request bodies.
const DefaultMaxUploadBytes = 5 << 20

// Reader finds and reads the first page for a subject.
type Reader interface {
	FirstResult(ctx context.Context, subject, selector string) (scrape.Result, error)
}

// Summarizer is optional; it serves the "summarize" verb.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

type Options struct {
	// APIKey enables bearer auth on /api/* when set.
	APIKey         string
	MaxUploadBytes int64
	// MaxChars is the default cap for /api/extract; 0 means no cap.
	MaxChars int
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	reader     Reader
	summarizer Summarizer
	opts       Options
}

// NewServer wires routes. reader and summarizer may be nil; the routes that
// need them answer 503.
func NewServer(reader Reader, summarizer Summarizer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{reader: reader, summarizer: summarizer, opts: opts}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.APIKey != "" {
			r.Use(AuthMiddleware(s.opts.APIKey))
		}
		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/read", s.handleRead)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
