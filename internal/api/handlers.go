package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goreadable/internal/metrics"
	"github.com/hyperifyio/goreadable/internal/readable"
	"github.com/hyperifyio/goreadable/internal/scrape"
	"github.com/hyperifyio/goreadable/internal/summarize"
)

type extractRequest struct {
	HTML     string `json:"html"`
	Selector string `json:"selector"`
	MaxChars *int   `json:"maxChars"`
}

type extractResponse struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type readResponse struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Summary string `json:"summary,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.opts.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Selector) != "" {
		if _, err := readable.ParseSelector(req.Selector); err != nil {
			jsonError(w, "invalid selector: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	maxChars := s.opts.MaxChars
	if req.MaxChars != nil {
		if *req.MaxChars < 0 {
			jsonError(w, "maxChars must not be negative", http.StatusBadRequest)
			return
		}
		maxChars = *req.MaxChars
	}

	start := time.Now()
	doc := readable.FromHTML([]byte(req.HTML), readable.Options{Selector: req.Selector, MaxChars: maxChars})
	metrics.ExtractSeconds.Observe(time.Since(start).Seconds())
	metrics.Extractions.WithLabelValues(scrape.PathLabel(doc)).Inc()

	writeJSON(w, http.StatusOK, extractResponse{Title: doc.Title, Text: doc.Text})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		jsonError(w, "reading is not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query().Get("q")
	cmd, ok := scrape.ParseCommand(q)
	if !ok {
		jsonError(w, `not a read command; try "read about <subject>"`, http.StatusBadRequest)
		return
	}
	res, err := s.reader.FirstResult(r.Context(), cmd.Subject, cmd.Selector)
	if err != nil {
		if errors.Is(err, scrape.ErrNoResults) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Warn().Err(err).Str("subject", cmd.Subject).Msg("read failed")
		jsonError(w, "could not fetch content: "+err.Error(), http.StatusBadGateway)
		return
	}
	out := readResponse{URL: res.URL, Title: res.Title, Text: res.Text}
	if cmd.Verb == "summarize" && s.summarizer != nil && res.Text != scrape.NoTextMessage {
		summary, err := s.summarizer.Summarize(r.Context(), res.Title, res.Text)
		switch {
		case err == nil:
			out.Summary = summary
		case errors.Is(err, summarize.ErrNotConfigured):
			// plain text only
		default:
			log.Warn().Err(err).Str("url", res.URL).Msg("summary failed")
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
