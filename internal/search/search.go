// Package search turns a subject into candidate page URLs.
package search

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	// Source names the provider that produced the hit.
	Source string `json:"source,omitempty"`
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// FallbackURL is the search-page URL used when no provider returns results.
func FallbackURL(subject string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(strings.TrimSpace(subject))
}

// Fallback always answers with a single search-page link for the subject.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) Search(_ context.Context, query string, _ int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return []Result{{Title: strings.TrimSpace(query), URL: FallbackURL(query), Source: "fallback"}}, nil
}

// Chain asks providers in order and returns the first non-empty answer after
// Normalize. Provider errors are logged and skipped; they are returned only when no
// provider produced results.
type Chain []Provider

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, p := range c {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (c Chain) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var errs []error
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.Search(ctx, query, limit)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("search provider failed")
			errs = append(errs, err)
			continue
		}
		if res = Normalize(res); len(res) > 0 {
			return res, nil
		}
	}
	return nil, errors.Join(errs...)
}
