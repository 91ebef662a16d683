package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const searxTimeout = 10 * time.Second

// SearxNG queries the JSON API of a SearxNG instance.
type SearxNG struct {
	// BaseURL is the instance root or its /search endpoint.
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
	// Language and Categories default to "auto" and "general".
	Language   string
	Categories string
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint, err := s.endpoint(query, limit)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: searxTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("searxng: unexpected status %d", resp.StatusCode)
	}
	var body searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("searxng: decode: %w", err)
	}
	return body.results(s.Name(), limitOrDefault(limit)), nil
}

func (s *SearxNG) endpoint(query string, limit int) (string, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return "", errors.New("searxng: base url not configured")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("searxng: base url: %w", err)
	}
	if path.Base(u.Path) != "search" {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("safesearch", "1")
	params.Set("language", orDefault(s.Language, "auto"))
	params.Set("categories", orDefault(s.Categories, "general"))
	params.Set("count", strconv.Itoa(limitOrDefault(limit)))
	if s.APIKey != "" {
		params.Set("apikey", s.APIKey)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// results maps hits in rank order, skipping repeated URLs. Untitled hits use
// their URL as the title.
func (r searxResponse) results(source string, limit int) []Result {
	out := make([]Result, 0, min(limit, len(r.Results)))
	seen := make(map[string]struct{}, len(r.Results))
	for _, hit := range r.Results {
		link := strings.TrimSpace(hit.URL)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		title := strings.TrimSpace(hit.Title)
		if title == "" {
			title = link
		}
		out = append(out, Result{Title: title, URL: link, Snippet: strings.TrimSpace(hit.Content), Source: source})
		if len(out) == limit {
			break
		}
	}
	return out
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
