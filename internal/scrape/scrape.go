// Package scrape finds a page for a subject, downloads it and reduces it to
// its readable text.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goreadable/internal/charset"
	"github.com/hyperifyio/goreadable/internal/fetch"
	"github.com/hyperifyio/goreadable/internal/metrics"
	"github.com/hyperifyio/goreadable/internal/readable"
	"github.com/hyperifyio/goreadable/internal/search"
)

const (
	DefaultNumResults  = 3
	DefaultMaxChars    = 1500
	DefaultConcurrency = 4

	// NoTextMessage replaces empty extractions.
	NoTextMessage = "(Sorry, couldn't extract readable text.)"
)

// ErrNoResults is returned when search yields no URL for the subject.
var ErrNoResults = errors.New("no search results")

// Fetcher is satisfied by *fetch.Client.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// Result is the readable form of one page.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	// ContentType is the response media type.
	ContentType string `json:"contentType,omitempty"`
	// Charset is the encoding the body was decoded from.
	Charset string `json:"charset,omitempty"`
	// Err is set by Many when this URL failed.
	Err error `json:"-"`
}

// Reply renders the result as a chat answer: source line, title, text.
func (r Result) Reply() string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(r.URL)
	b.WriteByte('\n')
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteByte('\n')
	}
	b.WriteString(r.Text)
	return strings.TrimSpace(b.String())
}

type Scraper struct {
	Search  search.Provider
	Fetcher Fetcher
	// NumResults is how many search hits to ask for. Only the first is read.
	NumResults int
	// MaxChars caps the text; negative disables the cap.
	MaxChars int
	// Concurrency bounds Many.
	Concurrency int
	// MaxNodes and MaxDepth bound tree construction per page.
	MaxNodes int
	MaxDepth int
}

// FirstResult searches for subject and reads the first hit.
func (s *Scraper) FirstResult(ctx context.Context, subject, selector string) (Result, error) {
	if s.Search == nil {
		return Result{}, errors.New("no search provider configured")
	}
	n := s.NumResults
	if n <= 0 {
		n = DefaultNumResults
	}
	hits, err := s.Search.Search(ctx, subject, n)
	if err != nil {
		return Result{}, fmt.Errorf("search %q: %w", subject, err)
	}
	for _, h := range hits {
		if strings.TrimSpace(h.URL) != "" {
			log.Debug().Str("subject", subject).Str("url", h.URL).Str("provider", h.Source).Msg("reading first result")
			return s.Page(ctx, h.URL, selector)
		}
	}
	return Result{}, fmt.Errorf("%q: %w", subject, ErrNoResults)
}

// Page reads a known URL. Non-HTML responses succeed with a placeholder text
// naming the content type.
func (s *Scraper) Page(ctx context.Context, url, selector string) (Result, error) {
	if s.Fetcher == nil {
		return Result{}, errors.New("no fetcher configured")
	}
	resp, err := s.Fetcher.Get(ctx, url)
	if err != nil {
		return Result{URL: url}, err
	}
	res := Result{URL: url, ContentType: resp.Header.Get("Content-Type")}
	if !resp.IsHTML() {
		res.Text = fmt.Sprintf("(Non-HTML content: %s)", res.ContentType)
		return res, nil
	}
	var markup string
	markup, res.Charset = charset.DecodeResponse(resp.Header, resp.Body)
	doc := s.extract([]byte(markup), selector)
	res.Title = doc.Title
	res.Text = doc.Text
	if res.Text == "" {
		res.Text = NoTextMessage
	}
	return res, nil
}

// Many reads urls concurrently. Results keep the input order; a failing URL
// only sets its own Result.Err.
func (s *Scraper) Many(ctx context.Context, urls []string, selector string) []Result {
	out := make([]Result, len(urls))
	if len(urls) == 0 {
		return out
	}
	n := s.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	pool := pond.NewPool(n)
	for i, u := range urls {
		pool.Submit(func() {
			if err := ctx.Err(); err != nil {
				out[i] = Result{URL: u, Err: err}
				return
			}
			res, err := s.Page(ctx, u, selector)
			if err != nil {
				log.Debug().Err(err).Str("url", u).Msg("page failed")
				res = Result{URL: u, Err: err}
			}
			out[i] = res
		})
	}
	pool.StopAndWait()
	return out
}

func (s *Scraper) extract(markup []byte, selector string) readable.Document {
	start := time.Now()
	doc := readable.FromHTML(markup, readable.Options{
		Selector: selector,
		MaxChars: s.maxChars(),
		MaxNodes: s.MaxNodes,
		MaxDepth: s.MaxDepth,
	})
	metrics.ExtractSeconds.Observe(time.Since(start).Seconds())
	metrics.Extractions.WithLabelValues(PathLabel(doc)).Inc()
	return doc
}

func (s *Scraper) maxChars() int {
	switch {
	case s.MaxChars < 0:
		return 0
	case s.MaxChars == 0:
		return DefaultMaxChars
	default:
		return s.MaxChars
	}
}

// PathLabel names the extraction path for metrics.
func PathLabel(doc readable.Document) string {
	switch {
	case doc.Text == "":
		return metrics.PathEmpty
	case doc.Selected:
		return metrics.PathSelector
	default:
		return metrics.PathHeuristic
	}
}
