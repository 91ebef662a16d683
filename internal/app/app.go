// Package app wires configuration, caches, fetching, search, extraction and
// summaries into the operations the command line and the API expose.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goreadable/internal/api"
	"github.com/hyperifyio/goreadable/internal/cache"
	"github.com/hyperifyio/goreadable/internal/fetch"
	"github.com/hyperifyio/goreadable/internal/llm"
	"github.com/hyperifyio/goreadable/internal/metrics"
	"github.com/hyperifyio/goreadable/internal/readable"
	"github.com/hyperifyio/goreadable/internal/robots"
	"github.com/hyperifyio/goreadable/internal/scrape"
	"github.com/hyperifyio/goreadable/internal/search"
	"github.com/hyperifyio/goreadable/internal/summarize"
)

// ErrNoReadableContent is returned when extraction produced no text. The
// command line maps it to its own exit code.
var ErrNoReadableContent = errors.New("no readable content")

// ErrNotCommand is returned by Read for messages that are not read commands.
var ErrNotCommand = errors.New(`not a read command; try "read about <subject>"`)

type App struct {
	cfg        Config
	httpCache  *cache.HTTPCache
	fetcher    *fetch.Client
	scraper    *scrape.Scraper
	summarizer *summarize.Summarizer
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg}
	client := newHTTPClient(cfg.Timeout)

	var llmCache *cache.LLMCache
	if cfg.CacheDir != "" {
		if err := a.prepareCache(); err != nil {
			return nil, err
		}
		a.httpCache = &cache.HTTPCache{Dir: a.httpCacheDir(), StrictPerms: cfg.CacheStrictPerms}
		llmCache = &cache.LLMCache{Dir: a.llmCacheDir(), StrictPerms: cfg.CacheStrictPerms}
	}

	a.fetcher = &fetch.Client{
		HTTPClient:        client,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		MaxConcurrent:     cfg.Concurrency,
		MaxBodyBytes:      cfg.MaxInputBytes,
		RequestsPerHost:   cfg.RequestsPerHost,
	}
	if cfg.RespectRobots {
		a.fetcher.Robots = &robots.Manager{
			HTTPClient:        client,
			Cache:             a.httpCache,
			UserAgent:         cfg.UserAgent,
			AllowPrivateHosts: cfg.AllowPrivateHosts,
		}
	}

	a.scraper = &scrape.Scraper{
		Search:      a.searchChain(client),
		Fetcher:     a.fetcher,
		NumResults:  cfg.NumResults,
		MaxChars:    cfg.MaxChars,
		Concurrency: cfg.Concurrency,
	}

	if ValidateSummarizer(cfg) == nil {
		provider := llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, client)
		a.summarizer = &summarize.Summarizer{Client: provider, Model: cfg.LLMModel, Cache: llmCache}
		a.preflight(ctx, provider)
	}
	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

func (a *App) Config() Config { return a.cfg }

func (a *App) httpCacheDir() string { return filepath.Join(a.cfg.CacheDir, "http") }
func (a *App) llmCacheDir() string  { return filepath.Join(a.cfg.CacheDir, "llm") }

// prepareCache applies the clear, age and size controls before first use.
// Purge failures are logged and never stop startup.
func (a *App) prepareCache() error {
	if a.cfg.CacheClear {
		if err := cache.ClearDir(a.cfg.CacheDir); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", a.cfg.CacheDir).Msg("cache cleared")
	}
	if a.cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeHTTPCacheByAge(a.httpCacheDir(), a.cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("http cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged stale http cache entries")
		}
		if n, err := cache.PurgeLLMCacheByAge(a.llmCacheDir(), a.cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("llm cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged stale summaries")
		}
	}
	if a.cfg.CacheMaxBytes > 0 {
		if n, err := cache.EnforceHTTPCacheLimits(a.httpCacheDir(), a.cfg.CacheMaxBytes, 0); err != nil {
			log.Warn().Err(err).Msg("http cache size enforcement failed")
		} else if n > 0 {
			log.Debug().Int("evicted", n).Msg("evicted http cache entries")
		}
	}
	return nil
}

func (a *App) searchChain(client *http.Client) search.Provider {
	var chain search.Chain
	if a.cfg.SearxURL != "" {
		chain = append(chain, &search.SearxNG{BaseURL: a.cfg.SearxURL, APIKey: a.cfg.SearxKey, HTTPClient: client, UserAgent: a.cfg.UserAgent})
	}
	if a.cfg.SearchFile != "" {
		chain = append(chain, &search.FileProvider{Path: a.cfg.SearchFile})
	}
	return append(chain, search.Fallback{})
}

// preflight lists models once so a misconfigured endpoint shows up in the
// log early. Failures are not fatal.
func (a *App) preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; summaries may fail")
		return
	}
	if len(models.Models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}

// Extract reads HTML from r, at most MaxInputBytes, and returns its readable
// form. maxChars overrides the configured cap when non-zero.
func (a *App) Extract(r io.Reader, selector string, maxChars int) (readable.Document, error) {
	limit := a.cfg.MaxInputBytes
	if limit <= 0 {
		limit = api.DefaultMaxUploadBytes
	}
	input, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return readable.Document{}, fmt.Errorf("read input: %w", err)
	}
	if int64(len(input)) > limit {
		return readable.Document{}, fmt.Errorf("input exceeds %d bytes", limit)
	}
	if maxChars == 0 {
		maxChars = a.cfg.MaxChars
	}
	if maxChars < 0 {
		maxChars = 0
	}
	start := time.Now()
	doc := readable.FromHTML(input, readable.Options{Selector: selector, MaxChars: maxChars})
	metrics.ExtractSeconds.Observe(time.Since(start).Seconds())
	metrics.Extractions.WithLabelValues(scrape.PathLabel(doc)).Inc()
	if doc.Text == "" {
		return doc, ErrNoReadableContent
	}
	return doc, nil
}

// Fetch downloads one URL and extracts it.
func (a *App) Fetch(ctx context.Context, rawURL, selector string) (scrape.Result, error) {
	res, err := a.scraper.Page(ctx, rawURL, selector)
	if err != nil {
		return res, err
	}
	if res.Text == scrape.NoTextMessage {
		return res, ErrNoReadableContent
	}
	return res, nil
}

// Search lists the hits the configured providers return for query. limit
// falls back to NumResults.
func (a *App) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = a.cfg.NumResults
	}
	return a.scraper.Search.Search(ctx, query, limit)
}

// Answer is the reply to a read command.
type Answer struct {
	scrape.Result
	Verb    string
	Summary string
}

// Reply renders the answer as chat text. A summary replaces the page text.
func (a Answer) Reply() string {
	if a.Summary == "" {
		return a.Result.Reply()
	}
	r := a.Result
	r.Text = a.Summary
	return r.Reply()
}

// Read answers a chat message such as "read about go generics" or
// "summarize golang selector: #content".
func (a *App) Read(ctx context.Context, message string) (Answer, error) {
	cmd, ok := scrape.ParseCommand(message)
	if !ok {
		return Answer{}, ErrNotCommand
	}
	res, err := a.scraper.FirstResult(ctx, cmd.Subject, cmd.Selector)
	if err != nil {
		return Answer{Result: res, Verb: cmd.Verb}, err
	}
	ans := Answer{Result: res, Verb: cmd.Verb}
	if res.Text == scrape.NoTextMessage {
		return ans, ErrNoReadableContent
	}
	if cmd.Verb == "summarize" {
		summary, err := a.summarizer.Summarize(ctx, res.Title, res.Text)
		switch {
		case err == nil:
			ans.Summary = summary
		case errors.Is(err, summarize.ErrNotConfigured):
			log.Debug().Msg("no LLM configured; replying with page text")
		default:
			log.Warn().Err(err).Str("url", res.URL).Msg("summary failed")
		}
	}
	return ans, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	var summarizer api.Summarizer
	if a.summarizer != nil {
		summarizer = a.summarizer
	}
	return api.NewServer(a.scraper, summarizer, api.Options{
		APIKey:         a.cfg.APIKey,
		MaxUploadBytes: a.cfg.MaxInputBytes,
		MaxChars:       max(a.cfg.MaxChars, 0),
	})
}

// Serve runs the API on cfg.Listen until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.Listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

