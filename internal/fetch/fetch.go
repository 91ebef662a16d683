// Package fetch downloads pages over HTTP with retries, politeness limits,
// content decoding and an optional conditional disk cache.
package fetch

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/goreadable/internal/cache"
	"github.com/hyperifyio/goreadable/internal/metrics"
)

const (
	DefaultUserAgent    = "goreadable/1.0 (+https://github.com/hyperifyio/goreadable)"
	DefaultMaxBodyBytes = 5 << 20
	defaultRedirects    = 5

	acceptHeader   = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.8"
	acceptEncoding = "gzip, deflate, br"
)

// ErrRobotsDisallowed is returned when robots.txt forbids the URL.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Response is a fully read, content-decoded response.
type Response struct {
	// URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Truncated is set when the body hit MaxBodyBytes.
	Truncated bool
	// FromCache is set when the body came from the disk cache after a 304.
	FromCache bool
}

// ContentType returns the media type without parameters, lower-cased.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsHTML reports whether the Content-Type mentions html (text/html,
// application/xhtml+xml). A missing Content-Type is not HTML.
func (r *Response) IsHTML() bool {
	return strings.Contains(r.ContentType(), "html")
}

// RobotsChecker decides whether a URL may be fetched.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// CrawlDelayer is implemented by robots checkers that honor Crawl-delay.
// The per-host rate is lowered to match the delay when it is stricter.
type CrawlDelayer interface {
	CrawlDelay(ctx context.Context, rawURL string) time.Duration
}

// Client wraps http.Client with timeouts, bounded retry on transient errors
// and per-host rate limits.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	Cache             *cache.HTTPCache
	// BypassCache skips conditional requests but still stores fresh bodies.
	BypassCache bool
	// RedirectMaxHops caps redirects. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests. Zero means unlimited.
	MaxConcurrent int
	// MaxBodyBytes caps the decoded body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RequestsPerHost is the per-host request rate per second. Zero means
	// unlimited.
	RequestsPerHost float64
	// Robots, when set, is consulted once per Get before any request.
	Robots RobotsChecker

	limiter     chan struct{}
	limiterOnce sync.Once

	hostMu    sync.Mutex
	hostRates map[string]*rate.Limiter
}

// Get fetches rawURL and returns the decoded body. Non-2xx responses return
// a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		metrics.FetchErrors.WithLabelValues("scheme").Inc()
		return nil, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.Robots != nil {
		ok, err := c.Robots.Allowed(ctx, rawURL)
		if err != nil {
			metrics.FetchErrors.WithLabelValues("robots").Inc()
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !ok {
			metrics.FetchErrors.WithLabelValues("robots").Inc()
			return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
	}
	var delay time.Duration
	if d, ok := c.Robots.(CrawlDelayer); ok {
		delay = d.CrawlDelay(ctx, rawURL)
	}

	var meta *cache.HTTPEntry
	if c.Cache != nil && !c.BypassCache {
		if m, err := c.Cache.LoadMeta(ctx, rawURL); err == nil {
			meta = m
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := c.wait(ctx, u.Host, delay); err != nil {
			return nil, err
		}
		resp, err := c.tryOnce(ctx, rawURL, meta)
		if err == nil {
			return c.finish(ctx, rawURL, meta, resp)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("retrying fetch")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	var se *StatusError
	if errors.As(lastErr, &se) {
		metrics.FetchErrors.WithLabelValues("status").Inc()
	} else {
		metrics.FetchErrors.WithLabelValues("network").Inc()
	}
	return nil, lastErr
}

func (c *Client) finish(ctx context.Context, rawURL string, meta *cache.HTTPEntry, resp *Response) (*Response, error) {
	if resp.StatusCode == http.StatusNotModified {
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("load cached body: %w", err)
		}
		metrics.CacheHits.Inc()
		return &Response{
			URL:        resp.URL,
			StatusCode: http.StatusOK,
			Header:     meta.Header.Clone(),
			Body:       body,
			FromCache:  true,
		}, nil
	}
	if c.Cache != nil && !resp.Truncated {
		if err := c.Cache.Save(ctx, rawURL, resp.Header, resp.Body); err != nil {
			log.Debug().Err(err).Str("url", rawURL).Msg("cache save failed")
		}
	}
	metrics.PagesFetched.Inc()
	metrics.BytesFetched.Add(float64(len(resp.Body)))
	return resp, nil
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, meta *cache.HTTPEntry) (*Response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if meta != nil {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	if resp.StatusCode == http.StatusNotModified && meta != nil {
		return &Response{URL: final, StatusCode: resp.StatusCode}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, truncated, err := readBody(resp, c.maxBody())
	if err != nil {
		return nil, err
	}
	header := resp.Header.Clone()
	header.Del("Content-Encoding")
	header.Del("Content-Length")
	return &Response{
		URL:        final,
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
		Truncated:  truncated,
	}, nil
}

// readBody decodes the Content-Encoding and reads at most max bytes.
func readBody(resp *http.Response, max int64) ([]byte, bool, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("gzip decode: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "deflate":
		br := bufio.NewReader(resp.Body)
		if hdr, err := br.Peek(2); err == nil && isZlibHeader(hdr) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, false, fmt.Errorf("deflate decode: %w", err)
			}
			defer zr.Close()
			reader = zr
		} else {
			// some servers send raw deflate without the zlib wrapper
			fr := flate.NewReader(br)
			defer fr.Close()
			reader = fr
		}
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	b, err := io.ReadAll(io.LimitReader(reader, max+1))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > max {
		return b[:max], true, nil
	}
	return b, false, nil
}

func isZlibHeader(b []byte) bool {
	return len(b) >= 2 && b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

func (c *Client) maxBody() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 && se.StatusCode <= 599
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = defaultRedirects
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// wait blocks until the host's token bucket admits another request. A
// positive crawlDelay caps the rate at one request per delay.
func (c *Client) wait(ctx context.Context, host string, crawlDelay time.Duration) error {
	limit := rate.Limit(c.RequestsPerHost)
	if crawlDelay > 0 {
		byDelay := rate.Every(crawlDelay)
		if limit <= 0 || byDelay < limit {
			limit = byDelay
		}
	}
	if limit <= 0 {
		return nil
	}
	c.hostMu.Lock()
	if c.hostRates == nil {
		c.hostRates = make(map[string]*rate.Limiter)
	}
	burst := max(1, int(limit))
	if crawlDelay > 0 {
		burst = 1
	}
	l, ok := c.hostRates[host]
	if !ok {
		l = rate.NewLimiter(limit, burst)
		c.hostRates[host] = l
	} else if limit < l.Limit() {
		l.SetLimit(limit)
		l.SetBurst(burst)
	}
	c.hostMu.Unlock()
	return l.Wait(ctx)
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
