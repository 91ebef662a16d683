// Package robots answers whether a URL may be fetched under its host's
// robots.txt. Files are cached in memory per host and revalidated through the
// on-disk HTTP cache with conditional requests.
package robots

import (
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

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"

	"github.com/hyperifyio/goreadable/internal/cache"
)

// ErrPrivateHost is returned for loopback, private and link-local hosts
// unless Manager.AllowPrivateHosts is set.
var ErrPrivateHost = errors.New("private host not allowed")

// DefaultExpiry is how long a parsed robots.txt is reused without asking the
// server again.
const DefaultExpiry = 30 * time.Minute

// maxRobotsBytes caps how much of a robots.txt is read.
const maxRobotsBytes = 512 << 10

// Source reports where a robots.txt came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
	// SourceUnavailable means the file could not be loaded and everything is
	// allowed.
	SourceUnavailable
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceCache304:
		return "cache-304"
	case SourceUnavailable:
		return "unavailable"
	default:
		return "network"
	}
}

type Manager struct {
	HTTPClient        *http.Client
	Cache             *cache.HTTPCache
	UserAgent         string
	EntryExpiry       time.Duration
	AllowPrivateHosts bool

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Allowed reports whether rawURL may be fetched by m.UserAgent. A robots.txt
// that cannot be loaded allows everything.
func (m *Manager) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return false, fmt.Errorf("unsupported url scheme: %q", rawURL)
	}
	data, src, err := m.Get(ctx, robotsURLFor(u))
	if err != nil {
		return false, err
	}
	if src == SourceUnavailable || data == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, m.agent()), nil
}

// CrawlDelay returns the Crawl-delay that applies to m.UserAgent on the host
// of rawURL, or zero.
func (m *Manager) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil || !isHTTPScheme(u) {
		return 0
	}
	data, _, err := m.Get(ctx, robotsURLFor(u))
	if err != nil || data == nil {
		return 0
	}
	if g := data.FindGroup(m.agent()); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// Get returns the parsed robots.txt at robotsURL. Network failures and
// error statuses yield (nil, SourceUnavailable, nil).
func (m *Manager) Get(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	u, err := url.Parse(robotsURL)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, SourceNetwork, fmt.Errorf("unsupported url scheme: %q", robotsURL)
	}
	if host := u.Hostname(); !m.AllowPrivateHosts && isLocalOrPrivateHost(host) {
		return nil, SourceNetwork, fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}

	m.mu.Lock()
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	if ent, ok := m.mem[robotsURL]; ok && m.clock().Before(ent.expiry) {
		m.mu.Unlock()
		if ent.data == nil {
			return nil, SourceUnavailable, nil
		}
		return ent.data, SourceMemory, nil
	}
	m.mu.Unlock()

	data, src := m.load(ctx, robotsURL)
	m.store(robotsURL, data)
	return data, src, nil
}

func (m *Manager) load(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source) {
	var etag, lastMod string
	if m.Cache != nil {
		if meta, err := m.Cache.LoadMeta(ctx, robotsURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, SourceUnavailable
	}
	req.Header.Set("User-Agent", m.agent())
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots unavailable")
		return nil, SourceUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && m.Cache != nil {
		body, err := m.Cache.LoadBody(ctx, robotsURL)
		if err == nil {
			if data, err := robotstxt.FromBytes(body); err == nil {
				return data, SourceCache304
			}
		}
		return nil, SourceUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Str("url", robotsURL).Msg("robots unavailable")
		return nil, SourceUnavailable
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, SourceUnavailable
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, SourceUnavailable
	}
	if m.Cache != nil {
		_ = m.Cache.Save(ctx, robotsURL, resp.Header, body)
	}
	return data, SourceNetwork
}

func (m *Manager) store(key string, data *robotstxt.RobotsData) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = DefaultExpiry
	}
	m.mu.Lock()
	m.mem[key] = memEntry{data: data, expiry: m.clock().Add(exp)}
	m.mu.Unlock()
}

func (m *Manager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Manager) agent() string {
	if m.UserAgent == "" {
		return "*"
	}
	return m.UserAgent
}

func robotsURLFor(u *url.URL) string {
	return (&url.URL{Scheme: strings.ToLower(u.Scheme), Host: u.Host, Path: "/robots.txt"}).String()
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "localhost" || h == "localhost.localdomain" {
		return true
	}
	if ip := net.ParseIP(strings.Trim(h, "[]")); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
	}
	return false
}
