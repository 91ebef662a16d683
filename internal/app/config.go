package app

import (
	"time"

	"github.com/hyperifyio/goreadable/internal/api"
	"github.com/hyperifyio/goreadable/internal/fetch"
	"github.com/hyperifyio/goreadable/internal/scrape"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Search
	SearxURL   string
	SearxKey   string
	SearchFile string

	// Fetch
	UserAgent         string
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerHost   float64
	RespectRobots     bool
	AllowPrivateHosts bool
	// MaxInputBytes caps downloaded bodies, stdin and API uploads.
	MaxInputBytes int64

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxBytes    int64
	CacheClear       bool
	CacheStrictPerms bool

	// Extraction
	MaxChars    int
	NumResults  int
	Concurrency int

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Server
	Listen string
	APIKey string

	Verbose bool
}

const (
	defaultCacheDir    = ".goreadable-cache"
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 2
	defaultPerHost     = 2
	defaultListen      = ":8080"
)

// DefaultConfig returns the values used when neither flags, env nor a config
// file say otherwise.
func DefaultConfig() Config {
	return Config{
		UserAgent:       fetch.DefaultUserAgent,
		Timeout:         defaultTimeout,
		MaxAttempts:     defaultMaxAttempts,
		RequestsPerHost: defaultPerHost,
		MaxInputBytes:   api.DefaultMaxUploadBytes,
		CacheDir:        defaultCacheDir,
		MaxChars:        scrape.DefaultMaxChars,
		NumResults:      scrape.DefaultNumResults,
		Concurrency:     scrape.DefaultConcurrency,
		Listen:          defaultListen,
	}
}
