package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields whose environment variables are set.
// Call it after ApplyFileConfig and before applying explicit flags so the
// precedence is flags > env > file > defaults. Unparsable values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
			*dst = n
		}
	}
	setInt64 := func(dst *int64, key string) {
		if n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64); err == nil {
			*dst = n
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	setString(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	setString(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	setString(&cfg.SearchFile, "SEARCH_FILE")

	setString(&cfg.UserAgent, "USER_AGENT")
	setDuration(&cfg.Timeout, "FETCH_TIMEOUT")
	setInt(&cfg.MaxAttempts, "FETCH_ATTEMPTS")
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("REQUESTS_PER_HOST")), 64); err == nil {
		cfg.RequestsPerHost = f
	}
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
	setBool(&cfg.AllowPrivateHosts, "ALLOW_PRIVATE_HOSTS")
	setInt64(&cfg.MaxInputBytes, "MAX_INPUT_BYTES")

	setString(&cfg.CacheDir, "CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setInt64(&cfg.CacheMaxBytes, "CACHE_MAX_BYTES")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")

	setInt(&cfg.MaxChars, "MAX_CHARS")
	setInt(&cfg.NumResults, "NUM_RESULTS")
	setInt(&cfg.Concurrency, "CONCURRENCY")

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")

	setString(&cfg.Listen, "LISTEN_ADDR")
	setString(&cfg.APIKey, "API_KEY")
	setBool(&cfg.Verbose, "VERBOSE")
}
