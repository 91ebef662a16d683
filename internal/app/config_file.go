package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema, YAML or JSON.
type FileConfig struct {
	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Fetch struct {
		UserAgent         string        `yaml:"userAgent" json:"userAgent"`
		Timeout           time.Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts       int           `yaml:"maxAttempts" json:"maxAttempts"`
		RequestsPerHost   float64       `yaml:"requestsPerHost" json:"requestsPerHost"`
		RespectRobots     *bool         `yaml:"respectRobots" json:"respectRobots"`
		AllowPrivateHosts bool          `yaml:"allowPrivateHosts" json:"allowPrivateHosts"`
		MaxInputBytes     int64         `yaml:"maxInputBytes" json:"maxInputBytes"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Extract struct {
		MaxChars    int `yaml:"maxChars" json:"maxChars"`
		NumResults  int `yaml:"numResults" json:"numResults"`
		Concurrency int `yaml:"concurrency" json:"concurrency"`
	} `yaml:"extract" json:"extract"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Server struct {
		Listen string `yaml:"listen" json:"listen"`
		APIKey string `yaml:"apiKey" json:"apiKey"`
	} `yaml:"server" json:"server"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig. Unknown extensions are
// tried as YAML, then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. Zero values in
// the file leave cfg alone.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	num64 := func(dst *int64, v int64) {
		if v != 0 {
			*dst = v
		}
	}
	on := func(dst *bool, v bool) {
		if v {
			*dst = true
		}
	}

	str(&cfg.SearxURL, fc.Searx.URL)
	str(&cfg.SearxKey, fc.Searx.Key)
	str(&cfg.SearchFile, fc.Search.File)

	str(&cfg.UserAgent, fc.Fetch.UserAgent)
	if fc.Fetch.Timeout > 0 {
		cfg.Timeout = fc.Fetch.Timeout
	}
	num(&cfg.MaxAttempts, fc.Fetch.MaxAttempts)
	if fc.Fetch.RequestsPerHost != 0 {
		cfg.RequestsPerHost = fc.Fetch.RequestsPerHost
	}
	if fc.Fetch.RespectRobots != nil {
		cfg.RespectRobots = *fc.Fetch.RespectRobots
	}
	on(&cfg.AllowPrivateHosts, fc.Fetch.AllowPrivateHosts)
	num64(&cfg.MaxInputBytes, fc.Fetch.MaxInputBytes)

	str(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	num64(&cfg.CacheMaxBytes, fc.Cache.MaxBytes)
	on(&cfg.CacheClear, fc.Cache.Clear)
	on(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)

	num(&cfg.MaxChars, fc.Extract.MaxChars)
	num(&cfg.NumResults, fc.Extract.NumResults)
	num(&cfg.Concurrency, fc.Extract.Concurrency)

	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)

	str(&cfg.Listen, fc.Server.Listen)
	str(&cfg.APIKey, fc.Server.APIKey)
	on(&cfg.Verbose, fc.Verbose)
}

// ValidateConfig rejects settings no component can work with.
func ValidateConfig(cfg Config) error {
	if cfg.MaxAttempts < 0 || cfg.NumResults < 0 || cfg.Concurrency < 0 || cfg.MaxInputBytes < 0 || cfg.CacheMaxBytes < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.RequestsPerHost < 0 {
		return errors.New("config: requests per host must not be negative")
	}
	if cfg.Timeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: durations must not be negative")
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return errors.New("config: user agent is required")
	}
	return nil
}

// ValidateSummarizer reports whether the LLM settings are complete enough to
// summarize.
func ValidateSummarizer(cfg Config) error {
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required for summaries (or set LLM_MODEL)")
	}
	if strings.TrimSpace(cfg.LLMBaseURL) == "" && strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return errors.New("config: llm.base or llm.key is required for summaries")
	}
	return nil
}
