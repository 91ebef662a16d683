package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/goreadable/internal/app"
)

// version is set with -ldflags "-X main.version=...".
var version = "0.0.0-dev"

// Exit codes: 2 when a page had no readable content, 1 for everything else.
const (
	exitError     = 1
	exitNoContent = 2
)

// Flags shared by every subcommand.
var (
	flagConfig      string
	flagEnvFiles    []string
	flagVerbose     bool
	flagCacheDir    string
	flagCacheMaxAge time.Duration
	flagCacheClear  bool
	flagSearxURL    string
	flagSearxKey    string
	flagSearchFile  string
	flagUserAgent   string
	flagTimeout     time.Duration
	flagRobots      bool
	flagMaxChars    int
	flagLLMBase     string
	flagLLMModel    string
	flagLLMKey      string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, app.ErrNoReadableContent) {
			os.Exit(exitNoContent)
		}
		log.Error().Err(err).Msg("goreadable failed")
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "goreadable [command]",
		Short: "Extract the readable text of web pages",
		Long: `goreadable reduces HTML pages to their main readable text. It reads
local files, fetches single URLs, answers "read about <subject>" requests by
searching and scraping the first hit, and serves the same over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", os.Getenv("GOREADABLE_CONFIG"), "YAML or JSON config file")
	pf.StringArrayVar(&flagEnvFiles, "env-file", []string{".env"}, "dotenv file to load (repeatable)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&flagCacheDir, "cache.dir", "", "cache directory; empty string in config disables caching")
	pf.DurationVar(&flagCacheMaxAge, "cache.maxAge", 0, "purge cache entries older than this (e.g. 24h); 0 disables")
	pf.BoolVar(&flagCacheClear, "cache.clear", false, "clear the cache directory before running")
	pf.StringVar(&flagSearxURL, "searx.url", "", "SearxNG base URL")
	pf.StringVar(&flagSearxKey, "searx.key", "", "SearxNG API key (optional)")
	pf.StringVar(&flagSearchFile, "search.file", "", "JSON file for offline search results")
	pf.StringVar(&flagUserAgent, "user-agent", "", "User-Agent for page, robots.txt and search requests")
	pf.DurationVar(&flagTimeout, "timeout", 0, "per-request timeout")
	pf.BoolVar(&flagRobots, "robots", false, "respect robots.txt")
	pf.IntVar(&flagMaxChars, "max-chars", 0, "cap extracted text at this many characters; negative disables the cap")
	pf.StringVar(&flagLLMBase, "llm.base", "", "OpenAI-compatible base URL for summaries")
	pf.StringVar(&flagLLMModel, "llm.model", "", "model name for summaries")
	pf.StringVar(&flagLLMKey, "llm.key", "", "API key for the OpenAI-compatible server")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// loadConfig layers defaults, the config file, the environment and finally
// the flags the user actually set.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	if err := app.LoadEnvFiles(flagEnvFiles...); err != nil {
		return app.Config{}, err
	}
	cfg := app.DefaultConfig()
	if flagConfig != "" {
		fc, err := app.LoadConfigFile(flagConfig)
		if err != nil {
			return cfg, err
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = flagVerbose
	}
	if flags.Changed("cache.dir") {
		cfg.CacheDir = flagCacheDir
	}
	if flags.Changed("cache.maxAge") {
		cfg.CacheMaxAge = flagCacheMaxAge
	}
	if flags.Changed("cache.clear") {
		cfg.CacheClear = flagCacheClear
	}
	if flags.Changed("searx.url") {
		cfg.SearxURL = flagSearxURL
	}
	if flags.Changed("searx.key") {
		cfg.SearxKey = flagSearxKey
	}
	if flags.Changed("search.file") {
		cfg.SearchFile = flagSearchFile
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = flagUserAgent
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("robots") {
		cfg.RespectRobots = flagRobots
	}
	if flags.Changed("max-chars") {
		cfg.MaxChars = flagMaxChars
	}
	if flags.Changed("llm.base") {
		cfg.LLMBaseURL = flagLLMBase
	}
	if flags.Changed("llm.model") {
		cfg.LLMModel = flagLLMModel
	}
	if flags.Changed("llm.key") {
		cfg.LLMAPIKey = flagLLMKey
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return cfg, app.ValidateConfig(cfg)
}
