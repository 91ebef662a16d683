package app

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	unsetEnv(t, "GR_FOO", "GR_BAR")
	p := writeFile(t, t.TempDir(), ".env.test", "\n# sample dotenv file\nGR_FOO=alpha\nGR_BAR=\"beta gamma\"\n")

	if err := LoadEnvFiles(p); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("GR_FOO"); got != "alpha" {
		t.Fatalf("GR_FOO=%q, want alpha", got)
	}
	if got := os.Getenv("GR_BAR"); got != "beta gamma" {
		t.Fatalf("GR_BAR=%q, want quoted value", got)
	}
}

func TestLoadEnvFiles_ExistingEnvAndFirstFileWin(t *testing.T) {
	unsetEnv(t, "GR_K")
	t.Setenv("GR_SET", "process")
	dir := t.TempDir()
	a := writeFile(t, dir, ".env.a", "GR_K=first\nGR_SET=file\n")
	b := writeFile(t, dir, ".env.b", "GR_K=second\n")

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("GR_K"); got != "first" {
		t.Fatalf("GR_K=%q, want first", got)
	}
	if got := os.Getenv("GR_SET"); got != "process" {
		t.Fatalf("process env was overwritten: %q", got)
	}
}

func TestLoadEnvFiles_MissingIgnored(t *testing.T) {
	if err := LoadEnvFiles(filepath.Join(t.TempDir(), "nope.env"), ""); err != nil {
		t.Fatalf("missing file should be skipped, got %v", err)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	unsetEnv(t, "SEARX_URL")
	t.Setenv("SEARXNG_URL", "http://searxng.example")
	t.Setenv("CACHE_DIR", "/tmp/goreadable-cache")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("REQUESTS_PER_HOST", "0.5")
	t.Setenv("RESPECT_ROBOTS", "yes")
	t.Setenv("MAX_CHARS", "-1")
	t.Setenv("NUM_RESULTS", "not-a-number")
	t.Setenv("LLM_MODEL", "tinyllama")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)
	if cfg.SearxURL != "http://searxng.example" {
		t.Fatalf("SearxURL=%q, want fallback from SEARXNG_URL", cfg.SearxURL)
	}
	if cfg.CacheDir != "/tmp/goreadable-cache" {
		t.Fatalf("CacheDir=%q", cfg.CacheDir)
	}
	if cfg.Timeout.Seconds() != 3 || cfg.RequestsPerHost != 0.5 {
		t.Fatalf("timeout/rate not applied: %v %v", cfg.Timeout, cfg.RequestsPerHost)
	}
	if !cfg.RespectRobots {
		t.Fatalf("RESPECT_ROBOTS=yes should enable robots")
	}
	if cfg.MaxChars != -1 {
		t.Fatalf("MaxChars=%d, want -1", cfg.MaxChars)
	}
	if cfg.NumResults != DefaultConfig().NumResults {
		t.Fatalf("unparsable NUM_RESULTS should be ignored, got %d", cfg.NumResults)
	}
	if cfg.LLMModel != "tinyllama" {
		t.Fatalf("LLMModel=%q", cfg.LLMModel)
	}
}

func TestApplyEnvOverrides_BoolOff(t *testing.T) {
	t.Setenv("RESPECT_ROBOTS", "off")
	cfg := Config{RespectRobots: true}
	ApplyEnvOverrides(&cfg)
	if cfg.RespectRobots {
		t.Fatalf("RESPECT_ROBOTS=off should disable robots")
	}
	ApplyEnvOverrides(nil)
}
