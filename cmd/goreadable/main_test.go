package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/goreadable/internal/app"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{"--env-file", filepath.Join(dir, "none.env"), "--cache.dir", filepath.Join(dir, "cache")}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	err := root.Execute()
	return out.String(), err
}

func TestExtract_Stdin(t *testing.T) {
	page := `<html><head><title>Notes</title></head><body><article><p>Readable text lives here, with enough words to win.</p></article></body></html>`
	out, err := runCLI(t, page, "extract", "--title")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "Notes\nReadable text lives here, with enough words to win.\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExtract_FileAndMaxChars(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte(`<main><p>alpha beta gamma delta</p></main>`), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "", "extract", "--max-chars", "5", p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "alpha …\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExtract_NoContent(t *testing.T) {
	out, err := runCLI(t, "<html><body><script>x()</script></body></html>", "extract")
	if !errors.Is(err, app.ErrNoReadableContent) {
		t.Fatalf("expected ErrNoReadableContent, got %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestConfigPrecedence(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("extract:\n  maxChars: 800\nfetch:\n  userAgent: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("USER_AGENT", "from-env")
	root := newRootCmd()
	root.SetArgs([]string{"extract", "--config", cfgPath, "--max-chars", "50", "--env-file", ""})
	var got app.Config
	extract, _, err := root.Find([]string{"extract"})
	if err != nil {
		t.Fatal(err)
	}
	extract.RunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		got, err = loadConfig(cmd)
		return err
	}
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.MaxChars != 50 {
		t.Fatalf("flag should win, got %d", got.MaxChars)
	}
	if got.UserAgent != "from-env" {
		t.Fatalf("env should win over file, got %q", got.UserAgent)
	}
}

func TestAsCommand(t *testing.T) {
	cases := map[string]string{
		"go generics":                "read about go generics",
		"about go generics":          "read about go generics",
		"summarize rust":             "summarize rust",
		"Scrape golang selector: #x": "Scrape golang selector: #x",
	}
	for in, want := range cases {
		if got := asCommand(strings.Fields(in)); got != want {
			t.Fatalf("asCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearch_FileProvider(t *testing.T) {
	hits := filepath.Join(t.TempDir(), "hits.json")
	if err := os.WriteFile(hits, []byte(`[{"title":"Widgets","url":"https://example.com/w","snippet":"all about widgets"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "", "search", "--search.file", hits, "widgets")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "1. Widgets\n   https://example.com/w (file)\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
