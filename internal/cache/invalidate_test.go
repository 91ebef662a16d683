package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://example.com/", htmlHeader(""), []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("dir should be recreated: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(entries))
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	if err := c.Save(ctx, "https://example.com/old", htmlHeader(""), []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx, "https://example.com/new", htmlHeader(""), []byte("new")); err != nil {
		t.Fatal(err)
	}
	// backdate SavedAt on the old entry
	metaPath := c.metaPath(c.key("https://example.com/old"))
	meta, err := c.LoadMeta(ctx, "https://example.com/old")
	if err != nil {
		t.Fatal(err)
	}
	meta.SavedAt = time.Now().Add(-48 * time.Hour).UTC()
	b, _ := json.Marshal(meta)
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		t.Fatal(err)
	}
	// malformed meta files are left alone
	if err := os.WriteFile(filepath.Join(dir, "junk.meta.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(ctx, "https://example.com/old"); err == nil {
		t.Fatalf("expected old body removed")
	}
	if _, err := c.LoadBody(ctx, "https://example.com/new"); err != nil {
		t.Fatalf("expected new entry kept: %v", err)
	}
	if n, _ := PurgeHTTPCacheByAge(dir, 0); n != 0 {
		t.Fatalf("zero max age must be a no-op")
	}
}

func TestPurgeLLMCacheByAge(t *testing.T) {
	dir := t.TempDir()
	c := &LLMCache{Dir: dir}
	ctx := context.Background()
	oldKey, newKey := KeyFrom("m", "old"), KeyFrom("m", "new")
	for _, k := range []string{oldKey, newKey} {
		if err := c.Save(ctx, k, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(c.pathFor(oldKey), past, past); err != nil {
		t.Fatal(err)
	}
	removed, err := PurgeLLMCacheByAge(dir, time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok, _ := c.Get(ctx, oldKey); ok {
		t.Fatalf("expected old entry gone")
	}
	if _, ok, _ := c.Get(ctx, newKey); !ok {
		t.Fatalf("expected recent entry kept")
	}
}
