package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and everything below it, then recreates it
// empty so later writers still find a valid cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge deletes HTTP entries whose SavedAt is older than maxAge
// and returns how many were removed. Unreadable or malformed meta files are
// skipped.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), ".meta.json") {
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var e HTTPEntry
		if json.Unmarshal(b, &e) != nil {
			return
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
	})
	return removed, err
}

// PurgeLLMCacheByAge deletes summary cache files not used within maxAge.
// LLMCache.Get refreshes mtime, so this is least-recently-used expiry.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		name := d.Name()
		if strings.HasSuffix(name, ".meta.json") || !strings.HasSuffix(name, ".json") {
			return
		}
		info, err := d.Info()
		if err != nil || now.Sub(info.ModTime().UTC()) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
	})
	return removed, err
}

// EnforceHTTPCacheLimits evicts least recently used HTTP entries until the
// total body size is at most maxBytes and at most maxEntries entries remain.
// A limit <= 0 is ignored.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxEntries int) (int, error) {
	if maxBytes <= 0 && maxEntries <= 0 {
		return 0, nil
	}
	type entry struct {
		base  string
		size  int64
		mtime time.Time
	}
	var entries []entry
	var total int64
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !strings.HasSuffix(d.Name(), ".body") {
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		entries = append(entries, entry{strings.TrimSuffix(path, ".body"), info.Size(), info.ModTime()})
		total += info.Size()
	})
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.Before(entries[j].mtime) })
	removed := 0
	for _, e := range entries {
		overBytes := maxBytes > 0 && total > maxBytes
		overCount := maxEntries > 0 && len(entries)-removed > maxEntries
		if !overBytes && !overCount {
			break
		}
		_ = os.Remove(e.base + ".body")
		_ = os.Remove(e.base + ".meta.json")
		total -= e.size
		removed++
	}
	return removed, nil
}

func walkFiles(dir string, fn func(path string, d fs.DirEntry)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			fn(path, d)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
