// Package pagecache implements the Version Cache: a disk cache of
// already-rendered remote page bodies keyed by (page id, version), used to
// avoid re-fetching and re-rendering a page's full block tree on every
// sync cycle when the remote side has not changed.
//
// A cache hit still requires the caller's freshly-fetched LastEditedTime to
// match what was cached; the cache is a rendering cache, not a substitute
// for asking the remote whether the page changed.
package pagecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/obsidian-notion-sync/wikisync/internal/remote"
)

// DefaultMaxAge is how long a cache entry is trusted before it is treated
// as a miss even if its timestamp still matches.
const DefaultMaxAge = 7 * 24 * time.Hour

// Entry is a cached rendering of one page version.
type Entry struct {
	Body           string
	LastEditedTime time.Time
}

type meta struct {
	LastEditedTime time.Time `json:"remote_modified"`
	CachedAt       time.Time `json:"cached_at"`
}

// Cache stores rendered page bodies under dir, one pair of files
// (<id>_v<version>.xhtml, <id>_v<version>.meta.json) per page version.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// New creates a Cache rooted at dir. dir is created on first Put if absent.
func New(dir string, maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{dir: dir, maxAge: maxAge}
}

func (c *Cache) paths(id remote.PageID, version int) (body, meta string) {
	base := fmt.Sprintf("%s_v%d", id, version)
	return filepath.Join(c.dir, base+".xhtml"), filepath.Join(c.dir, base+".meta.json")
}

// Get returns the cached body for (id, version) if present, fresh enough,
// and stamped with the same lastEditedTime the caller observed remotely.
// Any miss condition - missing files, corrupted metadata, stale timestamp,
// or expired age - returns ok == false with no error.
func (c *Cache) Get(id remote.PageID, version int, lastEditedTime time.Time) (entry Entry, ok bool, err error) {
	bodyPath, metaPath := c.paths(id, version)

	bodyBytes, err := os.ReadFile(bodyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("pagecache: read %s: %w", bodyPath, err)
	}

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("pagecache: read %s: %w", metaPath, err)
	}

	var m meta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return Entry{}, false, nil
	}

	if !m.LastEditedTime.Equal(lastEditedTime) {
		return Entry{}, false, nil
	}
	if time.Since(m.CachedAt) > c.maxAge {
		return Entry{}, false, nil
	}

	return Entry{Body: string(bodyBytes), LastEditedTime: m.LastEditedTime}, true, nil
}

// Put writes a rendered body to the cache. Failures to write are returned
// but are non-fatal to callers that treat the cache as best-effort.
func (c *Cache) Put(id remote.PageID, version int, lastEditedTime time.Time, body string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("pagecache: create %s: %w", c.dir, err)
	}

	bodyPath, metaPath := c.paths(id, version)
	if err := os.WriteFile(bodyPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("pagecache: write %s: %w", bodyPath, err)
	}

	m := meta{LastEditedTime: lastEditedTime, CachedAt: time.Now()}
	metaBytes, err := json.Marshal(m)
	if err != nil {
		os.Remove(bodyPath)
		return fmt.Errorf("pagecache: marshal metadata for %s: %w", id, err)
	}
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		os.Remove(bodyPath)
		return fmt.Errorf("pagecache: write %s: %w", metaPath, err)
	}

	return nil
}

// Invalidate removes every cached version of id.
func (c *Cache) Invalidate(id remote.PageID) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pagecache: read %s: %w", c.dir, err)
	}

	prefix := string(id) + "_v"
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("pagecache: remove %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// ClearAll removes every cached entry.
func (c *Cache) ClearAll() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pagecache: read %s: %w", c.dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".meta.json") {
			if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("pagecache: remove %s: %w", name, err)
			}
		}
	}
	return nil
}
