package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache is the on-disk document cache: one file per canonical zone
// identifier, addressable by that identifier alone. Entries below the
// minimum viable size are treated as invalid and re-fetched; the check
// is a plain stat so re-entrant reads need no lock.
type Cache struct {
	baseDir  string
	minBytes int64
}

// DefaultMinViableBytes is the size below which a cached document is
// considered a truncated or error-page write rather than a real report.
const DefaultMinViableBytes = 1000

// NewCache creates the cache directory if needed.
func NewCache(baseDir string, minBytes int64) (*Cache, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if minBytes <= 0 {
		minBytes = DefaultMinViableBytes
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{baseDir: baseDir, minBytes: minBytes}, nil
}

// Path returns where the document for a canonical identifier lives,
// whether or not it exists yet.
func (c *Cache) Path(zone string) string {
	return filepath.Join(c.baseDir, zone+".pdf")
}

// Get returns the cached document bytes and path when a viable entry
// exists.
func (c *Cache) Get(zone string) ([]byte, string, bool) {
	path := c.Path(zone)
	info, err := os.Stat(path)
	if err != nil || info.Size() < c.minBytes {
		return nil, "", false
	}
	data, err := os.ReadFile(path)
	if err != nil || int64(len(data)) < c.minBytes {
		return nil, "", false
	}
	return data, path, true
}

// Put persists fetched bytes under the canonical identifier and returns
// the path.
func (c *Cache) Put(zone string, data []byte) (string, error) {
	path := c.Path(zone)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write cache entry %s: %w", zone, err)
	}
	return path, nil
}
