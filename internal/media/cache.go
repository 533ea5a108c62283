package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

const fetchTimeout = 30 * time.Second

// Cache stores remote media content addressed by source URL, so downloaded
// boxes render without network access. There is no expiry: entries live
// until Remove or Evict.
type Cache struct {
	dir        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCache opens (or creates) a media cache rooted at dir.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}, nil
}

// entryPath derives the cache file for a URL: content address by hash, with
// the original extension kept so renderers can sniff the type.
func (c *Cache) entryPath(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(hash[:8])
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 8 {
			name += ext
		}
	}
	return filepath.Join(c.dir, name)
}

// Add fetches a URL into the cache. Re-adding an existing entry refreshes
// it. The write goes through a temp file and rename, so a half-fetched body
// is never visible as a cache hit.
func (c *Cache) Add(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch media: unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".fetch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	dest := c.entryPath(rawURL)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("commit media entry: %w", err)
	}

	c.logger.Debug("cached media", "url", rawURL, "path", dest)
	return nil
}

// Has reports whether a URL is cached.
func (c *Cache) Has(rawURL string) bool {
	_, err := os.Stat(c.entryPath(rawURL))
	return err == nil
}

// Path returns the local file for a cached URL.
func (c *Cache) Path(rawURL string) (string, bool) {
	p := c.entryPath(rawURL)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Remove deletes a cached entry. Removing an absent entry is not an error.
func (c *Cache) Remove(rawURL string) error {
	err := os.Remove(c.entryPath(rawURL))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Evict removes a batch of entries, logging and continuing on failure.
// Eviction policy is the caller's concern; the cache itself never expires
// anything.
func (c *Cache) Evict(rawURLs []string) {
	for _, u := range rawURLs {
		if err := c.Remove(u); err != nil {
			c.logger.Warn("failed to evict media entry", "url", u, "error", err)
		}
	}
}
