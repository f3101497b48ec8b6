// Package cache keeps extracted page content keyed by URL, bounded by age and
// by aggregate size.
package cache

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/store"
)

// Key is the store key holding the whole cache blob.
const Key = "markdownCache"

const (
	DefaultMaxAge   = 24 * time.Hour
	DefaultMaxBytes = 50 * 1024 * 1024
)

// Entry is one cached page. Timestamp is epoch milliseconds.
type Entry struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Size      int    `json:"size"`
	URL       string `json:"url"`
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries   int     `json:"totalEntries"`
	TotalSize      int     `json:"totalSize"`
	TotalSizeMB    float64 `json:"totalSizeMB"`
	ExpiredEntries int     `json:"expiredEntries"`
	ValidEntries   int     `json:"validEntries"`
}

// Cache is a bounded, expiring URL → content map persisted in a store.Store.
// Storage failures never reach the caller: reads degrade to a miss and
// writes are dropped after one retry. A write is skipped when the current
// blob cannot be read, so a transient read error never replaces it.
type Cache struct {
	store    store.Store
	maxAge   time.Duration
	maxBytes int
	now      func() time.Time

	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge sets how long an entry stays valid.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithMaxBytes sets the aggregate size ceiling.
func WithMaxBytes(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache backed by s.
func New(s store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:    s,
		maxAge:   DefaultMaxAge,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached content for url. Expired entries are deleted and
// reported absent.
func (c *Cache) Get(ctx context.Context, url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(ctx)
	if err != nil {
		return "", false
	}
	e, ok := entries[url]
	if !ok {
		return "", false
	}
	if c.expired(e) {
		delete(entries, url)
		c.persist(ctx, entries)
		return "", false
	}
	return e.Content, true
}

// Has reports whether url has a valid entry.
func (c *Cache) Has(ctx context.Context, url string) bool {
	_, ok := c.Get(ctx, url)
	return ok
}

// GetMany returns the valid cached content for each url that has one.
func (c *Cache) GetMany(ctx context.Context, urls []string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(urls))
	entries, err := c.load(ctx)
	if err != nil {
		return out
	}
	dirty := false
	for _, u := range urls {
		e, ok := entries[u]
		if !ok {
			continue
		}
		if c.expired(e) {
			delete(entries, u)
			dirty = true
			continue
		}
		out[u] = e.Content
	}
	if dirty {
		c.persist(ctx, entries)
	}
	return out
}

// Set stores content for url, evicting oldest entries while the aggregate
// size is over the ceiling.
func (c *Cache) Set(ctx context.Context, url, content string) {
	c.SetMany(ctx, map[string]string{url: content})
}

// SetMany stores several entries with one write.
func (c *Cache) SetMany(ctx context.Context, pages map[string]string) {
	if len(pages) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	apply := func(entries map[string]Entry) {
		for u, content := range pages {
			entries[u] = Entry{Content: content, Timestamp: ts, Size: len(content), URL: u}
		}
		c.trim(entries)
	}

	entries, err := c.load(ctx)
	if err != nil {
		zap.L().Warn("cache: write skipped, current entries unreadable", zap.Int("pages", len(pages)))
		return
	}
	apply(entries)
	err = c.write(ctx, entries)
	if err == nil {
		return
	}

	zap.L().Warn("cache: write failed, sweeping expired entries and retrying",
		zap.Int("pages", len(pages)),
		zap.Error(err),
	)
	entries, err = c.load(ctx)
	if err != nil {
		zap.L().Warn("cache: write dropped", zap.Int("pages", len(pages)))
		return
	}
	c.dropExpired(entries)
	apply(entries)
	if err := c.write(ctx, entries); err != nil {
		zap.L().Warn("cache: write dropped", zap.Int("pages", len(pages)), zap.Error(err))
	}
}

// Remove deletes the entry for url.
func (c *Cache) Remove(ctx context.Context, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(ctx)
	if err != nil {
		return
	}
	if _, ok := entries[url]; !ok {
		return
	}
	delete(entries, url)
	c.persist(ctx, entries)
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, Key); err != nil {
		zap.L().Warn("cache: clear failed", zap.Error(err))
	}
}

// ClearExpired removes every expired entry and returns how many were removed.
func (c *Cache) ClearExpired(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(ctx)
	if err != nil {
		return 0
	}
	n := c.dropExpired(entries)
	if n > 0 {
		c.persist(ctx, entries)
	}
	return n
}

// Stats reports entry counts and sizes.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var st Stats
	entries, _ := c.load(ctx)
	for _, e := range entries {
		st.TotalEntries++
		st.TotalSize += e.Size
		if c.expired(e) {
			st.ExpiredEntries++
		} else {
			st.ValidEntries++
		}
	}
	st.TotalSizeMB = math.Round(float64(st.TotalSize)/(1024*1024)*100) / 100
	return st
}

// expired treats a missing timestamp as expired.
func (c *Cache) expired(e Entry) bool {
	if e.Timestamp == 0 {
		return true
	}
	age := c.now().UnixMilli() - e.Timestamp
	return age > c.maxAge.Milliseconds()
}

func (c *Cache) dropExpired(entries map[string]Entry) int {
	n := 0
	for u, e := range entries {
		if c.expired(e) {
			delete(entries, u)
			n++
		}
	}
	return n
}

// trim evicts oldest-first until the total size is within the ceiling.
func (c *Cache) trim(entries map[string]Entry) {
	total := 0
	for _, e := range entries {
		total += e.Size
	}
	if total <= c.maxBytes {
		return
	}

	ordered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].URL < ordered[j].URL
	})

	for _, e := range ordered {
		if total <= c.maxBytes {
			break
		}
		delete(entries, e.URL)
		total -= e.Size
		zap.L().Debug("cache: evicted", zap.String("url", e.URL), zap.Int("size", e.Size))
	}
}

// load reads the current blob. A read error is returned and logged; callers
// treat it as a miss and must not write. A corrupt blob decodes as empty.
func (c *Cache) load(ctx context.Context) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	raw, err := c.store.Get(ctx, Key)
	if err != nil {
		zap.L().Warn("cache: read failed", zap.Error(err))
		return nil, err
	}
	if raw == nil {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		zap.L().Warn("cache: corrupt blob discarded", zap.Error(err))
		return make(map[string]Entry), nil
	}
	for u, e := range entries {
		if e.URL == "" {
			e.URL = u
			entries[u] = e
		}
	}
	return entries, nil
}

func (c *Cache) write(ctx context.Context, entries map[string]Entry) error {
	return store.SetJSON(ctx, c.store, Key, entries)
}

func (c *Cache) persist(ctx context.Context, entries map[string]Entry) {
	if err := c.write(ctx, entries); err != nil {
		zap.L().Warn("cache: write failed", zap.Error(err))
	}
}
