// Package deepsearch enriches bookmarks with the text of the pages they
// point to, reading from and filling the content cache.
package deepsearch

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yuval-kahan/Bookmarks-Search/internal/fetcher"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

// DefaultConcurrency is the number of pages fetched at once.
const DefaultConcurrency = 3

// Phase names a step of enrichment.
type Phase string

const (
	PhaseCheckingCache Phase = "checking_cache"
	PhaseFoundInCache  Phase = "found_in_cache"
	PhaseDownloading   Phase = "downloading"
	PhaseConverting    Phase = "converting"
	PhaseSavingCache   Phase = "saving_cache"
)

// Event reports enrichment progress. Processed counts pages that are done,
// whether from cache or downloaded.
type Event struct {
	Phase      Phase  `json:"phase"`
	URL        string `json:"url,omitempty"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	Cached     int    `json:"cached"`
	Downloaded int    `json:"downloaded"`
}

// Percent maps enrichment onto the first half of overall search progress.
func (e Event) Percent() int {
	if e.Total <= 0 {
		return 0
	}
	return (e.Processed*100 + e.Total) / (2 * e.Total)
}

// Stats summarises one enrichment run.
type Stats struct {
	Pages      int
	Cached     int
	Downloaded int
	Failed     int
}

// Cache is the subset of the content cache used here.
type Cache interface {
	GetMany(ctx context.Context, urls []string) map[string]string
	SetMany(ctx context.Context, pages map[string]string)
}

// Enricher attaches page content to items.
type Enricher struct {
	fetch       fetcher.Converter
	cache       Cache
	concurrency int
	onEvent     func(Event)
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithCache reads and fills c. Without it every page is downloaded.
func WithCache(c Cache) Option {
	return func(e *Enricher) {
		e.cache = c
	}
}

// WithConcurrency bounds parallel page fetches.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithEvents sets the progress callback. Calls are serialized.
func WithEvents(fn func(Event)) Option {
	return func(e *Enricher) {
		e.onEvent = fn
	}
}

// New creates an Enricher that downloads through f.
func New(f fetcher.Converter, opts ...Option) *Enricher {
	e := &Enricher{fetch: f, concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich returns a copy of items with Content set for every page that was
// cached or could be downloaded. Failures leave Content empty; they are
// never errors. Cancelling ctx stops further downloads.
func (e *Enricher) Enrich(ctx context.Context, items []model.Item) ([]model.Item, Stats) {
	urls := uniqueURLs(items)
	stats := Stats{Pages: len(urls)}
	p := &progress{total: len(urls), emit: e.onEvent}

	content := make(map[string]string, len(urls))
	missing := urls
	if e.cache != nil && len(urls) > 0 {
		p.send(Event{Phase: PhaseCheckingCache})
		cached := e.cache.GetMany(ctx, urls)
		missing = missing[:0:0]
		for _, u := range urls {
			if c, ok := cached[u]; ok {
				content[u] = c
				stats.Cached++
				p.done(PhaseFoundInCache, u, true, false)
				continue
			}
			missing = append(missing, u)
		}
	}

	var mu sync.Mutex
	fetched := make(map[string]string, len(missing))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, u := range missing {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			p.send(Event{Phase: PhaseDownloading, URL: u})
			text, ok := e.fetch.Convert(gCtx, u)
			p.done(PhaseConverting, u, false, ok)
			if !ok {
				return nil
			}
			mu.Lock()
			fetched[u] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Downloaded = len(fetched)
	stats.Failed = len(missing) - len(fetched)
	for u, text := range fetched {
		content[u] = text
	}

	if e.cache != nil && len(fetched) > 0 {
		p.send(Event{Phase: PhaseSavingCache})
		e.cache.SetMany(ctx, fetched)
	}

	zap.L().Info("deepsearch: enrichment complete",
		zap.Int("pages", stats.Pages),
		zap.Int("cached", stats.Cached),
		zap.Int("downloaded", stats.Downloaded),
		zap.Int("failed", stats.Failed),
	)

	out := make([]model.Item, len(items))
	for i, it := range items {
		if c, ok := content[it.URL]; ok {
			it.Content = c
		}
		out[i] = it
	}
	return out, stats
}

func uniqueURLs(items []model.Item) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		u := it.URL
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

type progress struct {
	mu         sync.Mutex
	emit       func(Event)
	total      int
	processed  int
	cached     int
	downloaded int
}

func (p *progress) send(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendLocked(ev)
}

func (p *progress) done(phase Phase, url string, cached, downloaded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	if cached {
		p.cached++
	}
	if downloaded {
		p.downloaded++
	}
	p.sendLocked(Event{Phase: phase, URL: url})
}

func (p *progress) sendLocked(ev Event) {
	if p.emit == nil {
		return
	}
	ev.Processed = p.processed
	ev.Total = p.total
	ev.Cached = p.cached
	ev.Downloaded = p.downloaded
	p.emit(ev)
}
