// Package history keeps the capped log of past searches.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/store"
)

const (
	// Key is the store key holding the log.
	Key = "searchHistory"
	// DefaultLimit is the number of records kept.
	DefaultLimit = 100
)

// ErrNotFound is returned when deleting an unknown record.
var ErrNotFound = eris.New("history: record not found")

// Log is the search history, newest record first.
type Log struct {
	store store.Store
	limit int
	now   func() time.Time

	mu sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithLimit sets how many records are kept.
func WithLimit(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New creates a Log backed by s.
func New(s store.Store, opts ...Option) *Log {
	l := &Log{store: s, limit: DefaultLimit, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Add records a search. The oldest records beyond the limit are dropped.
func (l *Log) Add(ctx context.Context, query string, mode model.SearchMode, results []model.Item) (model.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return model.HistoryRecord{}, err
	}

	rec := model.HistoryRecord{
		ID:        uuid.NewString(),
		Query:     query,
		Mode:      mode,
		Results:   stripContent(results),
		Timestamp: l.now().UTC(),
	}
	records = append([]model.HistoryRecord{rec}, records...)
	if len(records) > l.limit {
		records = records[:l.limit]
	}
	if err := store.SetJSON(ctx, l.store, Key, records); err != nil {
		return model.HistoryRecord{}, eris.Wrap(err, "history: save")
	}
	return rec, nil
}

// List returns all records, newest first.
func (l *Log) List(ctx context.Context) ([]model.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Delete removes one record.
func (l *Log) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.ID == id {
			records = append(records[:i], records[i+1:]...)
			return eris.Wrap(store.SetJSON(ctx, l.store, Key, records), "history: save")
		}
	}
	return eris.Wrapf(ErrNotFound, "history: id %s", id)
}

// Clear removes every record.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return eris.Wrap(l.store.Delete(ctx, Key), "history: clear")
}

func (l *Log) load(ctx context.Context) ([]model.HistoryRecord, error) {
	records := []model.HistoryRecord{}
	if _, err := store.GetJSON(ctx, l.store, Key, &records); err != nil {
		return nil, eris.Wrap(err, "history: load")
	}
	return records, nil
}

// Page text is not worth keeping in the log.
func stripContent(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		it.Content = ""
		out[i] = it
	}
	return out
}
