package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuval-kahan/Bookmarks-Search/internal/store"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeClock, *store.MemoryStore) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := store.NewMemory()
	c := New(st, append([]Option{WithClock(clk.Now)}, opts...)...)
	return c, clk, st
}

func TestCache_SetGet(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "https://go.dev", "The Go programming language")
	got, ok := c.Get(ctx, "https://go.dev")
	require.True(t, ok)
	assert.Equal(t, "The Go programming language", got)

	_, ok = c.Get(ctx, "https://missing.example")
	assert.False(t, ok)
}

func TestCache_ExpiryBoundary(t *testing.T) {
	c, clk, _ := newTestCache(t, WithMaxAge(time.Hour))
	ctx := context.Background()

	c.Set(ctx, "u", "content")

	clk.Advance(time.Hour - time.Millisecond)
	_, ok := c.Get(ctx, "u")
	assert.True(t, ok, "entry should be valid just before max age")

	clk.Advance(2 * time.Millisecond)
	_, ok = c.Get(ctx, "u")
	assert.False(t, ok, "entry should be absent just after max age")

	// Expired read deletes the entry.
	assert.Equal(t, 0, c.Stats(ctx).TotalEntries)
}

func TestCache_MissingTimestampIsExpired(t *testing.T) {
	c, _, st := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, st, Key, map[string]Entry{
		"u": {Content: "x", Size: 1, URL: "u"},
	}))

	_, ok := c.Get(ctx, "u")
	assert.False(t, ok)
}

func TestCache_SizeCeilingEvictsOldestFirst(t *testing.T) {
	c, clk, _ := newTestCache(t, WithMaxBytes(25))
	ctx := context.Background()

	c.Set(ctx, "first", strings.Repeat("a", 10))
	clk.Advance(time.Second)
	c.Set(ctx, "second", strings.Repeat("b", 10))
	clk.Advance(time.Second)
	c.Set(ctx, "third", strings.Repeat("c", 10))

	_, ok := c.Get(ctx, "first")
	assert.False(t, ok, "oldest entry should be evicted")

	got, ok := c.Get(ctx, "third")
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("c", 10), got)

	_, ok = c.Get(ctx, "second")
	assert.True(t, ok)
	assert.LessOrEqual(t, c.Stats(ctx).TotalSize, 25)
}

func TestCache_OverwriteReplacesWholesale(t *testing.T) {
	c, clk, _ := newTestCache(t, WithMaxAge(time.Hour))
	ctx := context.Background()

	c.Set(ctx, "u", "old")
	clk.Advance(50 * time.Minute)
	c.Set(ctx, "u", "new")
	clk.Advance(50 * time.Minute)

	got, ok := c.Get(ctx, "u")
	require.True(t, ok, "overwrite refreshes the timestamp")
	assert.Equal(t, "new", got)
}

func TestCache_RemoveAndClear(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")

	c.Remove(ctx, "a")
	assert.False(t, c.Has(ctx, "a"))
	assert.True(t, c.Has(ctx, "b"))

	c.Remove(ctx, "never")

	c.Clear(ctx)
	assert.Equal(t, Stats{}, c.Stats(ctx))
}

func TestCache_ClearExpired(t *testing.T) {
	c, clk, _ := newTestCache(t, WithMaxAge(time.Hour))
	ctx := context.Background()

	c.Set(ctx, "old1", "x")
	c.Set(ctx, "old2", "y")
	clk.Advance(2 * time.Hour)
	c.Set(ctx, "fresh", "z")

	st := c.Stats(ctx)
	assert.Equal(t, 3, st.TotalEntries)
	assert.Equal(t, 2, st.ExpiredEntries)
	assert.Equal(t, 1, st.ValidEntries)

	assert.Equal(t, 2, c.ClearExpired(ctx))
	assert.Equal(t, 0, c.ClearExpired(ctx))
	assert.True(t, c.Has(ctx, "fresh"))
}

func TestCache_GetManySetMany(t *testing.T) {
	c, clk, _ := newTestCache(t, WithMaxAge(time.Hour))
	ctx := context.Background()

	c.SetMany(ctx, map[string]string{"a": "1", "b": "2"})
	clk.Advance(2 * time.Hour)
	c.SetMany(ctx, map[string]string{"c": "3"})

	got := c.GetMany(ctx, []string{"a", "b", "c", "d"})
	assert.Equal(t, map[string]string{"c": "3"}, got)
	assert.Equal(t, 1, c.Stats(ctx).TotalEntries, "expired entries read by GetMany are purged")
}

func TestCache_WriteFailureRetriesAfterSweep(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := store.NewMemory(store.WithQuota(500))
	ctx := context.Background()

	stale := strings.Repeat("s", 200)
	require.NoError(t, store.SetJSON(ctx, st, Key, map[string]Entry{
		"http://old": {Content: stale, Timestamp: 1, Size: len(stale), URL: "http://old"},
	}))

	c := New(st, WithClock(clk.Now))
	c.Set(ctx, "http://new", strings.Repeat("n", 200))

	got, ok := c.Get(ctx, "http://new")
	require.True(t, ok, "retry after sweeping expired entries should succeed")
	assert.Len(t, got, 200)
	assert.False(t, c.Has(ctx, "http://old"))
}

func TestCache_WriteFailureTwiceIsDropped(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	st := store.NewMemory(store.WithQuota(100))
	c := New(st, WithClock(clk.Now))
	ctx := context.Background()

	assert.NotPanics(t, func() { c.Set(ctx, "u", strings.Repeat("x", 500)) })
	assert.False(t, c.Has(ctx, "u"))
}

type brokenStore struct{ store.Store }

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenStore) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenStore) Delete(context.Context, string) error        { return errors.New("disk gone") }

func TestCache_StorageErrorsAreNonFatal(t *testing.T) {
	c := New(brokenStore{})
	ctx := context.Background()

	c.Set(ctx, "u", "content")
	_, ok := c.Get(ctx, "u")
	assert.False(t, ok)
	assert.Equal(t, 0, c.ClearExpired(ctx))
	c.Clear(ctx)
	assert.Equal(t, Stats{}, c.Stats(ctx))
}

// flakyStore fails the next failGets reads.
type flakyStore struct {
	*store.MemoryStore
	failGets int
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("read timeout")
	}
	return f.MemoryStore.Get(ctx, key)
}

func TestCache_ReadFailureDuringWriteKeepsEntries(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := &flakyStore{MemoryStore: store.NewMemory()}
	c := New(st, WithClock(clk.Now))
	ctx := context.Background()

	c.Set(ctx, "http://a", "alpha")
	c.Set(ctx, "http://b", "beta")

	st.failGets = 1
	c.Set(ctx, "http://c", "gamma")

	got := c.GetMany(ctx, []string{"http://a", "http://b", "http://c"})
	assert.Equal(t, map[string]string{"http://a": "alpha", "http://b": "beta"}, got)
}

func TestCache_ReadFailureSkipsDeletes(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := &flakyStore{MemoryStore: store.NewMemory()}
	c := New(st, WithClock(clk.Now), WithMaxAge(time.Hour))
	ctx := context.Background()

	c.Set(ctx, "http://a", "alpha")
	clk.Advance(2 * time.Hour)

	st.failGets = 1
	assert.Equal(t, 0, c.ClearExpired(ctx))
	st.failGets = 1
	c.Remove(ctx, "http://a")

	assert.Equal(t, 1, c.Stats(ctx).TotalEntries)
}

func TestCache_CorruptBlobStartsEmpty(t *testing.T) {
	c, _, st := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, Key, []byte("{not json")))

	assert.False(t, c.Has(ctx, "http://a"))
	c.Set(ctx, "http://a", "alpha")
	got, ok := c.Get(ctx, "http://a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)
}

func TestCache_StatsMB(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "big", strings.Repeat("x", 1024*1024+512*1024))
	st := c.Stats(ctx)
	assert.Equal(t, 1, st.ValidEntries)
	assert.InDelta(t, 1.5, st.TotalSizeMB, 0.001)
}
