package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yuval-kahan/Bookmarks-Search/internal/bookmarks"
	"github.com/yuval-kahan/Bookmarks-Search/internal/cache"
	"github.com/yuval-kahan/Bookmarks-Search/internal/fetcher"
	"github.com/yuval-kahan/Bookmarks-Search/internal/history"
	"github.com/yuval-kahan/Bookmarks-Search/internal/llm"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/search"
	"github.com/yuval-kahan/Bookmarks-Search/internal/settings"
	"github.com/yuval-kahan/Bookmarks-Search/internal/store"
)

// appEnv holds the wired components shared by the commands.
type appEnv struct {
	Store    store.Store
	Settings *settings.Settings
	Cache    *cache.Cache
	History  *history.Log
	Gateway  *llm.Gateway
	Library  *bookmarks.Library
	Search   *search.Service
	Swept    int // expired cache entries removed at startup
}

// Close releases the store and stops the bookmark watcher.
func (e *appEnv) Close() {
	if e.Library != nil {
		if err := e.Library.Close(); err != nil {
			zap.L().Warn("close bookmark watcher", zap.Error(err))
		}
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, eris.Wrap(err, "create data dir")
		}
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initBase opens the store and builds everything except the bookmark
// library and the search service. Expired cache entries are swept here.
func initBase(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	sets := settings.New(st,
		settings.WithBatchDefaults(model.BatchSettings{
			Enabled:       cfg.Batch.Enabled,
			BatchSize:     cfg.Batch.Size,
			DeepBatchSize: cfg.Batch.DeepSize,
			MaxBytes:      cfg.Batch.MaxBytes,
		}),
		settings.WithDeepSearchDefaults(model.DeepSearchSettings{
			Enabled:       cfg.DeepSearch.Enabled,
			BatchSize:     cfg.DeepSearch.Concurrency,
			CacheDuration: cfg.Cache.MaxAgeHours,
			MaxPageSize:   cfg.Fetch.MaxKB,
			UseMarkdown:   cfg.DeepSearch.Format == string(fetcher.FormatMarkdown),
		}),
	)

	ds, err := sets.DeepSearch(ctx)
	if err != nil {
		zap.L().Warn("read deep search settings, using defaults", zap.Error(err))
	}

	c := cache.New(st,
		cache.WithMaxAge(time.Duration(ds.CacheDuration)*time.Hour),
		cache.WithMaxBytes(cfg.Cache.MaxBytes()),
	)
	swept := c.ClearExpired(ctx)
	if swept > 0 {
		zap.L().Info("cleared expired cache entries", zap.Int("removed", swept))
	}

	gwOpts := []llm.Option{
		llm.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second}),
	}
	if cfg.LLM.ProvidersFile != "" {
		custom, err := llm.LoadProviders(cfg.LLM.ProvidersFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		gwOpts = append(gwOpts, llm.WithProviders(custom...))
		zap.L().Debug("loaded custom providers", zap.Int("count", len(custom)))
	}

	return &appEnv{
		Store:    st,
		Settings: sets,
		Cache:    c,
		History:  history.New(st, history.WithLimit(cfg.History.Limit)),
		Gateway:  llm.New(gwOpts...),
		Swept:    swept,
	}, nil
}

// initEnv builds the full search stack over the bookmarks file.
func initEnv(ctx context.Context) (*appEnv, error) {
	env, err := initBase(ctx)
	if err != nil {
		return nil, err
	}

	lib, err := bookmarks.Open(cfg.Bookmarks.File)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Library = lib

	fetchers := &fetcherSet{}
	env.Search = search.New(lib, env.Settings, env.Gateway,
		search.WithHistory(env.History),
		search.WithConverterFunc(fetchers.For, env.Cache),
		search.WithDefaultProvider(model.ProviderSelection{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			OllamaURL:   cfg.LLM.OllamaURL,
			OllamaModel: cfg.LLM.OllamaModel,
		}, cfg.LLM.APIKey),
	)

	zap.L().Debug("bookmarks loaded",
		zap.String("file", lib.Path()),
		zap.Int("items", len(lib.Items())),
	)
	return env, nil
}

// fetcherKey is the part of the deep-search settings a fetcher is built from.
type fetcherKey struct {
	format   fetcher.Format
	maxBytes int64
}

func fetcherKeyOf(ds model.DeepSearchSettings) fetcherKey {
	k := fetcherKey{format: fetcher.FormatText, maxBytes: int64(ds.MaxPageSize) * 1024}
	if ds.UseMarkdown || ds.PreMarkdown {
		k.format = fetcher.FormatMarkdown
	}
	return k
}

// fetcherSet rebuilds the page fetcher when the saved page size or format
// changes and reuses it otherwise, so per-host limiters keep their state.
type fetcherSet struct {
	mu   sync.Mutex
	key  fetcherKey
	conv fetcher.Converter
}

// For returns the fetcher for ds.
func (f *fetcherSet) For(ds model.DeepSearchSettings) fetcher.Converter {
	k := fetcherKeyOf(ds)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conv == nil || f.key != k {
		f.conv = newFetcher(k)
		f.key = k
		zap.L().Debug("fetcher built",
			zap.String("format", string(k.format)),
			zap.Int64("max_bytes", k.maxBytes),
		)
	}
	return f.conv
}

// newFetcher fetches pages directly and falls back to Jina Reader when a
// key is configured.
func newFetcher(k fetcherKey) fetcher.Converter {
	sources := []fetcher.Source{
		fetcher.NewHTTPSource(fetcher.HTTPOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout(),
			MaxBytes:    k.maxBytes,
			Format:      k.format,
			RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),
			Burst:       cfg.Fetch.Burst,
		}),
	}
	if cfg.Jina.Key != "" {
		reader := fetcher.NewJinaReader(cfg.Jina.Key, cfg.Jina.BaseURL, k.format, int(k.maxBytes))
		sources = append(sources, fetcher.NewJinaSource(reader))
	}
	return fetcher.NewChain(sources...)
}
