// Package search validates a search request and runs it in exact, fuzzy
// or AI mode.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/batch"
	"github.com/yuval-kahan/Bookmarks-Search/internal/bookmarks"
	"github.com/yuval-kahan/Bookmarks-Search/internal/deepsearch"
	"github.com/yuval-kahan/Bookmarks-Search/internal/fetcher"
	"github.com/yuval-kahan/Bookmarks-Search/internal/history"
	"github.com/yuval-kahan/Bookmarks-Search/internal/llm"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/prompt"
	"github.com/yuval-kahan/Bookmarks-Search/internal/scope"
	"github.com/yuval-kahan/Bookmarks-Search/internal/settings"
)

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = eris.New("Please enter a search term")
	// ErrNoProvider is returned for an AI search with no usable backend.
	ErrNoProvider = eris.New("No AI provider configured")
	// ErrInvalidMode is returned for an unknown search mode.
	ErrInvalidMode = eris.New("search: invalid mode")
)

// Stage identifies which part of a search a progress update belongs to.
type Stage string

const (
	StageEnrich Stage = "enrich"
	StageBatch  Stage = "batch"
)

// Update is an overall progress report. Percent covers the whole search:
// enrichment takes 0-50 and batches the rest when deep search runs.
type Update struct {
	Stage   Stage             `json:"stage"`
	Percent int               `json:"percent"`
	Batch   *model.Progress   `json:"batch,omitempty"`
	Enrich  *deepsearch.Event `json:"enrich,omitempty"`
}

// Request is one search.
type Request struct {
	Query string
	Mode  model.SearchMode
	// Scope restricts the bookmarks searched; nil searches all of them.
	Scope *scope.Selection
	// Deep forces page enrichment on; otherwise the saved setting applies.
	Deep bool
	// Raw sends only the list and the query, without instructions.
	Raw bool
	// Provider overrides the saved provider selection.
	Provider *model.ProviderSelection
	Progress func(Update)
}

// Source supplies the bookmarks to search.
type Source interface {
	Items() []model.Item
}

// Service runs searches.
type Service struct {
	source   Source
	settings *settings.Settings
	llm      llm.Completer
	history  *history.Log
	fetch    ConverterFunc
	cache    deepsearch.Cache

	fallback    model.ProviderSelection
	fallbackKey string

	runner batch.Runner
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every search in h.
func WithHistory(h *history.Log) Option {
	return func(s *Service) {
		s.history = h
	}
}

// ConverterFunc returns the page fetcher for the current deep-search
// settings. It is called once per deep search.
type ConverterFunc func(ds model.DeepSearchSettings) fetcher.Converter

// WithEnrichment enables deep search through f, backed by c.
func WithEnrichment(f fetcher.Converter, c deepsearch.Cache) Option {
	return WithConverterFunc(func(model.DeepSearchSettings) fetcher.Converter { return f }, c)
}

// WithConverterFunc enables deep search with a fetcher chosen per search,
// so saved page-size and format changes apply without a restart.
func WithConverterFunc(fn ConverterFunc, c deepsearch.Cache) Option {
	return func(s *Service) {
		s.fetch = fn
		s.cache = c
	}
}

// WithDefaultProvider is used when no provider selection has been saved.
func WithDefaultProvider(sel model.ProviderSelection, apiKey string) Option {
	return func(s *Service) {
		s.fallback = sel
		s.fallbackKey = apiKey
	}
}

// New creates a Service.
func New(src Source, st *settings.Settings, c llm.Completer, opts ...Option) *Service {
	s := &Service{source: src, settings: st, llm: c}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Cancel aborts the running AI search. It reports whether one was running.
func (s *Service) Cancel() bool {
	return s.runner.Cancel()
}

// Search validates req and runs it. Validation errors are returned before
// any network activity. A cancelled AI search returns its partial results.
func (s *Service) Search(ctx context.Context, req Request) (*model.Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	mode := req.Mode
	if mode == "" {
		mode = model.SearchModeExact
	}
	if !mode.Valid() {
		return nil, eris.Wrapf(ErrInvalidMode, "search: mode %q", req.Mode)
	}
	sel := scope.Everything()
	if req.Scope != nil {
		sel = *req.Scope
	}
	items, err := scope.Apply(s.source.Items(), sel)
	if err != nil {
		return nil, err
	}

	res := &model.Result{Query: query, Mode: mode}
	switch mode {
	case model.SearchModeExact:
		res.Items = bookmarks.Exact(items, query)
	case model.SearchModeFuzzy:
		res.Items = bookmarks.Fuzzy(items, query)
	case model.SearchModeAI:
		if err := s.searchAI(ctx, req, query, items, res); err != nil {
			return nil, err
		}
	}

	s.record(ctx, res)
	return res, nil
}

func (s *Service) searchAI(ctx context.Context, req Request, query string, items []model.Item, res *model.Result) error {
	opts := prompt.DefaultOptions()
	opts.IncludeInstructions = !req.Raw
	tpl, err := s.settings.Prompt(ctx)
	warnSettings("customPrompt", err)
	if tpl != "" && !req.Raw {
		if err := prompt.ValidateTemplate(tpl); err != nil {
			return err
		}
		opts.Template = tpl
	}
	fields, err := s.settings.Fields(ctx)
	warnSettings("bookmarkFields", err)
	opts.Fields = fields

	provider, err := s.resolveProvider(ctx, req.Provider)
	if err != nil {
		return err
	}

	bs, err := s.settings.Batch(ctx)
	warnSettings("batchSettings", err)
	ds, err := s.settings.DeepSearch(ctx)
	warnSettings("deepSearchSettings", err)
	var conv fetcher.Converter
	if (req.Deep || ds.Enabled) && s.fetch != nil {
		conv = s.fetch(ds)
	}
	deep := conv != nil

	runCtx, done := s.runner.Start(ctx)
	defer done()

	start := time.Now()
	var enrichStats *model.EnrichStats
	if deep {
		var st deepsearch.Stats
		items, st = s.enrich(runCtx, conv, items, ds, req.Progress)
		enrichStats = &model.EnrichStats{Pages: st.Pages, Cached: st.Cached, Downloaded: st.Downloaded, Failed: st.Failed}
	}

	cfg := batch.Config{Enabled: bs.Enabled, BatchSize: bs.BatchSize, MaxBytes: bs.MaxBytes, Prompt: opts}
	if deep && bs.DeepBatchSize > 0 {
		cfg.BatchSize = bs.DeepBatchSize
	}

	orch := batch.New(s.llm, batch.WithProgress(func(p model.Progress) {
		if req.Progress == nil {
			return
		}
		pct := p.Percent()
		if deep {
			pct = 50 + (p.Current*100+p.Total)/(2*p.Total)
		}
		req.Progress(Update{Stage: StageBatch, Percent: pct, Batch: &p})
	}))

	out, err := orch.Search(runCtx, items, query, provider, cfg)
	if err != nil {
		return err
	}

	zap.L().Info("search: ai search finished",
		zap.String("provider", providerName(provider)),
		zap.Int("items", len(items)),
		zap.Int("results", len(out.Items)),
		zap.Bool("deep", deep),
		zap.Duration("elapsed", time.Since(start)),
	)

	res.Items = out.Items
	res.Diagnostics = &out.Diagnostics
	res.Diagnostics.Enrichment = enrichStats
	return nil
}

func (s *Service) enrich(ctx context.Context, conv fetcher.Converter, items []model.Item, ds model.DeepSearchSettings, progress func(Update)) ([]model.Item, deepsearch.Stats) {
	opts := []deepsearch.Option{deepsearch.WithConcurrency(ds.BatchSize)}
	if s.cache != nil {
		opts = append(opts, deepsearch.WithCache(s.cache))
	}
	if progress != nil {
		opts = append(opts, deepsearch.WithEvents(func(ev deepsearch.Event) {
			progress(Update{Stage: StageEnrich, Percent: ev.Percent(), Enrich: &ev})
		}))
	}
	return deepsearch.New(conv, opts...).Enrich(ctx, items)
}

// resolveProvider picks the hosted provider when both a provider and a key
// are known, otherwise Ollama when a URL or model is set.
func (s *Service) resolveProvider(ctx context.Context, override *model.ProviderSelection) (llm.ProviderConfig, error) {
	var sel model.ProviderSelection
	if override != nil {
		sel = *override
	} else {
		saved, err := s.settings.Provider(ctx)
		warnSettings("aiProvider", err)
		sel = saved
		if sel == (model.ProviderSelection{}) {
			sel = s.fallback
		}
	}

	if sel.Provider != "" {
		key, err := s.settings.APIKey(ctx, sel.Provider)
		warnSettings("apiKeys", err)
		if key == "" && sel.Provider == s.fallback.Provider {
			key = s.fallbackKey
		}
		if key != "" {
			return llm.ProviderConfig{Kind: llm.KindHosted, Provider: sel.Provider, Model: sel.Model, APIKey: key}, nil
		}
	}
	if sel.OllamaURL != "" || sel.OllamaModel != "" {
		return llm.ProviderConfig{Kind: llm.KindLocal, BaseURL: sel.OllamaURL, Model: sel.OllamaModel}, nil
	}
	return llm.ProviderConfig{}, ErrNoProvider
}

func (s *Service) record(ctx context.Context, res *model.Result) {
	if err := s.settings.TouchLastSearch(ctx); err != nil {
		zap.L().Warn("search: save last search time", zap.Error(err))
	}
	if s.history == nil {
		return
	}
	if _, err := s.history.Add(ctx, res.Query, res.Mode, res.Items); err != nil {
		zap.L().Warn("search: save history", zap.Error(err))
	}
}

func warnSettings(key string, err error) {
	if err != nil {
		zap.L().Warn("search: read settings, using defaults", zap.String("key", key), zap.Error(err))
	}
}

func providerName(cfg llm.ProviderConfig) string {
	if cfg.Kind == llm.KindLocal {
		return "ollama"
	}
	return cfg.Provider
}
