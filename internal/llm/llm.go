// Package llm sends a prompt to a local or hosted model and returns the
// text completion. Hosted providers are described by a lookup table.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/pkg/ollama"
)

// Kind selects the local or hosted path.
type Kind string

const (
	KindLocal  Kind = "local"
	KindHosted Kind = "hosted"
)

// VerifyTimeout bounds a provider verification probe.
const VerifyTimeout = 15 * time.Second

const verifyPrompt = "Say 'OK' if you can read this."

var (
	// ErrUnparseable is returned when a reply lacks the expected text field.
	ErrUnparseable = eris.New("llm: unable to parse response")
	// ErrUnknownProvider is returned for a provider id missing from the table.
	ErrUnknownProvider = eris.New("llm: unknown provider")
	// ErrMissingAPIKey is returned when a hosted provider has no key.
	ErrMissingAPIKey = eris.New("llm: api key is required")
)

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: %s: API error (%d): %s", e.Provider, e.Code, e.Body)
}

// ProviderConfig identifies the backend for one call. For KindLocal,
// BaseURL and Model address an Ollama server. For KindHosted, Provider and
// APIKey pick the table entry; a non-empty BaseURL overrides its host.
type ProviderConfig struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"-"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Completer is the single operation the batch orchestrator depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string, cfg ProviderConfig) (string, error)
}

// Gateway dispatches prompts to providers.
type Gateway struct {
	http *http.Client

	mu        sync.RWMutex
	providers map[string]*Provider
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the client used for every provider request.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) {
		g.http = hc
	}
}

// WithProviders registers extra providers, replacing built-ins with the same id.
func WithProviders(ps ...*Provider) Option {
	return func(g *Gateway) {
		for _, p := range ps {
			g.providers[p.ID] = p
		}
	}
}

// New creates a Gateway with the built-in provider table.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		http:      &http.Client{Timeout: 2 * time.Minute},
		providers: make(map[string]*Provider),
	}
	for _, p := range builtinProviders() {
		g.providers[p.ID] = p
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Register adds or replaces a provider.
func (g *Gateway) Register(p *Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[p.ID] = p
}

// Provider looks up a provider by id.
func (g *Gateway) Provider(id string) (*Provider, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.providers[id]
	return p, ok
}

// Providers returns all providers sorted by id.
func (g *Gateway) Providers() []*Provider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Provider, 0, len(g.providers))
	for _, p := range g.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Complete sends one request and returns the completion text. There is no
// retry. Non-2xx replies return *StatusError, missing fields ErrUnparseable,
// and cancellation the context error.
func (g *Gateway) Complete(ctx context.Context, prompt string, cfg ProviderConfig) (string, error) {
	if cfg.Kind == KindLocal {
		return g.completeLocal(ctx, prompt, cfg)
	}

	p, ok := g.Provider(cfg.Provider)
	if !ok {
		return "", eris.Wrapf(ErrUnknownProvider, "llm: provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return "", eris.Wrapf(ErrMissingAPIKey, "llm: provider %q", p.ID)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel
	}

	start := time.Now()
	text, err := p.complete(ctx, g, prompt, cfg)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}

	zap.L().Debug("llm: completion",
		zap.String("provider", p.ID),
		zap.String("model", cfg.Model),
		zap.Int("prompt_len", len(prompt)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

func (g *Gateway) completeLocal(ctx context.Context, prompt string, cfg ProviderConfig) (string, error) {
	client := ollama.NewClient(cfg.BaseURL, ollama.WithHTTPClient(g.http))
	resp, err := client.Generate(ctx, ollama.GenerateRequest{Model: cfg.Model, Prompt: prompt})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		var se *ollama.StatusError
		if eris.As(err, &se) {
			return "", &StatusError{Provider: "ollama", Code: se.Code, Body: se.Body}
		}
		if eris.Is(err, ollama.ErrMissingResponse) {
			return "", ErrUnparseable
		}
		return "", eris.Wrap(err, "llm: ollama")
	}
	return resp.Response, nil
}

// Verify sends a short probe to check that cfg works.
func (g *Gateway) Verify(ctx context.Context, cfg ProviderConfig) error {
	ctx, cancel := context.WithTimeout(ctx, VerifyTimeout)
	defer cancel()

	_, err := g.Complete(ctx, verifyPrompt, cfg)
	if eris.Is(err, context.DeadlineExceeded) {
		return eris.New("llm: verification timed out after 15 seconds")
	}
	return err
}

// ListLocalModels returns the models installed on an Ollama server.
func (g *Gateway) ListLocalModels(ctx context.Context, baseURL string) ([]ollama.ModelInfo, error) {
	client := ollama.NewClient(baseURL, ollama.WithHTTPClient(g.http))
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "llm: list local models")
	}
	return models, nil
}
