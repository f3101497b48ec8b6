package llm

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/pkg/anthropic"
	"github.com/yuval-kahan/Bookmarks-Search/pkg/gemini"
)

// ModelField describes what the model setting means for a provider.
type ModelField string

const (
	ModelFieldName       ModelField = "model"
	ModelFieldEndpoint   ModelField = "endpoint"
	ModelFieldAccountID  ModelField = "account_id"
	ModelFieldDeployment ModelField = "deployment"
)

// HTTPSpec is the (url, headers, body, response path) tuple of a plain
// REST provider.
type HTTPSpec struct {
	BaseURL      string
	URL          func(base string, cfg ProviderConfig) (string, error)
	Headers      func(cfg ProviderConfig) map[string]string
	Body         func(prompt string, cfg ProviderConfig) any
	ResponsePath string
}

// SDKFunc completes a prompt through a vendor SDK.
type SDKFunc func(ctx context.Context, g *Gateway, prompt string, cfg ProviderConfig) (string, error)

// Provider is one entry of the lookup table. Exactly one of HTTP or SDK is set.
type Provider struct {
	ID           string
	Name         string
	DefaultModel string
	ModelField   ModelField
	HTTP         *HTTPSpec
	SDK          SDKFunc
}

func (p *Provider) complete(ctx context.Context, g *Gateway, prompt string, cfg ProviderConfig) (string, error) {
	if p.SDK != nil {
		return p.SDK(ctx, g, prompt, cfg)
	}
	if p.HTTP == nil {
		return "", eris.Errorf("llm: %s: provider has no transport", p.ID)
	}
	return g.completeHTTP(ctx, p, prompt, cfg)
}

const openAIPath = "choices.0.message.content"

func fixedPath(suffix string) func(string, ProviderConfig) (string, error) {
	return func(base string, _ ProviderConfig) (string, error) {
		return base + suffix, nil
	}
}

func bearer(cfg ProviderConfig) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.APIKey}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

func chat(prompt string, cfg ProviderConfig) any {
	return chatBody{
		Model:    cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
}

// openAICompatible builds the common chat-completions provider.
func openAICompatible(id, name, base, path, model string) *Provider {
	return &Provider{
		ID:           id,
		Name:         name,
		DefaultModel: model,
		ModelField:   ModelFieldName,
		HTTP: &HTTPSpec{
			BaseURL:      base,
			URL:          fixedPath(path),
			Headers:      bearer,
			Body:         chat,
			ResponsePath: openAIPath,
		},
	}
}

func builtinProviders() []*Provider {
	openai := openAICompatible("openai", "OpenAI", "https://api.openai.com", "/v1/chat/completions", "gpt-3.5-turbo")
	openai.HTTP.Body = func(prompt string, cfg ProviderConfig) any {
		t := 0.3
		b := chat(prompt, cfg).(chatBody)
		b.Temperature = &t
		return b
	}

	return []*Provider{
		openai,
		{
			ID:           "anthropic",
			Name:         "Anthropic (Claude)",
			DefaultModel: "claude-3-haiku-20240307",
			ModelField:   ModelFieldName,
			SDK:          completeAnthropic,
		},
		{
			ID:           "google",
			Name:         "Google (Gemini)",
			DefaultModel: gemini.DefaultModel,
			ModelField:   ModelFieldName,
			SDK:          completeGemini,
		},
		{
			ID:           "cohere",
			Name:         "Cohere",
			DefaultModel: "command",
			ModelField:   ModelFieldName,
			HTTP: &HTTPSpec{
				BaseURL: "https://api.cohere.ai",
				URL:     fixedPath("/v1/generate"),
				Headers: bearer,
				Body: func(prompt string, cfg ProviderConfig) any {
					return map[string]any{"model": cfg.Model, "prompt": prompt, "max_tokens": 300}
				},
				ResponsePath: "generations.0.text",
			},
		},
		openAICompatible("mistral", "Mistral AI", "https://api.mistral.ai", "/v1/chat/completions", "mistral-tiny"),
		openAICompatible("groq", "Groq", "https://api.groq.com", "/openai/v1/chat/completions", "mixtral-8x7b-32768"),
		openAICompatible("perplexity", "Perplexity", "https://api.perplexity.ai", "/chat/completions", "llama-3.1-sonar-small-128k-online"),
		openAICompatible("xai", "xAI (Grok)", "https://api.x.ai", "/v1/chat/completions", "grok-beta"),
		openAICompatible("together", "Together AI", "https://api.together.xyz", "/v1/chat/completions", "mistralai/Mixtral-8x7B-Instruct-v0.1"),
		openAICompatible("deepseek", "DeepSeek", "https://api.deepseek.com", "/v1/chat/completions", "deepseek-chat"),
		openAICompatible("fireworks", "Fireworks AI", "https://api.fireworks.ai", "/inference/v1/chat/completions", "accounts/fireworks/models/llama-v3p1-8b-instruct"),
		openAICompatible("ai21", "AI21 Labs", "https://api.ai21.com", "/studio/v1/chat/completions", "jamba-instruct"),
		openAICompatible("anyscale", "Anyscale", "https://api.endpoints.anyscale.com", "/v1/chat/completions", "meta-llama/Llama-2-7b-chat-hf"),
		openAICompatible("openrouter", "OpenRouter", "https://openrouter.ai", "/api/v1/chat/completions", "meta-llama/llama-3.1-8b-instruct:free"),
		openAICompatible("novita", "Novita AI", "https://api.novita.ai", "/v3/openai/chat/completions", "meta-llama/llama-3.1-8b-instruct"),
		{
			ID:           "huggingface",
			Name:         "Hugging Face",
			DefaultModel: "mistralai/Mistral-7B-Instruct-v0.2",
			ModelField:   ModelFieldName,
			HTTP: &HTTPSpec{
				BaseURL: "https://api-inference.huggingface.co",
				URL: func(base string, cfg ProviderConfig) (string, error) {
					return base + "/models/" + cfg.Model, nil
				},
				Headers: bearer,
				Body: func(prompt string, _ ProviderConfig) any {
					return map[string]any{
						"inputs": prompt,
						"parameters": map[string]any{
							"max_new_tokens":   300,
							"return_full_text": false,
						},
					}
				},
				ResponsePath: "0.generated_text",
			},
		},
		{
			ID:         "azure",
			Name:       "Azure OpenAI",
			ModelField: ModelFieldEndpoint,
			HTTP: &HTTPSpec{
				URL: func(base string, cfg ProviderConfig) (string, error) {
					endpoint := cfg.Model
					if base != "" {
						endpoint = base
					}
					if endpoint == "" {
						return "", eris.New("llm: azure: deployment endpoint is required")
					}
					if _, err := url.ParseRequestURI(endpoint); err != nil {
						return "", eris.Wrap(err, "llm: azure: invalid endpoint")
					}
					return strings.TrimRight(endpoint, "/") + "/chat/completions?api-version=2024-02-01", nil
				},
				Headers: func(cfg ProviderConfig) map[string]string {
					return map[string]string{"api-key": cfg.APIKey}
				},
				Body: func(prompt string, _ ProviderConfig) any {
					return chatBody{Messages: []chatMessage{{Role: "user", Content: prompt}}}
				},
				ResponsePath: openAIPath,
			},
		},
		{
			ID:         "cloudflare",
			Name:       "Cloudflare Workers AI",
			ModelField: ModelFieldAccountID,
			HTTP: &HTTPSpec{
				BaseURL: "https://api.cloudflare.com",
				URL: func(base string, cfg ProviderConfig) (string, error) {
					if cfg.Model == "" {
						return "", eris.New("llm: cloudflare: account id is required")
					}
					return base + "/client/v4/accounts/" + url.PathEscape(cfg.Model) + "/ai/run/@cf/meta/llama-3.1-8b-instruct", nil
				},
				Headers: bearer,
				Body: func(prompt string, _ ProviderConfig) any {
					return map[string]any{"prompt": prompt}
				},
				ResponsePath: "result.response",
			},
		},
		{
			ID:           "lepton",
			Name:         "Lepton AI",
			DefaultModel: "llama2-7b",
			ModelField:   ModelFieldDeployment,
			HTTP: &HTTPSpec{
				URL: func(base string, cfg ProviderConfig) (string, error) {
					if base == "" {
						base = "https://" + cfg.Model + ".lepton.run"
					}
					return base + "/api/v1/chat/completions", nil
				},
				Headers:      bearer,
				Body:         chat,
				ResponsePath: openAIPath,
			},
		},
	}
}

func completeAnthropic(ctx context.Context, g *Gateway, prompt string, cfg ProviderConfig) (string, error) {
	opts := []anthropic.Option{anthropic.WithHTTPClient(g.http)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(cfg.APIKey, opts...)

	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.Model,
		MaxTokens: 1024,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		if code, body, ok := anthropic.APIStatus(err); ok {
			return "", &StatusError{Provider: "anthropic", Code: code, Body: body}
		}
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", ErrUnparseable
	}
	return strings.TrimSpace(resp.Text()), nil
}

func completeGemini(ctx context.Context, g *Gateway, prompt string, cfg ProviderConfig) (string, error) {
	opts := []gemini.Option{gemini.WithHTTPClient(g.http)}
	if cfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
	}
	client, err := gemini.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return "", err
	}

	text, err := client.Generate(ctx, cfg.Model, prompt)
	if err != nil {
		if code, body, ok := gemini.APIStatus(err); ok {
			return "", &StatusError{Provider: "google", Code: code, Body: body}
		}
		if eris.Is(err, gemini.ErrNoText) {
			return "", ErrUnparseable
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}
