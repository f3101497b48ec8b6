package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

func (g *Gateway) completeHTTP(ctx context.Context, p *Provider, prompt string, cfg ProviderConfig) (string, error) {
	spec := p.HTTP

	base := spec.BaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	target, err := spec.URL(base, cfg)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(spec.Body(prompt, cfg))
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s: marshal request", p.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s: create request", p.ID)
	}
	req.Header.Set("Content-Type", "application/json")
	if spec.Headers != nil {
		for k, v := range spec.Headers(cfg) {
			req.Header.Set(k, v)
		}
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s: send request", p.ID)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s: read response", p.ID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Provider: p.ID, Code: resp.StatusCode, Body: string(data)}
	}

	text := gjson.GetBytes(data, spec.ResponsePath)
	if !text.Exists() {
		return "", eris.Wrapf(ErrUnparseable, "llm: %s: no %s in response", p.ID, spec.ResponsePath)
	}
	return strings.TrimSpace(text.String()), nil
}
