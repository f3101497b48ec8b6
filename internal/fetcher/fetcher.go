// Package fetcher retrieves bookmarked pages and reduces them to text for
// prompt enrichment. Every failure surfaces as "no content", never as an
// error, because enrichment is best-effort.
package fetcher

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Converter turns a URL into page text. ok is false when nothing usable
// could be retrieved.
type Converter interface {
	Convert(ctx context.Context, url string) (text string, ok bool)
}

// Source is one way of retrieving page text.
type Source interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Chain tries sources in order and returns the first non-empty text.
type Chain struct {
	sources []Source
}

// NewChain creates a Chain. Sources are tried in the given order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Convert implements Converter.
func (c *Chain) Convert(ctx context.Context, url string) (string, bool) {
	for _, s := range c.sources {
		if ctx.Err() != nil {
			return "", false
		}
		text, err := s.Fetch(ctx, url)
		if err != nil {
			zap.L().Debug("fetcher: source failed, trying next",
				zap.String("source", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true
		}
	}
	return "", false
}
