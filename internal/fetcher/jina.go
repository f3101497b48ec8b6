package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/pkg/jina"
)

// JinaSource fetches pages through the Jina Reader API. It is used after
// the local fetch fails, e.g. for script-rendered pages. The reader applies
// the size cap and output format.
type JinaSource struct {
	reader jina.Reader
}

// NewJinaSource wraps a Jina reader.
func NewJinaSource(reader jina.Reader) *JinaSource {
	return &JinaSource{reader: reader}
}

// NewJinaReader builds a reader whose format and size cap match the local
// HTTP source, so both sources yield the same kind of text.
func NewJinaReader(apiKey, baseURL string, format Format, maxBytes int) jina.Reader {
	jf := jina.FormatText
	if format == FormatMarkdown {
		jf = jina.FormatMarkdown
	}
	return jina.NewReader(apiKey,
		jina.WithBaseURL(baseURL),
		jina.WithFormat(jf),
		jina.WithMaxBytes(maxBytes),
	)
}

func (j *JinaSource) Name() string { return "jina" }

func (j *JinaSource) Fetch(ctx context.Context, url string) (string, error) {
	page, err := j.reader.Read(ctx, url)
	if err != nil {
		return "", err
	}
	if page.Truncated {
		zap.L().Debug("fetcher: jina content truncated", zap.String("url", url))
	}
	return page.Content, nil
}
