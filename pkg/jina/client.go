// Package jina reads bookmarked pages through the Jina AI Reader, which
// renders a page server-side and returns its main content as plain text or
// markdown. It is the fallback for pages that need a browser to render.
package jina

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Format is the content format requested from the reader.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

const (
	defaultBaseURL = "https://r.jina.ai"

	// DefaultMaxBytes caps the page body read from the reader.
	DefaultMaxBytes = 500 * 1024

	errSnippetBytes = 512
)

// ErrEmptyContent is returned when the reader found no page content.
var ErrEmptyContent = eris.New("jina: empty content")

// Page is one page rendered by the reader.
type Page struct {
	Title     string
	URL       string
	Content   string
	Truncated bool
}

// Reader fetches a page through Jina AI Reader.
type Reader interface {
	Read(ctx context.Context, pageURL string) (*Page, error)
}

// Option configures the reader.
type Option func(*httpReader)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(r *httpReader) {
		if url != "" {
			r.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *httpReader) {
		r.http = hc
	}
}

// WithFormat selects text or markdown output. Unknown values keep text.
func WithFormat(f Format) Option {
	return func(r *httpReader) {
		if f == FormatText || f == FormatMarkdown {
			r.format = f
		}
	}
}

// WithMaxBytes caps how much of the page body is read.
func WithMaxBytes(n int) Option {
	return func(r *httpReader) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

type httpReader struct {
	apiKey   string
	baseURL  string
	format   Format
	maxBytes int
	http     *http.Client
}

// NewReader creates a Jina AI Reader client. An empty apiKey uses the
// keyless, lower-rate tier.
func NewReader(apiKey string, opts ...Option) Reader {
	r := &httpReader{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		format:   FormatText,
		maxBytes: DefaultMaxBytes,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *httpReader) Read(ctx context.Context, pageURL string) (*Page, error) {
	reqURL := fmt.Sprintf("%s/%s", r.baseURL, pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Return-Format", string(r.format))
	req.Header.Set("X-Retain-Images", "none")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", pageURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errSnippetBytes))
		return nil, eris.Errorf("jina: %s: unexpected status %d: %s", pageURL, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(r.maxBytes)+1))
	if err != nil {
		return nil, eris.Wrapf(err, "jina: read body of %s", pageURL)
	}
	truncated := len(body) > r.maxBytes
	if truncated {
		body = cutAtRune(body, r.maxBytes)
	}

	page := parsePage(body)
	page.Truncated = truncated
	if page.URL == "" {
		page.URL = pageURL
	}
	if page.Content == "" {
		return nil, eris.Wrapf(ErrEmptyContent, "jina: %s", pageURL)
	}
	return page, nil
}

// cutAtRune shortens b to at most n bytes without splitting a UTF-8 rune.
func cutAtRune(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return b[:n]
}

// parsePage splits the reader's plain-text reply into its header lines
// ("Title:", "URL Source:", ...) and the content after the
// "... Content:" marker. A body without the marker is all content.
func parsePage(body []byte) *Page {
	page := &Page{}
	rest := body
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		trimmed := strings.TrimSpace(string(line))
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "Title:"):
			page.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:"))
		case strings.HasPrefix(trimmed, "URL Source:"):
			page.URL = strings.TrimSpace(strings.TrimPrefix(trimmed, "URL Source:"))
		case strings.HasPrefix(trimmed, "Published Time:"), strings.HasPrefix(trimmed, "Warning:"):
		case strings.HasSuffix(trimmed, "Content:"):
			page.Content = strings.TrimSpace(string(rest))
			return page
		default:
			return &Page{Content: strings.TrimSpace(string(body))}
		}
	}
	page.Content = strings.TrimSpace(string(body))
	return page
}
