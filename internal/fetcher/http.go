package fetcher

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// Format selects how fetched HTML is reduced.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

const (
	DefaultMaxBytes = 500 * 1024
	DefaultTimeout  = 10 * time.Second
)

// HTTPOptions configures the HTTP source.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBytes    int64
	Format      Format
	RatePerHost rate.Limit
	Burst       int
}

// hostLimiter throttles one host. A 429 halves its rate down to a quarter
// of the initial rate; each success steps it back up by 20%.
type hostLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

func newHostLimiter(r rate.Limit, burst int) *hostLimiter {
	return &hostLimiter{limiter: rate.NewLimiter(r, burst), initial: r, current: r}
}

func (h *hostLimiter) Wait(ctx context.Context) error {
	return h.limiter.Wait(ctx)
}

func (h *hostLimiter) OnSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current >= h.initial {
		return
	}
	h.current = min(h.current*1.2, h.initial)
	h.limiter.SetLimit(h.current)
}

func (h *hostLimiter) OnRateLimit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = max(h.current*0.5, h.initial/4)
	h.limiter.SetLimit(h.current)
	zap.L().Warn("fetcher: reducing host rate after 429", zap.Float64("new_rate", float64(h.current)))
}

func (h *hostLimiter) Limit() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// HTTPSource fetches pages directly with net/http.
type HTTPSource struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*hostLimiter
}

// NewHTTPSource creates an HTTPSource, filling unset options with defaults.
func NewHTTPSource(opts HTTPOptions) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; BookmarksSearch/1.0)"
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*hostLimiter),
	}
}

func (s *HTTPSource) Name() string { return "local_http" }

// Convert fetches url on its own, without a fallback chain.
func (s *HTTPSource) Convert(ctx context.Context, url string) (string, bool) {
	return NewChain(s).Convert(ctx, url)
}

// Fetch GETs the page within the size and time budget. Bodies over the size
// cap are truncated, not rejected.
func (s *HTTPSource) Fetch(ctx context.Context, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", eris.Errorf("local_http: unsupported url %q", target)
	}

	lim := s.limiterFor(u.Host)
	if err := lim.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "local_http: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	lim.OnSuccess()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxBytes))
	if err != nil {
		return "", eris.Wrap(err, "local_http: read body")
	}

	contentType := resp.Header.Get("Content-Type")
	doc := decodeCharset(body, contentType)

	if strings.HasPrefix(contentType, "text/plain") {
		return strings.TrimSpace(doc), nil
	}
	if s.opts.Format == FormatMarkdown {
		return Markdown(doc, target), nil
	}
	return StripHTML(doc), nil
}

func (s *HTTPSource) limiterFor(host string) *hostLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = newHostLimiter(s.opts.RatePerHost, s.opts.Burst)
		s.limiters[host] = l
	}
	return l
}

// decodeCharset converts body to UTF-8 using the charset named in the
// Content-Type header. Unknown charsets fall through unchanged.
func decodeCharset(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		zap.L().Debug("fetcher: unsupported charset", zap.String("charset", charset))
		return string(body)
	}
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return string(body)
	}
	return string(out)
}
