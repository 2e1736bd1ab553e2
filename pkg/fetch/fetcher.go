package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single Fetch
const DefaultTimeout = 15 * time.Second

// ErrTimeoutOrNetwork is returned for any aborted or failed request. The transport error is
// only logged.
var ErrTimeoutOrNetwork = errors.New("timeout or network error")

// UserAgents is the pool a request picks its User-Agent from
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Fetcher issues single GET requests that look like they come from a browser
type Fetcher struct {
	client  *resty.Client
	timeout time.Duration
	referer string
	log     *slog.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithReferer sets the Referer header value
func WithReferer(referer string) Option {
	return func(f *Fetcher) {
		f.referer = referer
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

// New creates a Fetcher
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  resty.New(),
		timeout: DefaultTimeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url and returns the body whatever the HTTP status. It does not retry.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req := f.client.R().
		SetContext(ctx).
		SetHeaders(f.headers())

	resp, err := req.Get(url)
	if err != nil {
		f.log.Debug("Fetch failed", "url", url, "error", err)
		return nil, ErrTimeoutOrNetwork
	}

	f.log.Debug("Fetched", "url", url, "status", resp.StatusCode(), "elapsed", resp.Time())
	return resp.Body(), nil
}

func (f *Fetcher) headers() map[string]string {
	h := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Content-Type":    "application/json",
		"User-Agent":      UserAgents[rand.Intn(len(UserAgents))],
	}
	if f.referer != "" {
		h["Referer"] = f.referer
	}
	return h
}
