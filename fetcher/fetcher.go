// Package fetcher issues single bounded HTTP GETs through a colly collector.
package fetcher

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior. Headers is the fixed profile sent
// with every request; it is copied at construction so later mutation by the
// caller has no effect.
type Config struct {
	Headers   http.Header
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs one GET per Fetch call. The base collector is cloned for
// every fetch so repeated URLs are never skipped as revisits and callbacks
// never accumulate.
type Fetcher struct {
	cfg       Config
	base      *colly.Collector
	transport http.RoundTripper
}

// New builds a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Headers = cloneHeader(cfg.Headers)

	// colly.Async ignores its argument and always enables async mode, so
	// rely on the synchronous default instead of passing Async(false).
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)

	transport := newHTTPTransport(cfg.Timeout)
	c.WithTransport(transport)

	return &Fetcher{
		cfg:       cfg,
		base:      c,
		transport: transport,
	}
}

// WithTransport replaces the underlying round tripper. Used by tests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
	f.base.WithTransport(rt)
}

// Fetch issues one GET for pageURL and returns the raw page body. Success
// requires HTTP status 200 exactly; any other status or transport-level
// failure yields a *FetchError. The caller decides whether to retry.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	var (
		body    []byte
		status  int
		hookErr error
	)

	collector := f.base.Clone()
	collector.WithTransport(f.transport)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range f.cfg.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		hookErr = err
	})

	if err := visit(ctx, collector, pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: Classify(err, status)}
	}
	if hookErr != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: Classify(hookErr, status)}
	}
	if status != http.StatusOK {
		return nil, &FetchError{URL: pageURL, StatusCode: status}
	}
	return body, nil
}

// visit runs the blocking colly visit while honoring context cancellation.
func visit(ctx context.Context, collector *colly.Collector, pageURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		out[key] = append([]string(nil), values...)
	}
	return out
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
