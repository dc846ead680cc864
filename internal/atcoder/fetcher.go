package atcoder

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Waiter paces requests per host. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

type page struct {
	URL    string
	Status int
	Body   []byte
}

// fetcher runs one request per cloned collector. Clones share the base
// collector's HTTP client, so cookies set by a login persist.
type fetcher struct {
	base    *colly.Collector
	limiter Waiter
}

func newFetcher(cfg Config, limiter Waiter) *fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.MaxBodySize = 0
	c.WithTransport(newHTTPTransport())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)
	return &fetcher{base: c, limiter: limiter}
}

func (f *fetcher) get(ctx context.Context, rawURL string) (*page, error) {
	return f.do(ctx, rawURL, nil)
}

func (f *fetcher) post(ctx context.Context, rawURL string, form map[string]string) (*page, error) {
	return f.do(ctx, rawURL, form)
}

func (f *fetcher) do(ctx context.Context, rawURL string, form map[string]string) (*page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s canceled: %w", rawURL, err)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	var (
		result   *page
		fetchErr error
	)
	collector := f.base.Clone()
	collector.OnResponse(func(r *colly.Response) {
		result = &page{
			URL:    r.Request.URL.String(),
			Status: r.StatusCode,
			Body:   append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = classify(rawURL, status, err)
	})

	done := make(chan error, 1)
	go func() {
		if form != nil {
			done <- collector.Post(rawURL, form)
			return
		}
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s canceled: %w", rawURL, ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, fetchErr
		}
		if err != nil {
			return nil, classify(rawURL, 0, err)
		}
		if result == nil {
			return nil, fmt.Errorf("%w: %s: empty response", ErrTransient, rawURL)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
