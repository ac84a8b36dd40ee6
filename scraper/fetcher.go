// Package scraper drives the crawl: rate-limited fetching, bounded
// listing traversal, and detail-page enrichment.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-books-etl/config"
)

// Fetcher issues GETs through a synchronous colly collector. One
// request is in flight at a time, separated by a fixed inter-request
// delay — a deliberate throttle for the target site, not a reactive
// backoff. Every request carries the identifying User-Agent and is
// logged with its outcome.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics

	requestCount int64

	// State for the request in flight, populated by the collector
	// callbacks. The collector runs synchronously and the pipeline is
	// single-threaded, so no lock is needed.
	body   []byte
	status int
	err    error
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &Fetcher{collector: collector, metrics: metrics}

	collector.OnRequest(func(r *colly.Request) {
		atomic.AddInt64(&f.requestCount, 1)
		slog.Debug("request", slog.String("url", r.URL.String()))
	})
	collector.OnResponse(func(r *colly.Response) {
		f.body = r.Body
		f.status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			f.status = r.StatusCode
		}
		f.err = err
	})

	return f, nil
}

// WithTransport replaces the underlying transport. Used by tests to
// inject a mock.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch issues one GET and returns the raw page body, or a typed error
// (ErrTimeout, ErrConnection, ErrHTTPStatus). phase labels the request
// in metrics and logs ("listing" or "detail").
func (f *Fetcher) Fetch(ctx context.Context, rawURL, phase string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.body, f.status, f.err = nil, 0, nil
	f.metrics.IncRequest(phase)

	start := time.Now()
	visitErr := f.collector.Visit(rawURL)
	f.metrics.ObserveDuration(time.Since(start))

	err := f.err
	if err == nil {
		err = visitErr
	}
	if err != nil {
		classified := classifyError(err, f.status)
		label := errorTypeLabel(classified)
		f.metrics.IncError(label)
		slog.Error("GET failed",
			slog.String("url", rawURL),
			slog.String("phase", phase),
			slog.String("category", label),
			slog.Any("error", err),
		)
		return nil, classified
	}

	slog.Info("GET",
		slog.String("url", rawURL),
		slog.String("phase", phase),
		slog.Int("status", f.status),
	)
	return f.body, nil
}

// Requests returns the number of HTTP requests issued so far.
func (f *Fetcher) Requests() int {
	return int(atomic.LoadInt64(&f.requestCount))
}
