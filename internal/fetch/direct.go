package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/jonboulle/clockwork"
)

// DirectConfig controls the direct HTTP strategy.
type DirectConfig struct {
	UserAgent string
	Referer   string
	Origin    string
	Timeout   time.Duration
}

// Result is what a strategy attempt produced. Body is only meaningful
// for 2xx responses.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Direct issues the document request with browser-mimicking headers
// using a Colly collector. On HTTP 429 it honors Retry-After (default
// backoff when absent) and retries once.
type Direct struct {
	cfg           DirectConfig
	baseCollector *colly.Collector
	clock         clockwork.Clock
}

const defaultRetryAfter = 3 * time.Second

// NewDirect builds the direct strategy.
func NewDirect(cfg DirectConfig, clock clockwork.Clock) *Direct {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Direct{cfg: cfg, baseCollector: c, clock: clock}
}

// Fetch performs the GET, retrying once on a rate-limit response.
func (d *Direct) Fetch(ctx context.Context, url string) (Result, error) {
	res, retryAfter, err := d.attempt(ctx, url)
	if err != nil {
		return Result{}, err
	}
	if res.StatusCode != http.StatusTooManyRequests {
		return res, nil
	}
	if err := d.pause(ctx, retryAfter); err != nil {
		return Result{}, err
	}
	res, _, err = d.attempt(ctx, url)
	return res, err
}

func (d *Direct) attempt(ctx context.Context, url string) (Result, time.Duration, error) {
	collector := d.baseCollector.Clone()
	if d.cfg.UserAgent != "" {
		collector.UserAgent = d.cfg.UserAgent
	}
	collector.SetRequestTimeout(d.cfg.Timeout)

	var result Result
	retryAfter := defaultRetryAfter

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")
		r.Headers.Set("Cache-Control", "no-cache")
		r.Headers.Set("Pragma", "no-cache")
		if d.cfg.Referer != "" {
			r.Headers.Set("Referer", d.cfg.Referer)
		}
		if d.cfg.Origin != "" {
			r.Headers.Set("Origin", d.cfg.Origin)
		}
	})
	capture := func(r *colly.Response) {
		result = Result{
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
		}
		if secs, err := strconv.Atoi(r.Headers.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	collector.OnResponse(capture)

	var transportErr error
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx statuses here; keep the status and only
		// treat transport-level failures as errors.
		if r != nil && r.StatusCode > 0 {
			capture(r)
			return
		}
		transportErr = err
	})

	visitErr := d.visit(ctx, collector, url)
	switch {
	case transportErr != nil:
		return Result{}, 0, fmt.Errorf("direct fetch %s: %w", url, transportErr)
	case result.StatusCode == 0 && visitErr != nil:
		// Visit failed before a response existed (bad URL, canceled).
		return Result{}, 0, fmt.Errorf("direct fetch %s: %w", url, visitErr)
	}
	return result, retryAfter, nil
}

func (d *Direct) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("direct fetch canceled: %w", ctx.Err())
	case err := <-done:
		// Visit re-surfaces the OnError error; the hook above already
		// classified HTTP-status cases, so the raw error only matters
		// when no response was captured.
		return err
	}
}

func (d *Direct) pause(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate-limit backoff canceled: %w", ctx.Err())
	case <-d.clock.After(delay):
		return nil
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
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
