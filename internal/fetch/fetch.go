// Package fetch retrieves zone disclosure documents. The origin rate
// limits and WAF-blocks automated clients, so each identifier variant
// runs an ordered strategy chain: direct HTTP with browser headers
// first, then real browser automation as the fallback. Both are backed
// by a disk cache keyed on the canonical identifier.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/keepnetics/waterzone/internal/hash/sha256"
	"github.com/keepnetics/waterzone/internal/ingest"
	"github.com/keepnetics/waterzone/internal/telemetry"
)

// DirectStrategy is the primary HTTP attempt.
type DirectStrategy interface {
	Fetch(ctx context.Context, url string) (Result, error)
}

// BrowserStrategy is the fallback engaged on bot-defense blocks. It is
// an optional capability: a nil strategy means the runtime has no
// browser and blocked responses advance the variant loop instead.
type BrowserStrategy interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client implements ingest.Fetcher as a strategy chain over the
// identifier variants.
type Client struct {
	baseURL  string
	cache    *Cache
	direct   DirectStrategy
	browser  BrowserStrategy
	limiter  *rate.Limiter
	hasher   *sha256.Hasher
	logger   *zap.Logger
	minBytes int64
}

// ClientConfig wires a Client.
type ClientConfig struct {
	// BaseURL is the document endpoint; the canonical identifier is
	// appended to it.
	BaseURL string
	// Politeness is the steady request rate against the origin
	// (defaults to one request per 600ms, matching the short
	// inter-attempt pause the origin tolerates).
	Politeness rate.Limit
	// MinViableBytes below which a response body is not a real report.
	MinViableBytes int64
}

// NewClient builds the fetch client. browser may be nil.
func NewClient(cfg ClientConfig, cache *Cache, direct DirectStrategy, browser BrowserStrategy, logger *zap.Logger) *Client {
	if cfg.Politeness <= 0 {
		cfg.Politeness = rate.Every(600 * time.Millisecond)
	}
	if cfg.MinViableBytes <= 0 {
		cfg.MinViableBytes = DefaultMinViableBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/") + "/",
		cache:    cache,
		direct:   direct,
		browser:  browser,
		limiter:  rate.NewLimiter(cfg.Politeness, 1),
		hasher:   sha256.New(),
		logger:   logger,
		minBytes: cfg.MinViableBytes,
	}
}

// Fetch tries each identifier variant in order: cache, direct request,
// browser fallback on blocking statuses, next variant on 404. All
// variants exhausted yields ingest.ErrDocumentUnavailable.
func (c *Client) Fetch(ctx context.Context, zoneID string) (ingest.Document, error) {
	for _, candidate := range ingest.Variants(zoneID) {
		if body, path, ok := c.cache.Get(candidate); ok {
			c.logger.Debug("cache hit",
				zap.String("zone", candidate),
				zap.String("path", path),
				zap.String("sha256", c.hasher.Fingerprint(body)))
			return ingest.Document{Zone: candidate, Path: path, Body: body}, nil
		}

		doc, ok, err := c.tryCandidate(ctx, candidate)
		if err != nil {
			return ingest.Document{}, err
		}
		if ok {
			return doc, nil
		}
	}
	return ingest.Document{}, fmt.Errorf("%w: zone %s", ingest.ErrDocumentUnavailable, zoneID)
}

// tryCandidate runs the strategy chain for one variant. The bool result
// distinguishes "move on to the next variant" from success; context
// cancellation and cache-write failures are hard errors, since neither
// says anything about whether the other variants exist.
func (c *Client) tryCandidate(ctx context.Context, candidate string) (ingest.Document, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ingest.Document{}, false, fmt.Errorf("politeness wait: %w", err)
	}

	url := c.baseURL + candidate
	res, err := c.direct.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return ingest.Document{}, false, err
		}
		telemetry.CountFetchAttempt("direct", "error")
		c.logger.Warn("direct fetch failed", zap.String("zone", candidate), zap.Error(err))
		return ingest.Document{}, false, nil
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300 && c.pdfShaped(res):
		telemetry.CountFetchAttempt("direct", "ok")
		doc, err := c.persist(candidate, res.Body)
		if err != nil {
			return ingest.Document{}, false, err
		}
		return doc, true, nil

	case blockedStatus(res.StatusCode):
		telemetry.CountFetchAttempt("direct", "blocked")
		return c.tryBrowser(ctx, candidate, url)

	case res.StatusCode == http.StatusNotFound:
		telemetry.CountFetchAttempt("direct", "not_found")
		c.logger.Debug("variant not found", zap.String("zone", candidate))
		return ingest.Document{}, false, nil

	default:
		telemetry.CountFetchAttempt("direct", "error")
		c.logger.Warn("unexpected response",
			zap.String("zone", candidate),
			zap.Int("status", res.StatusCode),
			zap.String("content_type", res.ContentType))
		return ingest.Document{}, false, nil
	}
}

func (c *Client) tryBrowser(ctx context.Context, candidate, url string) (ingest.Document, bool, error) {
	if c.browser == nil {
		c.logger.Warn("blocked and no browser strategy available", zap.String("zone", candidate))
		return ingest.Document{}, false, nil
	}
	telemetry.CountFallback()
	c.logger.Info("blocked, switching to browser strategy", zap.String("zone", candidate))

	body, err := c.browser.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return ingest.Document{}, false, err
		}
		telemetry.CountFetchAttempt("browser", "error")
		c.logger.Warn("browser fetch failed", zap.String("zone", candidate), zap.Error(err))
		return ingest.Document{}, false, nil
	}
	if int64(len(body)) < c.minBytes {
		telemetry.CountFetchAttempt("browser", "error")
		c.logger.Warn("browser fetch returned undersized body",
			zap.String("zone", candidate), zap.Int("bytes", len(body)))
		return ingest.Document{}, false, nil
	}
	telemetry.CountFetchAttempt("browser", "ok")
	doc, perr := c.persist(candidate, body)
	if perr != nil {
		return ingest.Document{}, false, perr
	}
	return doc, true, nil
}

func (c *Client) persist(candidate string, body []byte) (ingest.Document, error) {
	path, err := c.cache.Put(candidate, body)
	if err != nil {
		c.logger.Error("cache write failed", zap.String("zone", candidate), zap.Error(err))
		return ingest.Document{}, err
	}
	c.logger.Info("document fetched",
		zap.String("zone", candidate),
		zap.Int("bytes", len(body)),
		zap.String("sha256", c.hasher.Hash(body)))
	return ingest.Document{Zone: candidate, Path: path, Body: body}, nil
}

// pdfShaped accepts a payload when either the declared content type or
// the magic bytes say PDF; the origin is inconsistent about the former.
func (c *Client) pdfShaped(res Result) bool {
	if int64(len(res.Body)) < c.minBytes {
		return false
	}
	if strings.Contains(strings.ToLower(res.ContentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(res.Body, []byte("%PDF"))
}

func blockedStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotAcceptable:
		return true
	}
	return false
}
