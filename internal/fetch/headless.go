package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// HeadlessConfig controls the browser-automation strategy.
type HeadlessConfig struct {
	UserAgent string
	Referer   string
	// NavTimeout bounds each browser step (warm-up navigation, in-page
	// fetch, download capture).
	NavTimeout time.Duration
	// DownloadDir receives forced downloads; a temp dir when empty.
	DownloadDir string
}

// Headless fetches documents through a real browser context to satisfy
// WAF checks that key on origin, referer and session cookies. It loads
// the referring page first, requests the document from that page's
// context, and falls back to capturing a forced download.
type Headless struct {
	cfg         HeadlessConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewHeadless starts a Chrome exec allocator. Callers should check
// availability separately and skip construction when the runtime has no
// browser; a failed construction is not fatal to the chain.
func NewHeadless(cfg HeadlessConfig) (*Headless, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.DownloadDir == "" {
		dir, err := os.MkdirTemp("", "waterzone-dl-*")
		if err != nil {
			return nil, fmt.Errorf("create download dir: %w", err)
		}
		cfg.DownloadDir = dir
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("lang", "en-GB"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Headless{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}, nil
}

// Close cancels the allocator context.
func (h *Headless) Close() {
	h.allocCancel()
}

// Fetch warms the referer page, then retrieves the document bytes.
func (h *Headless) Fetch(ctx context.Context, url string) ([]byte, error) {
	taskCtx, taskCancel := chromedp.NewContext(h.allocator)
	defer taskCancel()

	// Two browser steps plus slack; each step also respects the caller.
	taskCtx, cancel := context.WithTimeout(taskCtx, 2*h.cfg.NavTimeout+10*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-taskCtx.Done():
		}
	}()

	if h.cfg.Referer != "" {
		if err := h.warmUp(taskCtx); err != nil {
			return nil, err
		}
	}
	body, fetchErr := h.fetchFromPage(taskCtx, url)
	if fetchErr == nil {
		return body, nil
	}
	body, dlErr := h.captureDownload(taskCtx, url)
	if dlErr != nil {
		return nil, fmt.Errorf("headless fetch %s: in-page fetch: %v; download capture: %w", url, fetchErr, dlErr)
	}
	return body, nil
}

// warmUp visits the referring page once so the session carries the
// cookies the origin expects.
func (h *Headless) warmUp(ctx context.Context) error {
	actions := []chromedp.Action{
		h.networkSetupAction(),
		chromedp.Navigate(h.cfg.Referer),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return fmt.Errorf("warm up referer: %w", err)
	}
	return nil
}

// fetchFromPage requests the document from the warmed page's context,
// returning the bytes via a base64 round trip out of the browser.
func (h *Headless) fetchFromPage(ctx context.Context, url string) ([]byte, error) {
	script := fmt.Sprintf(`(async () => {
		const resp = await fetch(%q, { credentials: "include" });
		if (!resp.ok) { throw new Error("status " + resp.status); }
		const buf = new Uint8Array(await resp.arrayBuffer());
		let bin = "";
		for (let i = 0; i < buf.length; i++) { bin += String.fromCharCode(buf[i]); }
		return btoa(bin);
	})()`, url)

	var encoded string
	err := chromedp.Run(ctx, chromedp.Evaluate(script, &encoded,
		func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("in-page fetch: %w", err)
	}
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode fetched body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("in-page fetch returned no bytes")
	}
	return body, nil
}

// captureDownload navigates to the document URL and captures the bytes
// through the browser's download events, for servers that force an
// attachment instead of returning the body.
func (h *Headless) captureDownload(ctx context.Context, url string) ([]byte, error) {
	done := make(chan string, 1)
	chromedp.ListenTarget(ctx, func(ev any) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok && e.State == browser.DownloadProgressStateCompleted {
			select {
			case done <- e.GUID:
			default:
			}
		}
	})

	dlCtx, cancel := context.WithTimeout(ctx, h.cfg.NavTimeout)
	defer cancel()

	err := chromedp.Run(dlCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(h.cfg.DownloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(url),
	)
	// Navigating to a forced download aborts the navigation; that is
	// the expected signal, not a failure.
	if err != nil && !strings.Contains(err.Error(), "net::ERR_ABORTED") {
		return nil, fmt.Errorf("navigate for download: %w", err)
	}

	select {
	case <-dlCtx.Done():
		return nil, fmt.Errorf("download wait: %w", dlCtx.Err())
	case guid := <-done:
		path := filepath.Join(h.cfg.DownloadDir, guid)
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read downloaded file: %w", err)
		}
		_ = os.Remove(path)
		return body, nil
	}
}

func (h *Headless) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if h.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(h.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}
