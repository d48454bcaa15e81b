package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/keepnetics/waterzone/internal/ingest"
)

type fakeDirect struct {
	responses map[string]Result
	errs      map[string]error
	calls     []string
}

func (f *fakeDirect) Fetch(_ context.Context, url string) (Result, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return Result{}, err
	}
	if res, ok := f.responses[url]; ok {
		return res, nil
	}
	return Result{StatusCode: http.StatusNotFound}, nil
}

type fakeBrowser struct {
	body  []byte
	err   error
	calls []string
}

func (f *fakeBrowser) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	return f.body, f.err
}

func pdfBody(n int) []byte {
	body := append([]byte("%PDF-1.4 "), bytes.Repeat([]byte("x"), n)...)
	return body
}

func newTestClient(t *testing.T, direct DirectStrategy, browser BrowserStrategy) *Client {
	t.Helper()
	cache, err := NewCache(t.TempDir(), 100)
	require.NoError(t, err)
	return NewClient(ClientConfig{
		BaseURL:        "https://src.example/docs",
		Politeness:     rate.Inf,
		MinViableBytes: 100,
	}, cache, direct, browser, nil)
}

func TestClientFetchDirectSuccess(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z5": {StatusCode: 200, ContentType: "application/pdf", Body: pdfBody(200)},
	}}
	c := newTestClient(t, direct, nil)

	doc, err := c.Fetch(context.Background(), "z005")
	require.NoError(t, err)
	assert.Equal(t, "Z5", doc.Zone)
	assert.NotEmpty(t, doc.Path)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
	require.Len(t, direct.calls, 1)
}

func TestClientFetchAdvancesPastNotFound(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z005": {StatusCode: 200, ContentType: "application/pdf", Body: pdfBody(200)},
	}}
	c := newTestClient(t, direct, nil)

	doc, err := c.Fetch(context.Background(), "Z5")
	require.NoError(t, err)
	assert.Equal(t, "Z005", doc.Zone)
	// Z5 and Z05 404ed first.
	assert.Equal(t, []string{
		"https://src.example/docs/Z5",
		"https://src.example/docs/Z05",
		"https://src.example/docs/Z005",
	}, direct.calls)
}

func TestClientFetchBlockedFallsBackToBrowser(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z5": {StatusCode: http.StatusForbidden},
	}}
	browser := &fakeBrowser{body: pdfBody(200)}
	c := newTestClient(t, direct, browser)

	doc, err := c.Fetch(context.Background(), "Z5")
	require.NoError(t, err)
	assert.Equal(t, "Z5", doc.Zone)
	require.Len(t, browser.calls, 1)
	assert.Equal(t, "https://src.example/docs/Z5", browser.calls[0])
}

func TestClientFetchBlockedWithoutBrowserTriesNextVariant(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z5":  {StatusCode: http.StatusForbidden},
		"https://src.example/docs/Z05": {StatusCode: 200, ContentType: "application/pdf", Body: pdfBody(200)},
	}}
	c := newTestClient(t, direct, nil)

	doc, err := c.Fetch(context.Background(), "Z5")
	require.NoError(t, err)
	assert.Equal(t, "Z05", doc.Zone)
}

func TestClientFetchExhaustionReturnsUnavailable(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{} // everything 404s
	c := newTestClient(t, direct, nil)

	_, err := c.Fetch(context.Background(), "Z5")
	require.ErrorIs(t, err, ingest.ErrDocumentUnavailable)
	assert.Len(t, direct.calls, 3)
}

func TestClientFetchRejectsNonPDFBody(t *testing.T) {
	t.Parallel()

	// A WAF interstitial page served with a 200.
	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z5": {
			StatusCode:  200,
			ContentType: "text/html",
			Body:        bytes.Repeat([]byte("<html>"), 50),
		},
	}}
	c := newTestClient(t, direct, nil)

	_, err := c.Fetch(context.Background(), "Z5")
	require.ErrorIs(t, err, ingest.ErrDocumentUnavailable)
}

func TestClientFetchUsesCache(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{}
	cache, err := NewCache(t.TempDir(), 100)
	require.NoError(t, err)
	_, err = cache.Put("Z5", pdfBody(200))
	require.NoError(t, err)

	c := NewClient(ClientConfig{
		BaseURL:        "https://src.example/docs",
		Politeness:     rate.Inf,
		MinViableBytes: 100,
	}, cache, direct, nil, nil)

	doc, err := c.Fetch(context.Background(), "Z005")
	require.NoError(t, err)
	assert.Equal(t, "Z5", doc.Zone)
	assert.Empty(t, direct.calls, "cache hit must not touch the network")
}

func TestClientFetchDirectErrorTriesNextVariant(t *testing.T) {
	t.Parallel()

	direct := &fakeDirect{
		errs: map[string]error{
			"https://src.example/docs/Z5": errors.New("connection reset"),
		},
		responses: map[string]Result{
			"https://src.example/docs/Z05": {StatusCode: 200, ContentType: "application/pdf", Body: pdfBody(200)},
		},
	}
	c := newTestClient(t, direct, nil)

	doc, err := c.Fetch(context.Background(), "Z5")
	require.NoError(t, err)
	assert.Equal(t, "Z05", doc.Zone)
}

func TestClientFetchCacheWriteFailureIsHardError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache, err := NewCache(dir, 100)
	require.NoError(t, err)
	// Yank the directory out from under the cache so the write fails.
	require.NoError(t, os.RemoveAll(dir))

	direct := &fakeDirect{responses: map[string]Result{
		"https://src.example/docs/Z5": {StatusCode: 200, ContentType: "application/pdf", Body: pdfBody(200)},
	}}
	c := NewClient(ClientConfig{
		BaseURL:        "https://src.example/docs",
		Politeness:     rate.Inf,
		MinViableBytes: 100,
	}, cache, direct, nil, nil)

	_, err = c.Fetch(context.Background(), "Z5")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ingest.ErrDocumentUnavailable,
		"an I/O failure says nothing about document availability")
	assert.Len(t, direct.calls, 1, "the write failure must not burn further variants")
}

func TestClientFetchCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	direct := &fakeDirect{errs: map[string]error{
		"https://src.example/docs/Z5": context.Canceled,
	}}
	c := newTestClient(t, direct, nil)

	_, err := c.Fetch(ctx, "Z5")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ingest.ErrDocumentUnavailable)
}
