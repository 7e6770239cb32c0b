package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// maxPageSize caps how much of a listing page HTTPRenderer will read.
const maxPageSize = 5 << 20

// Renderer turns a page URL into its HTML after any client-side scripting
// has run.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// BrowserRenderer drives headless Chrome, for listing pages that build their
// job list with JavaScript.
type BrowserRenderer struct {
	waitSelector string
	timeout      time.Duration
	allocOpts    []chromedp.ExecAllocatorOption
}

// NewBrowserRenderer creates a renderer that waits for waitSelector to be
// ready before capturing the document.
func NewBrowserRenderer(waitSelector, userAgent string, timeout time.Duration) *BrowserRenderer {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	return &BrowserRenderer{
		waitSelector: waitSelector,
		timeout:      timeout,
		allocOpts:    opts,
	}
}

// Render launches a browser, loads pageURL and returns the outer HTML of the
// document. The browser is shut down before Render returns.
func (r *BrowserRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(r.waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless render: %w", err)
	}
	return html, nil
}

// HTTPRenderer fetches the page with a plain GET. It is enough for listing
// pages whose links are present in the served HTML.
type HTTPRenderer struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPRenderer creates a renderer using httpClient, which should carry a timeout.
func NewHTTPRenderer(httpClient *http.Client, userAgent string) *HTTPRenderer {
	return &HTTPRenderer{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var sb strings.Builder
	n, err := io.Copy(&sb, io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	if n > maxPageSize {
		return "", fmt.Errorf("page exceeds %d bytes", maxPageSize)
	}
	return sb.String(), nil
}
