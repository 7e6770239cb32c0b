package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobsieve/internal/model"
)

// maxBodySize caps how much of a posting page is read.
const maxBodySize = 5 << 20

// Limiter paces requests per host.
type Limiter interface {
	WaitURL(ctx context.Context, rawURL string) error
}

// Extractor fetches a posting page and reduces it to its main text.
type Extractor struct {
	httpClient *http.Client
	limiter    Limiter
	userAgent  string
	logger     *slog.Logger
}

var _ model.ContentExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor. httpClient should carry the per-request
// timeout; limiter may be nil.
func NewExtractor(httpClient *http.Client, limiter Limiter, userAgent string, logger *slog.Logger) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Extract returns the normalized main text of the page at rawURL. Every
// failure is reported as *model.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", &model.ExtractionError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}

	if e.limiter != nil {
		if err := e.limiter.WaitURL(ctx, rawURL); err != nil {
			return "", &model.ExtractionError{URL: rawURL, Err: err}
		}
	}

	data, err := e.fetch(ctx, rawURL)
	if err != nil {
		return "", &model.ExtractionError{URL: rawURL, Err: err}
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", &model.ExtractionError{URL: rawURL, Err: fmt.Errorf("readability: %w", err)}
	}

	text := Normalize(article.TextContent)
	if text == "" {
		return "", &model.ExtractionError{URL: rawURL, Err: errors.New("no main content found")}
	}

	e.logger.Debug("content extracted",
		"url", rawURL,
		"title", article.Title,
		"content_length", len(text),
	)
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	if len(data) == 0 {
		return nil, errors.New("response body is empty")
	}

	// Some boards omit the header; sniff the body instead.
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !isHTML(contentType) {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}
	return data, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// Normalize applies NFKC, collapses whitespace inside each line, and squeezes
// runs of blank lines down to one.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}
