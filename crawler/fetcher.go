package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 15 * time.Second

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves and parses one page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// HTTPFetcher fetches pages over HTTP with browser-like headers. Certificate
// verification is disabled so sites with self-signed or expired certificates
// can still be crawled.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout. A
// timeout of zero uses DefaultTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: newHTTPClient(timeout)}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Client returns the underlying HTTP client.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads pageURL and parses it as HTML. Any non-2xx status is an
// error. Redirects are followed and the returned document's Url is the final
// URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req, pageURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Url = resp.Request.URL

	return doc, nil
}

// setBrowserHeaders makes req look like a desktop browser navigation.
// Accept-Encoding is left to the transport so gzip bodies are decoded
// transparently.
func setBrowserHeaders(req *http.Request, pageURL string) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Referer", pageURL)
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
}
