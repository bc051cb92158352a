package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"newsroom/internal/logger"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds every outbound request made by this package.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is a desktop browser UA; several news sites reject bot UAs.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	maxBodyBytes = 5 << 20

	maxParagraphs      = 5
	minParagraphLength = 50
	minJoinedLength    = 200
	minMetaLength      = 100
	minPageTextLength  = 100
	minLineLength      = 50
	maxLines           = 3
)

// contentSelectors are tried in order, most specific first.
var contentSelectors = []string{
	".article-body p",
	".story-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	".content p",
	".story p",
	".article p",
	"article p",
	"main p",
	".main p",
	"p",
}

// NewHTTPClient builds the client shared by the extractor and the source adapters.
// insecureSkipVerify disables TLS certificate checks and must stay an explicit opt-in.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via fetch.insecure_skip_verify
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Get performs a GET request and returns the response body.
// Non-2xx responses are returned as errors.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch URL %s: status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return body, nil
}

// Extractor pulls readable body text out of arbitrary article pages.
type Extractor struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

// NewExtractor creates an Extractor. A nil client gets a default one with DefaultTimeout.
func NewExtractor(client *http.Client, userAgent string) *Extractor {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout, false)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Extractor{client: client, userAgent: userAgent, log: logger.Get()}
}

// Extract fetches pageURL and returns its best-effort body text.
// It never fails: any fetch or parse problem yields "".
func (e *Extractor) Extract(ctx context.Context, pageURL string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Content extraction panicked", "url", pageURL, "panic", r)
			text = ""
		}
	}()

	if strings.TrimSpace(pageURL) == "" {
		return ""
	}

	body, err := Get(ctx, e.client, pageURL, http.Header{"User-Agent": {e.userAgent}})
	if err != nil {
		e.log.Warn("Error getting content", "url", pageURL, "error", err)
		return ""
	}

	return ExtractHTML(strings.NewReader(string(body)))
}

// ExtractHTML runs the extraction cascade over an HTML document:
// content selectors, then the meta description, then the longest-looking page lines.
func ExtractHTML(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}

	for _, selector := range contentSelectors {
		paragraphs := doc.Find(selector)
		if paragraphs.Length() == 0 {
			continue
		}

		var parts []string
		paragraphs.Slice(0, min(maxParagraphs, paragraphs.Length())).Each(func(_ int, p *goquery.Selection) {
			text := normalizeSpace(p.Text())
			if utf8.RuneCountInString(text) > minParagraphLength {
				parts = append(parts, text)
			}
		})

		if joined := strings.Join(parts, " "); utf8.RuneCountInString(joined) > minJoinedLength {
			return joined
		}
	}

	if desc, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
		desc = strings.TrimSpace(desc)
		if utf8.RuneCountInString(desc) > minMetaLength {
			return desc
		}
	}

	doc.Find("script, style, noscript").Remove()
	pageText := doc.Text()
	if utf8.RuneCountInString(pageText) <= minPageTextLength {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > minLineLength {
			lines = append(lines, line)
			if len(lines) == maxLines {
				break
			}
		}
	}
	return strings.Join(lines, " ")
}

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return normalizeSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeSpace(fragment)
	}
	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
