package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/scribe/pkg/processor"
	"golang.org/x/time/rate"
)

type LinkFetcherConfig struct {
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// LinkFetcher pulls the readable text out of URLs referenced in chat
// messages. Outbound requests are rate limited so a link-heavy channel does
// not hammer external hosts.
type LinkFetcher struct {
	config  LinkFetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewLinkFetcher(config LinkFetcherConfig) *LinkFetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	return &LinkFetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// FetchLinkedContent downloads the page at urlStr and extracts its main
// text content, normalized for ingestion.
func (f *LinkFetcher) FetchLinkedContent(ctx context.Context, urlStr string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	return extractMainContent(doc), nil
}

// FetchAttachment downloads a file shared in chat using bearer auth and
// returns its text, best effort. Binary payloads yield an error rather than
// garbage text.
func (f *LinkFetcher) FetchAttachment(ctx context.Context, urlStr, token string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download attachment: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return "", err
		}
		return extractMainContent(doc), nil
	}
	if !isTextual(contentType) {
		return "", fmt.Errorf("unsupported attachment type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return processor.Clean(string(body)), nil
}

func isTextual(contentType string) bool {
	switch {
	case strings.HasPrefix(contentType, "text/"):
		return true
	case strings.Contains(contentType, "json"), strings.Contains(contentType, "xml"):
		return true
	case contentType == "":
		return true
	}
	return false
}

// extractMainContent prefers a page's main content area, falling back to the
// whole body.
func extractMainContent(doc *goquery.Document) string {
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	return strings.Join(strings.Fields(content), " ")
}
