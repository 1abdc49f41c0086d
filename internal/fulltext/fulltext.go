// Package fulltext fetches a readable excerpt from a paper's canonical URL,
// used as an abstract fallback when the source returns none.
package fulltext

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// maxExcerptLen caps the fallback abstract so analysis prompts stay small.
const maxExcerptLen = 4000

// Fetcher retrieves page text via HTTP + readability extraction.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a new full-text fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Excerpt fetches the page and returns its readable text, capped at
// maxExcerptLen. An unreachable or unextractable page returns "" without
// an error; the caller proceeds with whatever abstract it has.
func (f *Fetcher) Excerpt(pageURL string) string {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "litscan/1.0 (literature monitor)")

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < 100 {
		return ""
	}

	runes := []rune(text)
	if len(runes) > maxExcerptLen {
		text = string(runes[:maxExcerptLen])
	}
	return text
}
