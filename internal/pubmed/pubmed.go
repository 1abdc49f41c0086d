package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avessey/litscan/internal/paper"
)

// canonicalURLFormat is the stable per-paper URL used as the dedup identity.
const canonicalURLFormat = "https://pubmed.ncbi.nlm.nih.gov/%s/"

var monthNames = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04", "May": "05", "Jun": "06",
	"Jul": "07", "Aug": "08", "Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// Client fetches papers from PubMed via the E-utilities API.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	fetchDelay time.Duration
}

// NewClient creates a new PubMed client. The fetch delay is slept between
// per-paper detail fetches to respect NCBI rate limits.
func NewClient(baseURL, apiKeyEnv string, timeout, fetchDelay time.Duration, getenv func(string) string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     getenv(apiKeyEnv),
		client:     &http.Client{Timeout: timeout},
		fetchDelay: fetchDelay,
	}
}

// Search runs an esearch for the query, newest first, then efetches the
// detail record for each hit. A paper whose detail payload cannot be parsed
// is dropped; the others in the same page proceed.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]paper.Paper, error) {
	ids, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var papers []paper.Paper
	for _, pmid := range ids {
		if err := sleepCtx(ctx, c.fetchDelay); err != nil {
			return papers, err
		}

		p, err := c.fetchPaper(ctx, pmid)
		if err != nil {
			log.Printf("Bad detail record for PMID %s: %v", pmid, err)
			continue
		}
		papers = append(papers, *p)
	}
	return papers, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {fmt.Sprintf("%d", limit)},
		"sort":    {"date"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/esearch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed search returned %d", resp.StatusCode)
	}

	var result struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return result.ESearchResult.IDList, nil
}

func (c *Client) fetchPaper(ctx context.Context, pmid string) (*paper.Paper, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"xml"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/efetch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed fetch returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fetch response: %w", err)
	}

	return parseArticle(pmid, body)
}

// efetchArticle maps the subset of the efetch XML the pipeline needs.
// ArticleTitle and AbstractText may contain inline markup, so both use
// flatText to collect nested character data.
type efetchArticle struct {
	Title    flatText   `xml:"PubmedArticle>MedlineCitation>Article>ArticleTitle"`
	Abstract []flatText `xml:"PubmedArticle>MedlineCitation>Article>Abstract>AbstractText"`
	PubYear  string     `xml:"PubmedArticle>MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
	PubMonth string     `xml:"PubmedArticle>MedlineCitation>Article>Journal>JournalIssue>PubDate>Month"`
}

func parseArticle(pmid string, data []byte) (*paper.Paper, error) {
	var art efetchArticle
	if err := xml.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parsing article XML: %w", err)
	}

	title := strings.TrimSpace(string(art.Title))
	if title == "" {
		title = paper.NoTitle
	}

	var parts []string
	for _, a := range art.Abstract {
		if s := strings.TrimSpace(string(a)); s != "" {
			parts = append(parts, s)
		}
	}
	abstract := strings.Join(parts, " ")

	return &paper.Paper{
		ID:            pmid,
		Title:         title,
		Abstract:      abstract,
		PublishedDate: paper.NormalizeDate(art.PubYear, normalizeMonth(art.PubMonth), ""),
		URL:           fmt.Sprintf(canonicalURLFormat, pmid),
	}, nil
}

// normalizeMonth maps PubMed month names ("Jan") to two-digit numbers.
// Numeric months pass through; anything unrecognized is kept as-is so
// NormalizeDate can zero-pad it.
func normalizeMonth(month string) string {
	if m, ok := monthNames[month]; ok {
		return m
	}
	return month
}

// flatText collects all character data inside an element, including text
// nested in inline markup such as <i> or <sup>.
type flatText string

func (f *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	*f = flatText(sb.String())
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
