package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	notionVersion = "2022-06-28"

	// MaxRichTextLen is the store's per-field length cap. Over-length text
	// is truncated client-side; the API rejects it otherwise.
	MaxRichTextLen = 2000

	// listPageSize bounds each page of the dedup-seed listing.
	listPageSize = 100
)

// Record is the knowledge-store-bound representation of one analyzed paper.
type Record struct {
	Title       string
	Date        string // YYYY-MM-DD
	Summary     string
	Methods     string
	Population  string
	EffectSizes string
	Hypothesis  string
	Contradicts string
	Link        string
	Query       string
	Flagged     bool
}

// APIError is a structured error payload returned by the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to a Notion database.
type Client struct {
	baseURL    string
	token      string
	databaseID string
	client     *http.Client
}

// NewClient creates a new Notion client for one database.
func NewClient(baseURL, token, databaseID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		databaseID: databaseID,
		client:     &http.Client{Timeout: timeout},
	}
}

// QueryLinks returns one page of stored Link values plus the continuation
// cursor. Pass an empty cursor for the first page.
func (c *Client) QueryLinks(ctx context.Context, startCursor string) (links []string, nextCursor string, hasMore bool, err error) {
	payload := map[string]any{"page_size": listPageSize}
	if startCursor != "" {
		payload["start_cursor"] = startCursor
	}

	var result struct {
		Results []struct {
			Properties struct {
				Link struct {
					URL *string `json:"url"`
				} `json:"Link"`
			} `json:"properties"`
		} `json:"results"`
		HasMore    bool    `json:"has_more"`
		NextCursor *string `json:"next_cursor"`
	}

	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, c.databaseID)
	if err := c.post(ctx, url, payload, &result); err != nil {
		return nil, "", false, err
	}

	for _, page := range result.Results {
		if page.Properties.Link.URL != nil && *page.Properties.Link.URL != "" {
			links = append(links, *page.Properties.Link.URL)
		}
	}

	if result.NextCursor != nil {
		nextCursor = *result.NextCursor
	}
	return links, nextCursor, result.HasMore, nil
}

// CreatePage inserts one record as a new page. There is no update path;
// records are written once. Free-text fields are truncated to
// MaxRichTextLen before submission.
func (c *Client) CreatePage(ctx context.Context, rec Record) error {
	status := "New"
	if rec.Flagged {
		status = "Flagged"
	}

	payload := map[string]any{
		"parent": map[string]string{"database_id": c.databaseID},
		"properties": map[string]any{
			"Name":         map[string]any{"title": richText(rec.Title)},
			"Date":         map[string]any{"date": map[string]string{"start": rec.Date}},
			"Summary":      map[string]any{"rich_text": richText(rec.Summary)},
			"Methods":      map[string]any{"rich_text": richText(rec.Methods)},
			"Population":   map[string]any{"rich_text": richText(rec.Population)},
			"EffectsSizes": map[string]any{"rich_text": richText(rec.EffectSizes)},
			"Hypothesis":   map[string]any{"rich_text": richText(rec.Hypothesis)},
			"Contradicts":  map[string]any{"rich_text": richText(rec.Contradicts)},
			"Link":         map[string]any{"url": rec.Link},
			"Query":        map[string]any{"rich_text": richText(rec.Query)},
			"Status":       map[string]any{"select": map[string]string{"name": status}},
		},
	}

	return c.post(ctx, c.baseURL+"/v1/pages", payload, nil)
}

func (c *Client) post(ctx context.Context, url string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "unknown",
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       payload.Code,
		Message:    payload.Message,
	}
}

// richText builds a rich-text property value. The "type" key is required;
// omitting it makes Notion silently drop the field.
func richText(text string) []map[string]any {
	return []map[string]any{
		{"type": "text", "text": map[string]string{"content": Truncate(text)}},
	}
}

// Truncate caps text at the store's maximum rich-text field length.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxRichTextLen {
		return text
	}
	return string(runes[:MaxRichTextLen])
}
