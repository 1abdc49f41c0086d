// Package feedsrc turns journal alert RSS/Atom feeds into paper batches.
// Each feed forms its own batch, processed after the query list.
package feedsrc

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/avessey/litscan/internal/config"
	"github.com/avessey/litscan/internal/paper"
)

const maxPerFeed = 20

// Batch is the set of papers parsed from one feed.
type Batch struct {
	Name   string
	Papers []paper.Paper
}

// Label is the query label a feed batch carries into the store.
func (b Batch) Label() string {
	return "feed:" + b.Name
}

// Parser parses configured feeds.
type Parser struct {
	feeds []config.Feed
}

// NewParser creates a new feed parser.
func NewParser(feeds []config.Feed) *Parser {
	return &Parser{feeds: feeds}
}

// ParseAll parses every configured feed. A feed that fails to parse is
// logged and skipped; the others proceed.
func (p *Parser) ParseAll(ctx context.Context) []Batch {
	parser := gofeed.NewParser()

	var batches []Batch
	for _, fc := range p.feeds {
		name := fc.Name
		if name == "" {
			name = sourceNameFromURL(fc.URL)
		}

		feed, err := parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}

		papers := parseEntries(feed)
		log.Printf("Parsed %d entries from %s", len(papers), name)
		batches = append(batches, Batch{Name: name, Papers: papers})
	}
	return batches
}

func parseEntries(feed *gofeed.Feed) []paper.Paper {
	var papers []paper.Paper
	for _, item := range feed.Items {
		if len(papers) >= maxPerFeed {
			break
		}
		if p := parseEntry(item); p != nil {
			papers = append(papers, *p)
		}
	}
	return papers
}

func parseEntry(item *gofeed.Item) *paper.Paper {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = paper.NoTitle
	}

	var abstract string
	if item.Content != "" {
		abstract = stripHTML(item.Content)
	} else if item.Description != "" {
		abstract = stripHTML(item.Description)
	}

	id := item.GUID
	if id == "" {
		id = link
	}

	return &paper.Paper{
		ID:            id,
		Title:         title,
		Abstract:      abstract,
		PublishedDate: entryDate(item),
		URL:           link,
	}
}

// entryDate resolves the published date of a feed entry, falling back to
// lenient parsing of the raw string and then to the defaulting rules.
func entryDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format("2006-01-02")
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Format("2006-01-02")
	}

	raw := item.Published
	if raw == "" {
		raw = item.Updated
	}
	if raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return paper.NormalizeDate("", "", "")
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if host == "" {
		return feedURL
	}
	return host
}
