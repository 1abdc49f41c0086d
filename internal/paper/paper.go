package paper

import (
	"fmt"
	"time"
)

// NoTitle is substituted when a source returns an item without a title.
const NoTitle = "No Title"

// Paper is one candidate unit of literature from any source.
type Paper struct {
	ID            string // source-local identifier (PMID for PubMed, GUID for feeds)
	Title         string
	Abstract      string
	PublishedDate string // YYYY-MM-DD
	URL           string // canonical URL, stable and unique per paper
}

// Identity returns the deduplication key for the paper.
// The canonical URL is guaranteed unique and stable per item.
func (p Paper) Identity() string {
	return p.URL
}

// Year returns the publication year portion of PublishedDate.
func (p Paper) Year() string {
	if len(p.PublishedDate) >= 4 {
		return p.PublishedDate[:4]
	}
	return p.PublishedDate
}

// NormalizeDate builds a YYYY-MM-DD date from possibly missing parts.
// A missing month or day defaults to "01"; a missing year defaults to the
// current processing year.
func NormalizeDate(year, month, day string) string {
	if year == "" {
		year = fmt.Sprintf("%d", time.Now().Year())
	}
	if month == "" {
		month = "01"
	}
	if day == "" {
		day = "01"
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "-" + month + "-" + day
}
