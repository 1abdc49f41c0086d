package feedsrc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avessey/litscan/internal/config"
	"github.com/avessey/litscan/internal/paper"
)

const rssBody = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Journal Alerts</title>
    <item>
      <title>Caffeine and overnight memory</title>
      <link>https://example.org/papers/caffeine</link>
      <guid>caffeine-1</guid>
      <pubDate>Mon, 05 Feb 2024 10:00:00 GMT</pubDate>
      <description>&lt;p&gt;A &lt;b&gt;crossover&lt;/b&gt; study of caffeine timing.&lt;/p&gt;</description>
    </item>
    <item>
      <title></title>
      <link>https://example.org/papers/untitled</link>
    </item>
    <item>
      <title>No link entry</title>
    </item>
  </channel>
</rss>`

func TestParseAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	parser := NewParser([]config.Feed{{URL: srv.URL, Name: "alerts"}})
	batches := parser.ParseAll(context.Background())

	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.Label() != "feed:alerts" {
		t.Errorf("unexpected label: %q", b.Label())
	}
	// The entry without a link is dropped; the untitled one survives.
	if len(b.Papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(b.Papers))
	}

	p := b.Papers[0]
	if p.Title != "Caffeine and overnight memory" {
		t.Errorf("unexpected title: %q", p.Title)
	}
	if p.URL != "https://example.org/papers/caffeine" {
		t.Errorf("unexpected URL: %q", p.URL)
	}
	if p.PublishedDate != "2024-02-05" {
		t.Errorf("unexpected date: %q", p.PublishedDate)
	}
	if p.Abstract != "A crossover study of caffeine timing." {
		t.Errorf("unexpected abstract: %q", p.Abstract)
	}

	if b.Papers[1].Title != paper.NoTitle {
		t.Errorf("expected title sentinel, got %q", b.Papers[1].Title)
	}
}

func TestParseAllSkipsBrokenFeed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer broken.Close()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer ok.Close()

	parser := NewParser([]config.Feed{
		{URL: broken.URL, Name: "broken"},
		{URL: ok.URL, Name: "ok"},
	})
	batches := parser.ParseAll(context.Background())

	if len(batches) != 1 {
		t.Fatalf("expected the broken feed to be skipped, got %d batches", len(batches))
	}
	if batches[0].Name != "ok" {
		t.Errorf("unexpected surviving batch: %q", batches[0].Name)
	}
}

func TestEntryDateDefaultsWhenMissing(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
  <item><title>Undated</title><link>https://example.org/u</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	batches := NewParser([]config.Feed{{URL: srv.URL, Name: "n"}}).ParseAll(context.Background())
	if len(batches) != 1 || len(batches[0].Papers) != 1 {
		t.Fatal("expected one paper")
	}

	want := fmt.Sprintf("%d-01-01", time.Now().Year())
	if got := batches[0].Papers[0].PublishedDate; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
