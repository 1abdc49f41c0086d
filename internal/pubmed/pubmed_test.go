package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avessey/litscan/internal/paper"
)

const articleXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate>
              <Year>2024</Year>
              <Month>Mar</Month>
            </PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Effects of <i>intermittent fasting</i> on cognition.</ArticleTitle>
        <Abstract>
          <AbstractText>Background text.</AbstractText>
          <AbstractText>Results text.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

const noTitleXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <Journal><JournalIssue><PubDate></PubDate></JournalIssue></Journal>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestServer(t *testing.T, ids []string, articles map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		fmt.Fprintf(w, `{"esearchresult": {"idlist": [%s]}}`, strings.Join(quoted, ","))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		body, ok := articles[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "TEST_PUBMED_KEY", 5*time.Second, 0, func(string) string { return "" })
}

func TestSearchParsesArticles(t *testing.T) {
	srv := newTestServer(t, []string{"12345"}, map[string]string{"12345": articleXML})

	papers, err := newTestClient(srv.URL).Search(context.Background(), "fasting AND cognition", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}

	p := papers[0]
	if p.Title != "Effects of intermittent fasting on cognition." {
		t.Errorf("unexpected title: %q", p.Title)
	}
	if p.Abstract != "Background text. Results text." {
		t.Errorf("unexpected abstract: %q", p.Abstract)
	}
	if p.PublishedDate != "2024-03-01" {
		t.Errorf("expected 2024-03-01, got %q", p.PublishedDate)
	}
	if p.URL != "https://pubmed.ncbi.nlm.nih.gov/12345/" {
		t.Errorf("unexpected canonical URL: %q", p.URL)
	}
	if p.Identity() != p.URL {
		t.Error("identity must equal the canonical URL")
	}
}

func TestSearchNoTitleFallback(t *testing.T) {
	srv := newTestServer(t, []string{"99"}, map[string]string{"99": noTitleXML})

	papers, err := newTestClient(srv.URL).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	if papers[0].Title != paper.NoTitle {
		t.Errorf("expected %q, got %q", paper.NoTitle, papers[0].Title)
	}

	// Missing year defaults to the current processing year, first of January.
	want := fmt.Sprintf("%d-01-01", time.Now().Year())
	if papers[0].PublishedDate != want {
		t.Errorf("expected %q, got %q", want, papers[0].PublishedDate)
	}
}

func TestSearchDropsBadDetailRecord(t *testing.T) {
	srv := newTestServer(t, []string{"1", "2"}, map[string]string{
		"1": "this is not xml <<<",
		"2": articleXML,
	})

	papers, err := newTestClient(srv.URL).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected the bad record to be dropped, got %d papers", len(papers))
	}
	if papers[0].ID != "2" {
		t.Errorf("expected paper 2 to survive, got %q", papers[0].ID)
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error when the search endpoint fails")
	}
}

func TestNormalizeMonth(t *testing.T) {
	if got := normalizeMonth("Mar"); got != "03" {
		t.Errorf("expected 03, got %q", got)
	}
	if got := normalizeMonth("7"); got != "7" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	if got := paper.NormalizeDate("2023", "7", ""); got != "2023-07-01" {
		t.Errorf("expected 2023-07-01, got %q", got)
	}
	if got := paper.NormalizeDate("2023", "", ""); got != "2023-01-01" {
		t.Errorf("expected 2023-01-01, got %q", got)
	}
}
