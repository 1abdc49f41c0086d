package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/avessey/litscan/internal/paper"
)

// mockProvider implements engine.Provider for testing.
type mockProvider struct {
	response string
	err      error
	calls    int
}

func (m *mockProvider) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

var testPaper = paper.Paper{
	ID:            "12345",
	Title:         "Fasting and cognition",
	Abstract:      "A randomized trial of time-restricted eating.",
	PublishedDate: "2024-03-01",
	URL:           "https://pubmed.ncbi.nlm.nih.gov/12345/",
}

func TestAnalyzeFullResponse(t *testing.T) {
	resp, _ := json.Marshal(map[string]string{
		"summary":      "Fasting improved recall.",
		"methods":      "RCT, n=120, 12 weeks",
		"population":   "Adults 40-65 with MCI",
		"effect_sizes": "d=0.4, p=0.01",
		"hypothesis":   "Does fasting timing matter?",
	})

	analyzer := NewAnalyzer(&mockProvider{response: string(resp)})
	a, err := analyzer.Analyze(context.Background(), testPaper)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if a.Summary != "Fasting improved recall." {
		t.Errorf("unexpected summary: %q", a.Summary)
	}
	if a.Hypothesis != "Does fasting timing matter?" {
		t.Errorf("unexpected hypothesis: %q", a.Hypothesis)
	}
}

func TestAnalyzeFillsMissingKeys(t *testing.T) {
	analyzer := NewAnalyzer(&mockProvider{response: `{"summary": "Only a summary."}`})
	a, err := analyzer.Analyze(context.Background(), testPaper)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if a.Summary != "Only a summary." {
		t.Errorf("unexpected summary: %q", a.Summary)
	}
	for name, got := range map[string]string{
		"methods":      a.Methods,
		"population":   a.Population,
		"effect_sizes": a.EffectSizes,
		"hypothesis":   a.Hypothesis,
	} {
		if got != NotExtracted {
			t.Errorf("expected %s to default to %q, got %q", name, NotExtracted, got)
		}
	}
}

func TestAnalyzeUnwrapsArrayResponse(t *testing.T) {
	analyzer := NewAnalyzer(&mockProvider{response: `[{"summary": "Wrapped.", "methods": "m", "population": "p", "effect_sizes": "e", "hypothesis": "h"}]`})
	a, err := analyzer.Analyze(context.Background(), testPaper)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if a.Summary != "Wrapped." {
		t.Errorf("expected unwrapped summary, got %q", a.Summary)
	}
}

func TestAnalyzeEngineError(t *testing.T) {
	analyzer := NewAnalyzer(&mockProvider{err: errors.New("quota exceeded")})
	if _, err := analyzer.Analyze(context.Background(), testPaper); err == nil {
		t.Fatal("expected error from failing engine")
	}
}

func TestAnalyzeNonJSONResponse(t *testing.T) {
	analyzer := NewAnalyzer(&mockProvider{response: "I could not process this paper."})
	if _, err := analyzer.Analyze(context.Background(), testPaper); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}
