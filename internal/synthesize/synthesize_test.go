package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockProvider implements engine.Provider for testing.
type mockProvider struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockProvider) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func TestSynthesizeSingleItemSkipsEngine(t *testing.T) {
	mock := &mockProvider{}
	syn := NewSynthesizer(mock).Synthesize(context.Background(), []Item{
		{Title: "Alone", PublishedDate: "2024-01-01", Summary: "Solo finding."},
	})

	if mock.calls != 0 {
		t.Errorf("expected no engine calls for a single-item batch, got %d", mock.calls)
	}
	if syn.Contradictions != SingleItemNote {
		t.Errorf("expected single-item sentinel, got %q", syn.Contradictions)
	}
	if syn.NewHypotheses != "" {
		t.Errorf("expected empty hypotheses, got %q", syn.NewHypotheses)
	}
}

func TestSynthesizeEmptyBatch(t *testing.T) {
	mock := &mockProvider{}
	syn := NewSynthesizer(mock).Synthesize(context.Background(), nil)
	if mock.calls != 0 {
		t.Error("expected no engine calls for an empty batch")
	}
	if syn.Contradictions != SingleItemNote {
		t.Errorf("expected single-item sentinel, got %q", syn.Contradictions)
	}
}

func TestSynthesizeMultiItem(t *testing.T) {
	mock := &mockProvider{
		response: `{"contradictions": "Paper 1 conflicts with paper 2 on dosage.", "new_hypotheses": "H1. H2."}`,
	}
	syn := NewSynthesizer(mock).Synthesize(context.Background(), []Item{
		{Title: "First", PublishedDate: "2023-05-01", Summary: "A."},
		{Title: "Second", PublishedDate: "2024-01-01", Summary: "B."},
	})

	if mock.calls != 1 {
		t.Errorf("expected exactly one engine call per batch, got %d", mock.calls)
	}
	if syn.Contradictions != "Paper 1 conflicts with paper 2 on dosage." {
		t.Errorf("unexpected contradictions: %q", syn.Contradictions)
	}
	if syn.NewHypotheses != "H1. H2." {
		t.Errorf("unexpected hypotheses: %q", syn.NewHypotheses)
	}
}

func TestSynthesizePromptOrdinalOrder(t *testing.T) {
	mock := &mockProvider{response: `{"contradictions": "", "new_hypotheses": ""}`}
	NewSynthesizer(mock).Synthesize(context.Background(), []Item{
		{Title: "Alpha", PublishedDate: "2023-05-01", Summary: "A."},
		{Title: "Beta", PublishedDate: "2024-01-01", Summary: "B."},
		{Title: "Gamma", PublishedDate: "2022-11-01", Summary: "C."},
	})

	first := strings.Index(mock.lastPrompt, "[1] Alpha (2023)")
	second := strings.Index(mock.lastPrompt, "[2] Beta (2024)")
	third := strings.Index(mock.lastPrompt, "[3] Gamma (2022)")
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("expected numbered summaries in prompt, got:\n%s", mock.lastPrompt)
	}
	if !(first < second && second < third) {
		t.Error("expected summaries in analysis order")
	}
}

func TestSynthesizeEngineFailureDegrades(t *testing.T) {
	mock := &mockProvider{err: errors.New("timeout")}
	syn := NewSynthesizer(mock).Synthesize(context.Background(), []Item{
		{Title: "A"}, {Title: "B"},
	})
	if syn.Contradictions != UnavailableNote {
		t.Errorf("expected unavailable sentinel, got %q", syn.Contradictions)
	}
}

func TestSynthesizeNonJSONDegrades(t *testing.T) {
	mock := &mockProvider{response: "no contradictions here, plain prose"}
	syn := NewSynthesizer(mock).Synthesize(context.Background(), []Item{
		{Title: "A"}, {Title: "B"},
	})
	if syn.Contradictions != UnavailableNote {
		t.Errorf("expected unavailable sentinel, got %q", syn.Contradictions)
	}
}
