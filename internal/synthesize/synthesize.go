package synthesize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/avessey/litscan/internal/engine"
)

// Sentinel contradiction notes. Downstream flagging checks for these, so
// their wording is part of the contract.
const (
	SingleItemNote  = "Only one new paper this run — no cross-paper comparison possible."
	UnavailableNote = "Synthesis unavailable."
)

const synthesisPrompt = `You are a research synthesis expert reviewing %d recent papers on the same topic.

%s

Return ONLY valid JSON with exactly these keys:
- contradictions: Describe any conflicting findings between studies, referencing paper numbers. If none found, say "No direct contradictions detected."
- new_hypotheses: 2-3 novel research hypotheses that emerge from reading these studies together.
`

// Item is one analyzed paper as seen by the synthesizer, in analysis order.
type Item struct {
	Title         string
	PublishedDate string
	Summary       string
}

// Synthesis is the cross-paper correlation result for one batch. Every
// paper in the batch shares the same instance.
type Synthesis struct {
	Contradictions string
	NewHypotheses  string
}

// Synthesizer produces one Synthesis per (query, run) batch.
type Synthesizer struct {
	provider engine.Provider
}

// NewSynthesizer creates a new batch synthesizer.
func NewSynthesizer(provider engine.Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Synthesize correlates the analyzed papers of one batch. Batches with
// fewer than two items return the single-item sentinel without an engine
// call; an engine failure degrades to the unavailable sentinel. Neither
// case blocks per-item writes.
func (s *Synthesizer) Synthesize(ctx context.Context, items []Item) *Synthesis {
	if len(items) < 2 {
		return &Synthesis{Contradictions: SingleItemNote}
	}

	prompt := fmt.Sprintf(synthesisPrompt, len(items), formatSummaries(items))

	responseText, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		log.Printf("Synthesis failed: %v", err)
		return &Synthesis{Contradictions: UnavailableNote}
	}

	parsed := engine.ParseJSONObject(responseText)
	if parsed == nil {
		log.Println("Synthesis response was not valid JSON")
		return &Synthesis{Contradictions: UnavailableNote}
	}

	return &Synthesis{
		Contradictions: engine.GetString(parsed, "contradictions", ""),
		NewHypotheses:  engine.GetString(parsed, "new_hypotheses", ""),
	}
}

// formatSummaries numbers the papers in analysis order so a contradiction
// note referencing "paper 2" is unambiguous to a reviewer.
func formatSummaries(items []Item) string {
	var parts []string
	for i, item := range items {
		year := item.PublishedDate
		if len(year) > 4 {
			year = year[:4]
		}
		parts = append(parts, fmt.Sprintf("[%d] %s (%s): %s", i+1, item.Title, year, item.Summary))
	}
	return strings.Join(parts, "\n\n")
}
