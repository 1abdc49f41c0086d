package analyze

import (
	"context"
	"fmt"
	"log"

	"github.com/avessey/litscan/internal/engine"
	"github.com/avessey/litscan/internal/paper"
)

// NotExtracted fills any field the engine omitted, so a record never
// carries a missing key into the store.
const NotExtracted = "Not extracted"

const analysisPrompt = `You are a biomedical research assistant. Analyze this study and return structured JSON.

Title: %s
Abstract: %s

Return ONLY valid JSON with exactly these keys:
- summary: One clear sentence summarizing the main finding.
- methods: Study design and methods used (e.g. RCT, cohort, n=X, duration).
- population: Who was studied (age range, condition, inclusion criteria).
- effect_sizes: Key quantitative results (OR, HR, p-values, confidence intervals). If not reported, say "Not reported".
- hypothesis: One concrete new research question or grant idea this finding inspires.
`

// Analysis is the structured extraction of a single paper. All five fields
// are populated by the time an Analysis leaves this package, regardless of
// what the engine returned.
type Analysis struct {
	Summary     string
	Methods     string
	Population  string
	EffectSizes string
	Hypothesis  string
}

// Analyzer turns a paper's free text into an Analysis via the engine.
type Analyzer struct {
	provider engine.Provider
}

// NewAnalyzer creates a new paper analyzer.
func NewAnalyzer(provider engine.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Analyze extracts structured fields for one paper. An engine error or a
// non-JSON response fails the paper for this run; missing keys are filled
// with the NotExtracted sentinel instead of failing.
func (a *Analyzer) Analyze(ctx context.Context, p paper.Paper) (*Analysis, error) {
	prompt := fmt.Sprintf(analysisPrompt, p.Title, p.Abstract)

	responseText, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed := engine.ParseJSONObject(responseText)
	if parsed == nil {
		return nil, fmt.Errorf("engine returned non-JSON response")
	}

	result := &Analysis{
		Summary:     engine.GetString(parsed, "summary", NotExtracted),
		Methods:     engine.GetString(parsed, "methods", NotExtracted),
		Population:  engine.GetString(parsed, "population", NotExtracted),
		EffectSizes: engine.GetString(parsed, "effect_sizes", NotExtracted),
		Hypothesis:  engine.GetString(parsed, "hypothesis", NotExtracted),
	}

	for _, key := range []string{"summary", "methods", "population", "effect_sizes", "hypothesis"} {
		if _, ok := parsed[key]; !ok {
			log.Printf("Engine omitted %q for %q, using default", key, truncateTitle(p.Title))
		}
	}

	return result, nil
}

func truncateTitle(title string) string {
	if len(title) > 50 {
		return title[:50]
	}
	return title
}
