// Package syncer maps one analyzed paper plus its batch synthesis into the
// knowledge store's record shape and performs the insert.
package syncer

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/avessey/litscan/internal/analyze"
	"github.com/avessey/litscan/internal/notion"
	"github.com/avessey/litscan/internal/paper"
	"github.com/avessey/litscan/internal/synthesize"
)

// crossPaperLabel heads the batch-wide portion of the merged hypothesis.
const crossPaperLabel = "[Cross-paper hypotheses]"

// noFlagMarkers are lowercase substrings whose presence in a contradiction
// note means it is a sentinel, not a substantive finding. Fragile to engine
// wording drift, which is why they are collected in one place.
var noFlagMarkers = []string{
	"no direct contradictions",
	"unavailable",
	"only one",
}

// Store is the insert surface of the knowledge store.
type Store interface {
	CreatePage(ctx context.Context, rec notion.Record) error
}

// Writer builds sync records and writes them to the store.
type Writer struct {
	store  Store
	strict bool
}

// NewWriter creates a new sync writer. When strict is true, a paper is
// flagged only if the contradiction note names that paper's title;
// otherwise a substantive note flags the whole batch.
func NewWriter(store Store, strict bool) *Writer {
	return &Writer{store: store, strict: strict}
}

// Write inserts one record. Failure is reported to the caller and logged
// with the store's error payload; it never aborts the run, and the caller
// must not mark the paper as seen.
func (w *Writer) Write(ctx context.Context, p paper.Paper, a *analyze.Analysis, s *synthesize.Synthesis, query string) error {
	rec := notion.Record{
		Title:       p.Title,
		Date:        p.PublishedDate,
		Summary:     a.Summary,
		Methods:     a.Methods,
		Population:  a.Population,
		EffectSizes: a.EffectSizes,
		Hypothesis:  MergeHypotheses(a.Hypothesis, s.NewHypotheses),
		Contradicts: s.Contradictions,
		Link:        p.URL,
		Query:       query,
		Flagged:     w.flagged(s.Contradictions, p.Title),
	}

	if err := w.store.CreatePage(ctx, rec); err != nil {
		var apiErr *notion.APIError
		if errors.As(err, &apiErr) {
			log.Printf("Store rejected %q: message=%q code=%q", p.Title, apiErr.Message, apiErr.Code)
		} else {
			log.Printf("Store write failed for %q: %v", p.Title, err)
		}
		return err
	}
	return nil
}

// MergeHypotheses joins the per-paper hypothesis with the batch-level
// hypotheses, paper-specific part first. The batch part is omitted when
// empty.
func MergeHypotheses(itemHypothesis, batchHypotheses string) string {
	var parts []string
	if itemHypothesis != "" {
		parts = append(parts, itemHypothesis)
	}
	if batchHypotheses != "" {
		parts = append(parts, crossPaperLabel+"\n"+batchHypotheses)
	}
	return strings.Join(parts, "\n\n")
}

// flagged decides whether a contradiction note marks this paper. A note
// is substantive when it is non-empty and matches none of the sentinel
// markers; the strict variant additionally requires the note to mention
// the paper's title.
func (w *Writer) flagged(note, title string) bool {
	if note == "" {
		return false
	}
	lower := strings.ToLower(note)
	for _, marker := range noFlagMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if !w.strict {
		return true
	}
	return strings.Contains(lower, strings.ToLower(titlePrefix(title)))
}

// titlePrefix returns the leading part of a title used for strict note
// matching; full titles rarely survive engine paraphrasing intact.
func titlePrefix(title string) string {
	runes := []rune(title)
	if len(runes) > 40 {
		return string(runes[:40])
	}
	return title
}
