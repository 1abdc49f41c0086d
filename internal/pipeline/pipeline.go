// Package pipeline ties the ingestion components together: per query and
// per run it fetches candidates, filters already-seen papers, drives the
// analyzer over new ones, synthesizes the batch, and writes each record,
// marking papers as seen only after a confirmed write.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/avessey/litscan/internal/analyze"
	"github.com/avessey/litscan/internal/config"
	"github.com/avessey/litscan/internal/dedup"
	"github.com/avessey/litscan/internal/engine"
	"github.com/avessey/litscan/internal/feedsrc"
	"github.com/avessey/litscan/internal/fulltext"
	"github.com/avessey/litscan/internal/journal"
	"github.com/avessey/litscan/internal/paper"
	"github.com/avessey/litscan/internal/syncer"
	"github.com/avessey/litscan/internal/synthesize"
)

// Source fetches candidate papers for one query.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]paper.Paper, error)
}

// Store is the knowledge store surface the pipeline needs: the paginated
// listing that seeds the dedup tracker and the per-record insert.
type Store interface {
	dedup.Lister
	syncer.Store
}

// FeedSource provides additional paper batches from journal alert feeds.
type FeedSource interface {
	ParseAll(ctx context.Context) []feedsrc.Batch
}

// Result holds the counters of one full pass over the query list.
type Result struct {
	Queries    int
	Found      int
	New        int
	Duplicates int
	Analyzed   int
	Written    int
	Failed     int
}

// Orchestrator runs one pass at a time. It is not safe for concurrent
// runs; the design assumes a single instance executes at a time.
type Orchestrator struct {
	cfg         *config.Config
	queries     []string
	source      Source
	feeds       FeedSource // optional
	store       Store
	analyzer    *analyze.Analyzer
	synthesizer *synthesize.Synthesizer
	writer      *syncer.Writer
	fulltext    *fulltext.Fetcher // optional
	journal     *journal.DB       // optional
}

// New creates an orchestrator from its collaborators. feeds, ft and jnl
// may be nil.
func New(cfg *config.Config, qs []string, source Source, feeds FeedSource, provider engine.Provider, store Store, ft *fulltext.Fetcher, jnl *journal.DB) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		queries:     qs,
		source:      source,
		feeds:       feeds,
		store:       store,
		analyzer:    analyze.NewAnalyzer(provider),
		synthesizer: synthesize.NewSynthesizer(provider),
		writer:      syncer.NewWriter(store, cfg.Store.StrictFlagging),
		fulltext:    ft,
		journal:     jnl,
	}
}

// Run executes one full pass: load the dedup set, then per query fetch,
// filter, analyze, synthesize and write. No per-paper or per-batch error
// terminates the pass.
func (o *Orchestrator) Run(ctx context.Context) *Result {
	log.Printf("Scan started: %s", time.Now().Format("2006-01-02 15:04"))

	tracker := dedup.Load(ctx, o.store)
	r := &Result{Queries: len(o.queries)}

	var runID int64
	if o.journal != nil {
		id, err := o.journal.BeginRun(len(o.queries))
		if err != nil {
			log.Printf("Journal error (run continues): %v", err)
		} else {
			runID = id
		}
	}

	for _, query := range o.queries {
		log.Printf("Query: %s", query)

		papers, err := o.source.Search(ctx, query, o.cfg.Source.ResultsPerQuery)
		if err != nil {
			log.Printf("Source search failed: %v", err)
			continue
		}
		r.Found += len(papers)

		o.processBatch(ctx, r, runID, tracker, query, papers)
	}

	if o.feeds != nil {
		for _, batch := range o.feeds.ParseAll(ctx) {
			log.Printf("Feed batch: %s", batch.Name)
			r.Found += len(batch.Papers)
			o.processBatch(ctx, r, runID, tracker, batch.Label(), batch.Papers)
		}
	}

	if o.journal != nil && runID != 0 {
		if err := o.journal.FinishRun(runID, r.Found, r.New, r.Written, r.Failed); err != nil {
			log.Printf("Journal error (run continues): %v", err)
		}
	}

	log.Printf("Scan complete: %s (%d found, %d new, %d written, %d failed)",
		time.Now().Format("2006-01-02 15:04"), r.Found, r.New, r.Written, r.Failed)
	return r
}

// processBatch runs the filter → analyze → synthesize → write stages for
// the papers of one query.
func (o *Orchestrator) processBatch(ctx context.Context, r *Result, runID int64, tracker *dedup.Tracker, query string, papers []paper.Paper) {
	var fresh []paper.Paper
	for _, p := range papers {
		if tracker.Contains(p.Identity()) {
			r.Duplicates++
			continue
		}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		log.Println("  No new papers since last run.")
		return
	}
	log.Printf("  %d new paper(s) to process.", len(fresh))
	r.New += len(fresh)

	// Stage 1: per-paper structured analysis. A failed paper is excluded
	// from synthesis and from writing, and stays unseen so the next run
	// retries it.
	type analyzedPaper struct {
		paper    paper.Paper
		analysis *analyze.Analysis
	}
	var analyzed []analyzedPaper
	for _, p := range fresh {
		if p.Abstract == "" && o.fulltext != nil {
			p.Abstract = o.fulltext.Excerpt(p.URL)
		}

		log.Printf("  Analyzing: %.65s...", p.Title)
		a, err := o.analyzer.Analyze(ctx, p)
		if err != nil {
			log.Printf("  Analysis failed for %.50q: %v", p.Title, err)
			r.Failed++
			o.recordItem(runID, query, p, journal.OutcomeAnalysisFailed, err.Error())
		} else {
			analyzed = append(analyzed, analyzedPaper{paper: p, analysis: a})
			r.Analyzed++
		}
		o.pause(ctx, o.cfg.Pacing.AnalyzeDelay())
	}
	if len(analyzed) == 0 {
		return
	}

	// Stage 2: one cross-paper synthesis per batch, shared by every
	// paper in it. Ordinals follow analysis order.
	items := make([]synthesize.Item, len(analyzed))
	for i, ap := range analyzed {
		items[i] = synthesize.Item{
			Title:         ap.paper.Title,
			PublishedDate: ap.paper.PublishedDate,
			Summary:       ap.analysis.Summary,
		}
	}
	log.Printf("  Synthesizing batch of %d paper(s)...", len(analyzed))
	syn := o.synthesizer.Synthesize(ctx, items)
	log.Printf("  Contradictions: %.100s", syn.Contradictions)

	// Stage 3: per-paper writes. The tracker is updated immediately after
	// each confirmed write, so an interrupted run does not re-submit
	// already-written papers after restart.
	for _, ap := range analyzed {
		if tracker.Contains(ap.paper.Identity()) {
			r.Duplicates++
			o.recordItem(runID, query, ap.paper, journal.OutcomeDuplicate, "")
			continue
		}

		if err := o.writer.Write(ctx, ap.paper, ap.analysis, syn, query); err != nil {
			r.Failed++
			o.recordItem(runID, query, ap.paper, journal.OutcomeWriteFailed, err.Error())
		} else {
			log.Printf("  Pushed: %.55q", ap.paper.Title)
			tracker.Record(ap.paper.Identity())
			r.Written++
			o.recordItem(runID, query, ap.paper, journal.OutcomeWritten, "")
		}
		o.pause(ctx, o.cfg.Pacing.WriteDelay())
	}
}

func (o *Orchestrator) recordItem(runID int64, query string, p paper.Paper, outcome, detail string) {
	if o.journal == nil || runID == 0 {
		return
	}
	if err := o.journal.RecordItem(runID, query, p.URL, p.Title, outcome, detail); err != nil {
		log.Printf("Journal error (run continues): %v", err)
	}
}

// pause sleeps the courtesy delay between external calls, returning early
// when the context ends.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
