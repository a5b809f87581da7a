// Package app orchestrates one pipeline run: fetch, extract, classify,
// deduplicate, assemble, deliver.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jmoralo/newsbrief/internal/cache"
	"github.com/jmoralo/newsbrief/internal/classify"
	"github.com/jmoralo/newsbrief/internal/config"
	"github.com/jmoralo/newsbrief/internal/dedup"
	"github.com/jmoralo/newsbrief/internal/docs"
	"github.com/jmoralo/newsbrief/internal/extract"
	"github.com/jmoralo/newsbrief/internal/mail"
	"github.com/jmoralo/newsbrief/internal/metrics"
	"github.com/jmoralo/newsbrief/internal/ratelimit"
	"github.com/jmoralo/newsbrief/internal/report"
	"github.com/jmoralo/newsbrief/internal/storage"
)

// Options adjust a single run without touching the config file.
type Options struct {
	Label       string
	MaxMessages int64
	StateFile   string
	TitlePrefix string
	DryRun      bool
}

// Result summarizes what a run produced.
type Result struct {
	RunID    string
	DocID    string
	DocURL   string
	Items    int
	Messages int
}

// App owns the pipeline collaborators for repeated runs.
type App struct {
	cfg       *config.Config
	mail      *mail.Client
	docs      *docs.Client
	extractor *extract.Extractor
	archive   *storage.Archive
	closers   []func()
}

// New wires the pipeline from configuration. Missing API keys reduce the
// capability chain; a missing Postgres DSN disables archiving.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	mailClient, err := mail.NewClient(ctx, cfg.Gmail.CredentialsPath, cfg.Gmail.TokenPath, cfg.Gmail.Scopes)
	if err != nil {
		return nil, fmt.Errorf("gmail client: %w", err)
	}

	docsClient, err := docs.NewClient(ctx, cfg.Gmail.CredentialsPath, cfg.Gmail.TokenPath, cfg.Gmail.Scopes)
	if err != nil {
		return nil, fmt.Errorf("docs client: %w", err)
	}

	app := &App{cfg: cfg, mail: mailClient, docs: docsClient}

	var caps []extract.Capability
	if cfg.Extraction.GeminiAPIKey != "" {
		gem, err := extract.NewGemini(ctx, cfg.Extraction.GeminiAPIKey, cfg.Extraction.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini capability: %w", err)
		}
		app.closers = append(app.closers, gem.Close)
		caps = append(caps, gem)
	}
	if cfg.Extraction.OpenAIAPIKey != "" {
		caps = append(caps, extract.NewOpenAI(cfg.Extraction.OpenAIAPIKey, cfg.Extraction.OpenAIModel))
	}
	if len(caps) == 0 {
		slog.Warn("no extraction capability configured, every item will use the fallback path")
	}

	limiter := ratelimit.New(map[string]int{
		"gemini": cfg.Extraction.GeminiBudget,
		"openai": cfg.Extraction.OpenAIBudget,
	}, cfg.Extraction.TotalBudget)

	app.extractor = extract.New(extract.Config{
		MinBodyLength: cfg.Extraction.MinBodyLength,
		MaxAttempts:   cfg.Extraction.MaxAttempts,
		RetryDelay:    time.Duration(cfg.Extraction.RetryDelaySeconds) * time.Second,
		CacheTTL:      time.Duration(cfg.Extraction.CacheTTLHours) * time.Hour,
	}, limiter, cache.New(), caps...)

	if cfg.PostgresDSN != "" {
		archive, err := storage.NewArchive(cfg.PostgresDSN, cfg.ArchiveTTL)
		if err != nil {
			// The run is more important than its history.
			slog.Warn("archive unavailable, continuing without it", "error", err)
		} else {
			app.archive = archive
			app.closers = append(app.closers, func() { archive.Close() })
		}
	}

	return app, nil
}

// Close releases capability and archive connections.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		closeFn()
	}
}

// Run executes one full pipeline pass.
func (a *App) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	slog.Info("starting run", "run_id", runID, "dry_run", opts.DryRun)

	label := a.cfg.Gmail.Label
	if opts.Label != "" {
		label = opts.Label
	}
	maxMessages := a.cfg.Gmail.MaxMessages
	if opts.MaxMessages > 0 {
		maxMessages = opts.MaxMessages
	}
	statePath := a.cfg.StateFilePath
	if opts.StateFile != "" {
		statePath = opts.StateFile
	}
	titlePrefix := a.cfg.Report.TitlePrefix
	if opts.TitlePrefix != "" {
		titlePrefix = opts.TitlePrefix
	}

	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	windowStart, windowEnd, err := ComputeWindow(time.Now().In(loc), a.cfg.Schedule.Times)
	if err != nil {
		return nil, err
	}
	slog.Info("fetch window computed", "start", windowStart, "end", windowEnd)

	msgs, err := a.mail.FetchMessages(ctx, label, maxMessages, windowStart, windowEnd)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	metrics.Global.AddMessagesFetched(len(msgs))

	rep := BuildReport(ctx, msgs, a.extractor, a.cfg.Extraction.BatchMode,
		a.cfg.Report.IncludeExecSummary, dedup.Config{
			MinRatio:  a.cfg.Dedup.MinRatio,
			MinCommon: a.cfg.Dedup.MinCommon,
		})

	result := &Result{RunID: runID, Items: len(rep.Items), Messages: len(msgs)}

	if !opts.DryRun {
		docID, docURL, err := a.docs.Deliver(ctx, titlePrefix, rep)
		if err != nil {
			metrics.Global.SetError(err.Error())
			return nil, fmt.Errorf("deliver report: %w", err)
		}
		result.DocID = docID
		result.DocURL = docURL
		metrics.Global.IncrementReportsDelivered()

		if a.cfg.Gmail.MarkAsRead && len(msgs) > 0 {
			ids := make([]string, 0, len(msgs))
			for _, msg := range msgs {
				ids = append(ids, msg.ID)
			}
			if err := a.mail.MarkAsRead(ctx, ids); err != nil {
				slog.Warn("could not mark messages as read", "error", err)
			}
		}

		if a.archive != nil {
			if err := a.archive.SaveReport(runID, docID, rep); err != nil {
				slog.Warn("could not archive report", "error", err)
			}
			if err := a.archive.Cleanup(); err != nil {
				slog.Warn("archive cleanup failed", "error", err)
			}
		}
	}

	state := &storage.RunState{
		RunID:       runID,
		LastRun:     time.Now().UTC(),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		LastDocID:   result.DocID,
		LastCount:   len(msgs),
	}
	if err := storage.SaveState(statePath, state); err != nil {
		slog.Warn("could not save run state", "error", err)
	}

	metrics.Global.RecordRunDuration(time.Since(started))
	metrics.Global.SetLastRun()
	slog.Info("run finished", "run_id", runID,
		"messages", len(msgs), "items", len(rep.Items), "doc_id", result.DocID)
	return result, nil
}

// BuildReport is the pure pipeline core: extraction, classification,
// ordering and deduplication, without any delivery side effects.
func BuildReport(ctx context.Context, msgs []*mail.Message, extractor *extract.Extractor,
	batchMode, includeSummary bool, dedupCfg dedup.Config) *report.Report {

	var extracted []extract.NewsItem
	if batchMode && len(msgs) > 1 {
		extracted = extractor.ExtractBatch(ctx, msgs)
	} else {
		for _, msg := range msgs {
			extracted = append(extracted, extractor.ExtractMessage(ctx, msg)...)
		}
	}
	metrics.Global.AddItemsExtracted(len(extracted))

	items := make([]report.Item, 0, len(extracted))
	for _, candidate := range extracted {
		text := candidate.Headline + " " + candidate.Body
		category := classify.Categorize(text)
		items = append(items, report.Item{
			Headline:   candidate.Headline,
			Body:       candidate.Body,
			Source:     candidate.Source,
			SourceRank: candidate.SourceRank,
			Category:   category,
			Priority:   classify.Score(category, text),
			Links:      candidate.Links,
			EmailLink:  candidate.EmailLink,
			Fallback:   candidate.Fallback,
		})
	}

	// Stable so same-rank items keep extraction order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SourceRank < items[j].SourceRank
	})

	before := len(items)
	items = dedup.Merge(items, dedupCfg)
	metrics.Global.AddDuplicatesMerged(before - len(items))

	return report.Assemble(items, includeSummary)
}
