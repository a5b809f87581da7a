// Package extract turns normalized newsletter bodies into candidate news
// items. The primary path delegates to an injectable extraction
// capability (Gemini, then OpenAI); a deterministic fallback guarantees
// every message yields at least one item when no capability cooperates.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoralo/newsbrief/internal/cache"
	"github.com/jmoralo/newsbrief/internal/mail"
	"github.com/jmoralo/newsbrief/internal/metrics"
	"github.com/jmoralo/newsbrief/internal/normalize"
	"github.com/jmoralo/newsbrief/internal/ratelimit"
)

// Sentinel errors the capability variants translate provider failures
// into. Rate limits are retried; quota exhaustion abandons the variant.
var (
	ErrRateLimited    = errors.New("capability rate limited")
	ErrQuotaExhausted = errors.New("capability quota exhausted")
)

// Record is one raw item as returned by a capability.
type Record struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
	Source   string `json:"source,omitempty"`
}

// Capability is the injectable extraction strategy. Extract returns the
// model's raw text response; parsing and validation happen here so every
// variant is held to the same contract.
type Capability interface {
	Name() string
	Extract(ctx context.Context, prompt string) (string, error)
}

// NewsItem is a candidate story before deduplication.
type NewsItem struct {
	Headline   string
	Body       string
	Source     string
	SourceRank int
	Links      []string
	EmailLink  string
	Fallback   bool // set when the deterministic path produced the item
}

// Config tunes validation and retry behavior.
type Config struct {
	MinBodyLength int           // records with shorter bodies are dropped
	MaxAttempts   int           // retries per variant on rate limiting
	RetryDelay    time.Duration // base delay, grows linearly per attempt
	CacheTTL      time.Duration
}

// DefaultConfig matches the production tuning.
func DefaultConfig() Config {
	return Config{
		MinBodyLength: 20,
		MaxAttempts:   3,
		RetryDelay:    5 * time.Second,
		CacheTTL:      6 * time.Hour,
	}
}

// Extractor runs the capability chain with caching, budgets and fallback.
type Extractor struct {
	cfg     Config
	caps    []Capability
	limiter *ratelimit.Limiter
	cache   *cache.Cache
}

// New builds an Extractor. caps may be empty: the extractor then always
// takes the fallback path. limiter and store may be nil.
func New(cfg Config, limiter *ratelimit.Limiter, store *cache.Cache, caps ...Capability) *Extractor {
	if cfg.MinBodyLength <= 0 {
		cfg.MinBodyLength = DefaultConfig().MinBodyLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	return &Extractor{cfg: cfg, caps: caps, limiter: limiter, cache: store}
}

// ExtractMessage produces candidate items for a single message. It never
// returns an empty slice: capability failure of any kind falls back to
// the deterministic extractor.
func (e *Extractor) ExtractMessage(ctx context.Context, msg *mail.Message) []NewsItem {
	body := cleanedBody(msg)
	source := CleanSourceName(msg.Sender)

	raw, err := e.callCapabilities(ctx, singlePrompt(source, msg.Subject, body))
	if err == nil {
		records := parseRecords(raw, e.cfg.MinBodyLength)
		if len(records) > 0 {
			items := make([]NewsItem, 0, len(records))
			for _, rec := range records {
				recSource := rec.Source
				if recSource == "" {
					recSource = source
				}
				items = append(items, e.newItem(rec.Headline, rec.Body, recSource, msg, false))
			}
			return items
		}
		err = errors.New("no valid records in capability output")
	}

	slog.Warn("capability extraction failed, using fallback",
		"source", source, "error", err)
	metrics.Global.IncrementCapabilityFailures()
	return []NewsItem{e.fallbackItem(msg)}
}

// ExtractBatch replaces N capability calls with one, recovering
// per-message attribution through the record source field. Messages whose
// content produced no valid record still yield a fallback item, honoring
// the at-least-one-item guarantee.
func (e *Extractor) ExtractBatch(ctx context.Context, msgs []*mail.Message) []NewsItem {
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) == 1 {
		return e.ExtractMessage(ctx, msgs[0])
	}

	raw, err := e.callCapabilities(ctx, batchPrompt(msgs))
	if err != nil {
		slog.Warn("batch extraction failed, falling back per message", "error", err)
		metrics.Global.IncrementCapabilityFailures()
		items := make([]NewsItem, 0, len(msgs))
		for _, msg := range msgs {
			items = append(items, e.fallbackItem(msg))
		}
		return items
	}

	records := parseRecords(raw, e.cfg.MinBodyLength)
	if len(records) == 0 {
		slog.Warn("batch extraction yielded no valid records, falling back per message")
		metrics.Global.IncrementCapabilityFailures()
		items := make([]NewsItem, 0, len(msgs))
		for _, msg := range msgs {
			items = append(items, e.fallbackItem(msg))
		}
		return items
	}

	items := make([]NewsItem, 0, len(records))
	covered := make(map[string]bool, len(msgs))
	for _, rec := range records {
		msg := attributeMessage(rec.Source, msgs)
		covered[msg.ID] = true
		source := rec.Source
		if source == "" {
			source = CleanSourceName(msg.Sender)
		}
		items = append(items, e.newItem(rec.Headline, rec.Body, source, msg, false))
	}

	// Messages the capability produced no record for still get their
	// fallback item, the one-item-per-message guarantee has no batch
	// exception.
	for _, msg := range msgs {
		if !covered[msg.ID] {
			items = append(items, e.fallbackItem(msg))
		}
	}
	return items
}

// callCapabilities walks the variant chain: rate limits retry with linear
// backoff, quota exhaustion skips straight to the next variant, any other
// failure moves on too. The last error propagates when every variant is
// spent.
func (e *Extractor) callCapabilities(ctx context.Context, prompt string) (string, error) {
	if len(e.caps) == 0 {
		return "", errors.New("no extraction capability configured")
	}

	var key string
	if e.cache != nil {
		key = e.cache.GenerateKey(prompt)
		if raw, ok := e.cache.Get(key); ok {
			slog.Debug("capability cache hit")
			return raw, nil
		}
	}

	var lastErr error
	for _, variant := range e.caps {
		if e.limiter != nil && !e.limiter.Allow(variant.Name()) {
			lastErr = fmt.Errorf("%s: request budget exhausted", variant.Name())
			continue
		}

		raw, err := e.callWithRetry(ctx, variant, prompt)
		if err == nil {
			if e.limiter != nil {
				_ = e.limiter.Use(variant.Name())
			}
			if e.cache != nil {
				e.cache.Set(key, raw, e.cfg.CacheTTL)
			}
			return raw, nil
		}

		lastErr = fmt.Errorf("%s: %w", variant.Name(), err)
		if errors.Is(err, ErrQuotaExhausted) {
			slog.Warn("capability quota exhausted, trying next variant", "variant", variant.Name())
			continue
		}
		slog.Warn("capability variant failed", "variant", variant.Name(), "error", err)
	}
	return "", lastErr
}

// callWithRetry retries rate-limit signals with linearly increasing
// delays. Quota exhaustion is terminal for the variant: no recovery is
// possible within the run.
func (e *Extractor) callWithRetry(ctx context.Context, variant Capability, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		raw, err := variant.Extract(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, ErrQuotaExhausted) {
			return "", err
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}
		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := time.Duration(attempt) * e.cfg.RetryDelay
		slog.Debug("rate limited, backing off", "variant", variant.Name(), "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}

func (e *Extractor) newItem(headline, body, source string, msg *mail.Message, fallback bool) NewsItem {
	return NewsItem{
		Headline:   strings.TrimSpace(headline),
		Body:       strings.TrimSpace(body),
		Source:     strings.TrimSpace(source),
		SourceRank: SourceRank(source),
		Links:      msg.Links,
		EmailLink:  msg.Link,
		Fallback:   fallback,
	}
}

// fallbackItem is the deterministic path: subject as headline, the first
// ~300 characters of cleaned body text as summary. Always succeeds.
func (e *Extractor) fallbackItem(msg *mail.Message) NewsItem {
	source := CleanSourceName(msg.Sender)

	headline := cleanSubject(msg.Subject)
	if headline == "" {
		headline = "Newsletter from " + source
	}

	body := normalize.StripURLs(cleanedBody(msg))
	if runes := []rune(body); len(runes) > 300 {
		cut := string(runes[:300])
		if idx := strings.LastIndex(cut, " "); idx > 200 {
			cut = cut[:idx]
		}
		body = cut + "..."
	}
	if len(body) < e.cfg.MinBodyLength {
		body = fmt.Sprintf("Newsletter from %s: %s", source, msg.Subject)
	}

	metrics.Global.IncrementFallbackExtractions()
	return e.newItem(headline, body, source, msg, true)
}

// cleanedBody prefers the plain-text body and linearizes HTML when that
// is all the message carries.
func cleanedBody(msg *mail.Message) string {
	if strings.TrimSpace(msg.BodyText) != "" {
		return normalize.Clean(msg.BodyText)
	}
	if strings.TrimSpace(msg.BodyHTML) != "" {
		return normalize.Clean(normalize.HTMLToText(msg.BodyHTML))
	}
	return strings.TrimSpace(msg.Snippet)
}

// parseRecords strips code fences, requires a JSON list and applies the
// validation filter. Invalid records are dropped, not corrected.
func parseRecords(raw string, minBodyLength int) []Record {
	raw = stripCodeFences(raw)

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil
	}

	valid := records[:0]
	for _, rec := range records {
		rec.Headline = strings.TrimSpace(rec.Headline)
		rec.Body = strings.TrimSpace(rec.Body)
		rec.Source = strings.TrimSpace(rec.Source)
		if rec.Headline == "" || rec.Body == "" {
			continue
		}
		if len(rec.Body) < minBodyLength {
			continue
		}
		valid = append(valid, rec)
	}
	return valid
}

// stripCodeFences unwraps ```json ... ``` style fencing that models like
// to add around structured output.
func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		raw = raw[idx+1:] // drop the language hint line
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// attributeMessage matches a record's source name back to the message it
// came from; unmatched records attribute to the first message.
func attributeMessage(source string, msgs []*mail.Message) *mail.Message {
	lowered := strings.ToLower(strings.TrimSpace(source))
	if lowered != "" {
		for _, msg := range msgs {
			name := strings.ToLower(CleanSourceName(msg.Sender))
			if name != "" && (strings.Contains(lowered, name) || strings.Contains(name, lowered)) {
				return msg
			}
		}
	}
	return msgs[0]
}
