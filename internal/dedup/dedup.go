// Package dedup merges report items that likely describe the same
// underlying story, using token-overlap similarity over headlines.
//
// The algorithm is O(n²) over the candidate list, which is fine for the
// tens to low hundreds of items a run produces, and fully deterministic:
// the result depends only on input order and the configured thresholds.
package dedup

import (
	"strings"
	"unicode"

	"github.com/jmoralo/newsbrief/internal/report"
)

// Config holds the similarity thresholds. They are empirical constants
// tuned on English/Spanish AI newsletters; treat them as policy, not law.
type Config struct {
	// MinRatio is the minimum |intersection| / min(|A|, |B|) to declare
	// two headlines duplicates.
	MinRatio float64
	// MinCommon is the minimum number of shared significant words. The
	// floor prevents a single shared common word from causing a merge.
	MinCommon int
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{MinRatio: 0.50, MinCommon: 2}
}

// stopwords are dropped before comparing headlines. English and Spanish
// mixed, matching the newsletter corpus.
var stopwords = map[string]struct{}{
	// English
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "at": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "this": {}, "that": {}, "its": {}, "it": {},
	"will": {}, "has": {}, "have": {}, "had": {}, "about": {}, "after": {},
	"new": {}, "today": {}, "now": {}, "just": {}, "more": {}, "how": {},
	"why": {}, "what": {}, "your": {}, "you": {}, "can": {}, "into": {},
	// Spanish
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"unos": {}, "unas": {}, "y": {}, "o": {}, "de": {}, "del": {},
	"en": {}, "para": {}, "con": {}, "por": {}, "que": {}, "se": {},
	"su": {}, "sus": {}, "es": {}, "son": {}, "fue": {}, "este": {},
	"esta": {}, "estos": {}, "estas": {}, "al": {}, "lo": {}, "como": {},
	"más": {}, "pero": {}, "hoy": {}, "ya": {}, "nuevo": {}, "nueva": {},
	"sobre": {}, "tras": {}, "entre": {},
}

// Merge collapses near-duplicates into the earliest occurrence. The input
// must already be ordered so that more authoritative sources come first;
// the earliest kept item is always the merge target. On a match the
// duplicate's source name accretes onto the kept item, nothing else changes.
func Merge(items []report.Item, cfg Config) []report.Item {
	kept := make([]report.Item, 0, len(items))
	keys := make([]map[string]struct{}, 0, len(items))

	for _, item := range items {
		words := significantWords(item.Headline)

		merged := false
		if len(words) > 0 {
			for i, prev := range keys {
				if len(prev) == 0 {
					continue
				}
				if isDuplicate(words, prev, cfg) {
					appendSource(&kept[i], item.Source)
					merged = true
					break // first match wins
				}
			}
		}
		if merged {
			continue
		}

		kept = append(kept, item)
		keys = append(keys, words)
	}
	return kept
}

func isDuplicate(a, b map[string]struct{}, cfg Config) bool {
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	if smaller == 0 {
		return false
	}

	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	if common < cfg.MinCommon {
		return false
	}
	return float64(common)/float64(smaller) >= cfg.MinRatio
}

// appendSource adds name to the kept item's comma-joined source list,
// skipping names already present verbatim.
func appendSource(item *report.Item, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if item.Source == "" {
		item.Source = name
		return
	}
	for _, existing := range strings.Split(item.Source, ",") {
		if strings.TrimSpace(existing) == name {
			return
		}
	}
	item.Source += ", " + name
}

// significantWords lowercases the headline, tokenizes on word boundaries
// and drops stopwords and tokens of two or fewer runes.
func significantWords(headline string) map[string]struct{} {
	lowered := strings.ToLower(headline)

	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	words := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		words[tok] = struct{}{}
	}
	return words
}
