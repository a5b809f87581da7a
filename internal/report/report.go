// Package report holds the final digest model and the assembler that
// groups and orders deduplicated items into a Report.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoralo/newsbrief/internal/classify"
)

// Item is a single deduplicated story. Source may carry a comma-joined
// list of newsletter names when near-duplicates were merged; the list only
// ever grows, existing names are never reordered or dropped.
type Item struct {
	Headline   string
	Body       string
	Source     string
	SourceRank int
	Category   classify.Category
	Priority   classify.Priority
	Links      []string
	EmailLink  string
	Fallback   bool // true when the deterministic extractor produced it
}

// Report is the terminal artifact handed to the delivery collaborator.
type Report struct {
	GeneratedAt      time.Time
	ExecutiveSummary string
	Items            []Item
}

// Assemble groups items by category in the fixed display order and
// stable-sorts each group by priority, keeping extraction order for ties.
func Assemble(items []Item, includeSummary bool) *Report {
	byCategory := make(map[classify.Category][]Item, len(classify.DisplayOrder))
	for _, it := range items {
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}

	ordered := make([]Item, 0, len(items))
	for _, cat := range classify.DisplayOrder {
		group := byCategory[cat]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority < group[j].Priority
		})
		ordered = append(ordered, group...)
	}

	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Items:       ordered,
	}
	if includeSummary {
		rep.ExecutiveSummary = executiveSummary(ordered)
	}
	return rep
}

// executiveSummary is computed, never authored by the extraction
// capability, so the field stays deterministic.
func executiveSummary(items []Item) string {
	if len(items) == 0 {
		return "Sin novedades relevantes. / No relevant updates."
	}

	var high, medium, low int
	perCategory := make(map[classify.Category]int)
	for _, it := range items {
		perCategory[it.Category]++
		switch it.Priority {
		case classify.PriorityHigh:
			high++
		case classify.PriorityMedium:
			medium++
		default:
			low++
		}
	}

	var parts []string
	for _, cat := range classify.DisplayOrder {
		if n := perCategory[cat]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", cat, n))
		}
	}

	return fmt.Sprintf("%d noticias (%d alta, %d media, %d baja): %s",
		len(items), high, medium, low, strings.Join(parts, ", "))
}
