package report

import (
	"strings"
	"testing"

	"github.com/jmoralo/newsbrief/internal/classify"
)

func TestAssemble_GroupsByDisplayOrderThenPriority(t *testing.T) {
	items := []Item{
		{Headline: "general low", Category: classify.CategoryGeneral, Priority: classify.PriorityLow},
		{Headline: "funding high", Category: classify.CategoryFunding, Priority: classify.PriorityHigh},
		{Headline: "models medium", Category: classify.CategoryNewModels, Priority: classify.PriorityMedium},
		{Headline: "models high", Category: classify.CategoryNewModels, Priority: classify.PriorityHigh},
	}

	rep := Assemble(items, false)

	want := []string{"models high", "models medium", "funding high", "general low"}
	if len(rep.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(rep.Items))
	}
	for i, headline := range want {
		if rep.Items[i].Headline != headline {
			t.Errorf("position %d: got %q, want %q", i, rep.Items[i].Headline, headline)
		}
	}
}

func TestAssemble_StableWithinSamePriority(t *testing.T) {
	items := []Item{
		{Headline: "first", Category: classify.CategoryApps, Priority: classify.PriorityMedium},
		{Headline: "second", Category: classify.CategoryApps, Priority: classify.PriorityMedium},
		{Headline: "third", Category: classify.CategoryApps, Priority: classify.PriorityMedium},
	}

	rep := Assemble(items, false)
	for i, want := range []string{"first", "second", "third"} {
		if rep.Items[i].Headline != want {
			t.Errorf("ties reordered: position %d is %q, want %q", i, rep.Items[i].Headline, want)
		}
	}
}

func TestExecutiveSummary_CountsTiersAndCategories(t *testing.T) {
	items := []Item{
		{Category: classify.CategoryFunding, Priority: classify.PriorityHigh},
		{Category: classify.CategoryFunding, Priority: classify.PriorityHigh},
		{Category: classify.CategoryResearch, Priority: classify.PriorityMedium},
		{Category: classify.CategoryGeneral, Priority: classify.PriorityLow},
	}

	rep := Assemble(items, true)

	if !strings.HasPrefix(rep.ExecutiveSummary, "4 noticias (2 alta, 1 media, 1 baja)") {
		t.Errorf("summary counts wrong: %q", rep.ExecutiveSummary)
	}
	// Category breakdown follows display order.
	if !strings.HasSuffix(rep.ExecutiveSummary, "research: 1, funding: 2, general: 1") {
		t.Errorf("summary breakdown wrong: %q", rep.ExecutiveSummary)
	}
}

func TestExecutiveSummary_EmptyReport(t *testing.T) {
	rep := Assemble(nil, true)
	if rep.ExecutiveSummary != "Sin novedades relevantes. / No relevant updates." {
		t.Errorf("empty summary wrong: %q", rep.ExecutiveSummary)
	}
}

func TestAssemble_SummaryCanBeDisabled(t *testing.T) {
	rep := Assemble([]Item{{Category: classify.CategoryGeneral}}, false)
	if rep.ExecutiveSummary != "" {
		t.Errorf("summary should be empty when disabled, got %q", rep.ExecutiveSummary)
	}
}
