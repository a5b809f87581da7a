package app

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoralo/newsbrief/internal/classify"
	"github.com/jmoralo/newsbrief/internal/dedup"
	"github.com/jmoralo/newsbrief/internal/extract"
	"github.com/jmoralo/newsbrief/internal/mail"
)

type scriptedCapability struct {
	response string
	calls    int
}

func (s *scriptedCapability) Name() string { return "scripted" }

func (s *scriptedCapability) Extract(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.response, nil
}

// Three newsletters covering the same funding story twice plus one
// robotics story. The pipeline should deliver two items: the merged
// funding story and the robotics one, in display order.
func TestBuildReport_EndToEnd(t *testing.T) {
	msgs := []*mail.Message{
		{ID: "m1", Subject: "Daily digest", Sender: `"TLDR AI" <a@tldr.com>`,
			BodyText: strings.Repeat("funding content ", 10), Link: "email-1"},
		{ID: "m2", Subject: "Morning brief", Sender: `"The Rundown" <b@rundown.ai>`,
			BodyText: strings.Repeat("more funding content ", 10), Link: "email-2"},
		{ID: "m3", Subject: "Robot weekly", Sender: `"The Neuron" <c@neuron.ai>`,
			BodyText: strings.Repeat("robot content ", 10), Link: "email-3"},
	}

	cap := &scriptedCapability{response: `[
		{"headline": "Acme raises 100 million Series B funding",
		 "body": "The startup closed a Series B round led by major venture investors.",
		 "source": "TLDR AI"},
		{"headline": "Acme raises a 100 million dollar Series B in new funding",
		 "body": "Acme announced a large Series B financing round this week.",
		 "source": "The Rundown"},
		{"headline": "Humanoid robot walks a full marathon",
		 "body": "A humanoid robot completed a marathon distance on a single charge.",
		 "source": "The Neuron"}
	]`}

	extractor := extract.New(extract.Config{MinBodyLength: 20, MaxAttempts: 1}, nil, nil, cap)
	rep := BuildReport(context.Background(), msgs, extractor, true, true, dedup.DefaultConfig())

	if cap.calls != 1 {
		t.Errorf("batch mode should call the capability once, got %d", cap.calls)
	}
	if len(rep.Items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(rep.Items))
	}

	// Robots precede funding in display order.
	first, second := rep.Items[0], rep.Items[1]
	if first.Category != classify.CategoryRobots {
		t.Errorf("first item category = %q, want robots", first.Category)
	}
	if second.Category != classify.CategoryFunding {
		t.Errorf("second item category = %q, want funding", second.Category)
	}

	if second.Priority != classify.PriorityHigh {
		t.Errorf("funding item priority = %v, want high", second.Priority)
	}
	if second.Source != "TLDR AI, The Rundown" {
		t.Errorf("merged sources = %q", second.Source)
	}
	if second.EmailLink != "email-1" {
		t.Errorf("merge target should keep the higher-ranked source's links, got %q", second.EmailLink)
	}

	if !strings.HasPrefix(rep.ExecutiveSummary, "2 noticias") {
		t.Errorf("summary = %q", rep.ExecutiveSummary)
	}
}

func TestBuildReport_NoMessages(t *testing.T) {
	extractor := extract.New(extract.Config{}, nil, nil)
	rep := BuildReport(context.Background(), nil, extractor, true, true, dedup.DefaultConfig())

	if len(rep.Items) != 0 {
		t.Fatalf("expected empty report, got %d items", len(rep.Items))
	}
	if rep.ExecutiveSummary != "Sin novedades relevantes. / No relevant updates." {
		t.Errorf("summary = %q", rep.ExecutiveSummary)
	}
}

func TestBuildReport_FallbackStillProducesReport(t *testing.T) {
	msgs := []*mail.Message{
		{ID: "m1", Subject: "AI newsletter issue 42", Sender: "x@y.com",
			BodyText: strings.Repeat("some newsletter content here ", 5)},
	}

	extractor := extract.New(extract.Config{MinBodyLength: 20, MaxAttempts: 1}, nil, nil)
	rep := BuildReport(context.Background(), msgs, extractor, true, false, dedup.DefaultConfig())

	if len(rep.Items) != 1 {
		t.Fatalf("expected 1 fallback item, got %d", len(rep.Items))
	}
	if !rep.Items[0].Fallback {
		t.Error("item should be flagged as fallback")
	}
}
