package normalize

import (
	"strings"
	"testing"
)

func TestClean_RemovesZeroWidthCharacters(t *testing.T) {
	in := "Open\u200BAI ships\u200C a new\uFEFF model"
	got := Clean(in)
	if got != "OpenAI ships a new model" {
		t.Errorf("zero-width characters not removed: %q", got)
	}
}

func TestClean_NormalizesLineEndingsAndBlankLines(t *testing.T) {
	in := "first\r\n\r\n\r\n\r\nsecond   \r\nthird"
	got := Clean(in)
	want := "first\n\nsecond\nthird"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"first\r\n\r\n\r\nsecond",
		strings.Repeat("Real story content here. ", 20) + "\nUnsubscribe from this list",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestClean_TwoMarkersReachFixpointInOnePass(t *testing.T) {
	// An early marker mention sits below 30% of the full text but above
	// 30% of the text that remains after the real footer is cut. A single
	// Clean must already settle on the final result.
	early := strings.Repeat("Intro paragraph text. ", 6) // ~130 chars
	middle := strings.Repeat("More story details here. ", 10)
	late := strings.Repeat("Trailing promo content. ", 25)
	in := early + "unsubscribe rates article. " + middle + "All rights reserved " + late

	once := Clean(in)
	twice := Clean(once)
	if once != twice {
		t.Fatalf("Clean not idempotent: first %d chars, second %d chars", len(once), len(twice))
	}
	if strings.Contains(strings.ToLower(once), "all rights reserved") {
		t.Errorf("footer survived: %q", once)
	}
}

func TestStripFooter_CutsAtLateMarker(t *testing.T) {
	content := strings.Repeat("Real AI news content. ", 30)
	in := content + "\nUnsubscribe from this newsletter\nAcme Corp, 123 Street"
	got := Clean(in)
	if strings.Contains(strings.ToLower(got), "unsubscribe") {
		t.Errorf("footer not stripped: %q", got)
	}
	if !strings.Contains(got, "Real AI news content.") {
		t.Errorf("content lost while stripping footer: %q", got)
	}
}

func TestStripFooter_KeepsEarlyMarkerMention(t *testing.T) {
	// The marker phrase appears in the first 30% of the text, where it is
	// genuine content, not boilerplate.
	in := "How unsubscribe flows hurt retention. " + strings.Repeat("Detailed analysis follows here. ", 30)
	got := Clean(in)
	if !strings.Contains(got, "unsubscribe flows") {
		t.Errorf("early mention wrongly treated as footer: %q", got)
	}
}

func TestStripFooter_MarkerOrderDecidesCut(t *testing.T) {
	content := strings.Repeat("Story text goes on and on. ", 20)
	in := content + "All rights reserved\nmore trailing text\nUnsubscribe here"
	got := stripFooter(in)
	// "unsubscribe" comes before the rights marker in the marker list, so
	// the cut lands at its occurrence even though the rights line appears
	// earlier in the text.
	if strings.Contains(strings.ToLower(got), "unsubscribe") {
		t.Errorf("cut missed the higher-priority marker: %q", got)
	}
	if !strings.Contains(got, "All rights reserved") {
		t.Errorf("cut ignored marker list order: %q", got)
	}
}

func TestHTMLToText_DropsScriptAndStyle(t *testing.T) {
	in := `<html><head><style>p { color: red }</style></head>
<body><script>alert("x")</script><p>Hello &amp; welcome</p><div>Second block</div></body></html>`
	got := HTMLToText(in)
	if strings.Contains(got, "alert") || strings.Contains(got, "color") {
		t.Errorf("script or style content leaked: %q", got)
	}
	want := "Hello & welcome\nSecond block"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHTMLToText_BreaksOnBlockElements(t *testing.T) {
	in := "<h1>Title</h1><p>Paragraph one</p>Inline <b>bold</b> text<br>after break"
	got := HTMLToText(in)
	lines := strings.Split(got, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "Title" {
		t.Errorf("first line = %q, want %q", lines[0], "Title")
	}
	if lines[1] != "Paragraph one" {
		t.Errorf("second line = %q, want %q", lines[1], "Paragraph one")
	}
}

func TestStripURLs(t *testing.T) {
	in := "Read more at https://example.com/story?id=1 and tell us"
	got := StripURLs(in)
	want := "Read more at and tell us"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
