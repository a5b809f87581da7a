package mail

import (
	"encoding/base64"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestParseMessage_HeadersAndBodies(t *testing.T) {
	raw := &gmail.Message{
		Id:      "abc123",
		Snippet: "snippet text",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Weekly AI digest"},
				{Name: "From", Value: `"TLDR AI" <dan@tldrnewsletter.com>`},
				{Name: "Date", Value: "Mon, 10 Mar 2025 08:30:00 +0100"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("plain body")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>html body</p>")}},
			},
		},
	}

	msg := parseMessage(raw)
	if msg.Subject != "Weekly AI digest" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.Sender != `"TLDR AI" <dan@tldrnewsletter.com>` {
		t.Errorf("sender = %q", msg.Sender)
	}
	if msg.BodyText != "plain body" {
		t.Errorf("plain body = %q", msg.BodyText)
	}
	if msg.BodyHTML != "<p>html body</p>" {
		t.Errorf("html body = %q", msg.BodyHTML)
	}
	if !strings.HasSuffix(msg.Link, "abc123") {
		t.Errorf("permalink = %q", msg.Link)
	}
	if msg.ReceivedAt.UTC().Hour() != 7 {
		t.Errorf("date not parsed with offset: %v", msg.ReceivedAt)
	}
}

func TestParseMessage_MissingHeadersGetPlaceholders(t *testing.T) {
	msg := parseMessage(&gmail.Message{Id: "x", Payload: &gmail.MessagePart{}})
	if msg.Subject != "(no subject)" {
		t.Errorf("subject placeholder = %q", msg.Subject)
	}
	if msg.Sender != "(unknown)" {
		t.Errorf("sender placeholder = %q", msg.Sender)
	}
}

func TestExtractBody_FallsBackToOtherMimeType(t *testing.T) {
	payload := &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>only html</p>")}},
		},
	}
	if got := extractBody(payload, "text/plain"); got != "<p>only html</p>" {
		t.Errorf("fallback body = %q", got)
	}
}

func TestExtractLinks_FiltersAndDeduplicates(t *testing.T) {
	body := strings.Join([]string{
		"Read https://example.com/story.",
		"Again https://example.com/story",
		"Manage at https://list-manage.com/prefs",
		"Unsub https://example.com/unsubscribe?u=1",
		"Share https://twitter.com/intent/tweet?x=1",
		"Other https://example.com/other)",
	}, "\n")

	payload := &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode(body)}},
		},
	}

	links := extractLinks(payload)
	want := []string{"https://example.com/story", "https://example.com/other"}
	if len(links) != len(want) {
		t.Fatalf("got %d links %v, want %d", len(links), links, len(want))
	}
	for i, link := range want {
		if links[i] != link {
			t.Errorf("link %d = %q, want %q", i, links[i], link)
		}
	}
}

func TestExtractLinks_HTMLHrefs(t *testing.T) {
	html := `<a href="https://example.com/a">one</a> <a href='https://example.com/b'>two</a>`
	payload := &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode(html)}},
		},
	}

	links := extractLinks(payload)
	if len(links) != 2 {
		t.Fatalf("got %v", links)
	}
}

func TestDecodeBody_AcceptsBothBase64Alphabets(t *testing.T) {
	if got := decodeBody(base64.URLEncoding.EncodeToString([]byte("padded=="))); got != "padded==" {
		t.Errorf("padded encoding not handled: %q", got)
	}
	if got := decodeBody("!!not base64!!"); got != "" {
		t.Errorf("invalid input should decode to empty, got %q", got)
	}
}
