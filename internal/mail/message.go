// Package mail retrieves newsletter messages from a Gmail mailbox. It is
// a thin collaborator: the pipeline core only sees the Message value.
package mail

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Message is one raw newsletter email, immutable once fetched.
type Message struct {
	ID         string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	Snippet    string
	BodyText   string
	BodyHTML   string
	Link       string
	Links      []string
}

var urlRe = regexp.MustCompile(`https?://[^\s)\]>"']+`)
var hrefRe = regexp.MustCompile(`(?i)href=["'](https?://[^"']+)["']`)

// linkSkipPatterns filter tracking, sharing and list-management URLs out
// of the harvested outbound links.
var linkSkipPatterns = []string{
	"unsubscribe", "unsub", "optout", "opt-out",
	"manage-subscription", "preferences",
	"refer", "referral", "share",
	"twitter.com/intent", "facebook.com/sharer",
	"linkedin.com/share", "mailto:",
	"tracking", "click.", "trk.",
	"list-manage.com", "mailchimp.com",
	"beehiiv.com", "substack.com/redirect",
}

func parseMessage(raw *gmail.Message) *Message {
	payload := raw.Payload
	if payload == nil {
		payload = &gmail.MessagePart{}
	}

	headers := make(map[string]string, len(payload.Headers))
	for _, h := range payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}

	subject := headers["subject"]
	if subject == "" {
		subject = "(no subject)"
	}
	sender := headers["from"]
	if sender == "" {
		sender = "(unknown)"
	}

	receivedAt := time.Now().UTC()
	if date := headers["date"]; date != "" {
		if t, err := parseDate(date); err == nil {
			receivedAt = t
		}
	}

	return &Message{
		ID:         raw.Id,
		Subject:    subject,
		Sender:     sender,
		ReceivedAt: receivedAt,
		Snippet:    raw.Snippet,
		BodyText:   extractBody(payload, "text/plain"),
		BodyHTML:   extractBody(payload, "text/html"),
		Link:       "https://mail.google.com/mail/u/0/#inbox/" + raw.Id,
		Links:      extractLinks(payload),
	}
}

func parseDate(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700"}
	var err error
	var t time.Time
	for _, layout := range layouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// extractBody finds the first part of the wanted MIME type, falling back
// to the other type when the message only carries one of them.
func extractBody(payload *gmail.MessagePart, mimeType string) string {
	if len(payload.Parts) > 0 {
		for _, part := range collectParts(payload) {
			if part.MimeType == mimeType && part.Body != nil {
				return decodeBody(part.Body.Data)
			}
		}
		fallback := "text/html"
		if mimeType == "text/html" {
			fallback = "text/plain"
		}
		for _, part := range collectParts(payload) {
			if part.MimeType == fallback && part.Body != nil {
				return decodeBody(part.Body.Data)
			}
		}
		return ""
	}
	if payload.Body != nil {
		return decodeBody(payload.Body.Data)
	}
	return ""
}

// extractLinks harvests outbound URLs from every part, skipping tracking
// and promotional links, preserving first-seen order.
func extractLinks(payload *gmail.MessagePart) []string {
	var links []string
	for _, part := range collectParts(payload) {
		if part.Body == nil || part.Body.Data == "" {
			continue
		}
		text := decodeBody(part.Body.Data)
		switch part.MimeType {
		case "text/plain":
			links = append(links, urlRe.FindAllString(text, -1)...)
		case "text/html":
			for _, m := range hrefRe.FindAllStringSubmatch(text, -1) {
				links = append(links, m[1])
			}
			links = append(links, urlRe.FindAllString(text, -1)...)
		}
	}

	seen := make(map[string]struct{}, len(links))
	deduped := make([]string, 0, len(links))
	for _, link := range links {
		link = strings.TrimRight(link, ".,;)")
		if _, dup := seen[link]; dup {
			continue
		}
		if skipLink(link) {
			continue
		}
		seen[link] = struct{}{}
		deduped = append(deduped, link)
	}
	return deduped
}

func skipLink(link string) bool {
	lowered := strings.ToLower(link)
	for _, pattern := range linkSkipPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

func collectParts(payload *gmail.MessagePart) []*gmail.MessagePart {
	parts := []*gmail.MessagePart{payload}
	for _, part := range payload.Parts {
		parts = append(parts, collectParts(part)...)
	}
	return parts
}

func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		if decoded, err = base64.URLEncoding.DecodeString(data); err != nil {
			return ""
		}
	}
	return string(decoded)
}
