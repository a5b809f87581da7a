// Package normalize turns raw newsletter bodies into text the extractor
// can work with: invisible characters removed, footers and boilerplate
// stripped, HTML linearized. Everything here is a pure function of its
// input.
package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// footerMarkers signal the start of newsletter boilerplate. Order matters:
// the first marker with a valid occurrence decides the cut point.
var footerMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^[-_]{10,}\s*$`),
	regexp.MustCompile(`(?i)unsubscribe`),
	regexp.MustCompile(`(?i)darse de baja`),
	regexp.MustCompile(`(?i)cancelar (la )?suscripci[oó]n`),
	regexp.MustCompile(`(?i)manage (your )?(subscription|preferences)`),
	regexp.MustCompile(`(?i)refer a friend`),
	regexp.MustCompile(`(?i)view (this email )?in (your )?browser`),
	regexp.MustCompile(`(?i)you( a|')re receiving this (e-?mail|message)`),
	regexp.MustCompile(`(?i)why did I get this`),
	regexp.MustCompile(`(?i)privacy policy`),
	regexp.MustCompile(`(?i)pol[ií]tica de privacidad`),
	regexp.MustCompile(`(?i)all rights reserved`),
	regexp.MustCompile(`(?i)todos los derechos reservados`),
	regexp.MustCompile(`©\s*\d{4}`),
	regexp.MustCompile(`(?i)copyright\s*(©|\(c\))?\s*\d{4}`),
}

// footerMinPosition guards against marker-like phrases in genuine early
// content: a marker only counts past this fraction of the text.
const footerMinPosition = 0.30

var (
	zeroWidthRe  = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{200E}\x{200F}\x{00AD}\x{2060}\x{FEFF}]`)
	urlRe        = regexp.MustCompile(`https?://[^\s)\]>"]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	trailWSRe    = regexp.MustCompile(`(?m)[ \t]+$`)
)

// Clean strips invisible characters, truncates at the first valid footer
// marker and collapses blank lines. It iterates to a fixpoint: cutting a
// footer shrinks the text and can move a remaining marker past the
// position threshold, so one pass alone would leave work for a second
// call. The loop terminates because every non-final pass strictly
// shrinks the text. Cleaning already-clean text is a no-op.
func Clean(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	text = zeroWidthRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = stripFooter(text)
	text = trailWSRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripFooter discards everything from the first marker that occurs past
// footerMinPosition of the text length.
func stripFooter(text string) string {
	threshold := int(float64(len(text)) * footerMinPosition)

	for _, marker := range footerMarkers {
		for _, loc := range marker.FindAllStringIndex(text, -1) {
			if loc[0] >= threshold {
				return text[:loc[0]]
			}
		}
	}
	return text
}

// blockTags get a line break after their closing tag so the linearized
// text keeps the visual structure of the email.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "td": true, "th": true,
	"table": true, "ul": true, "ol": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
	"section": true, "article": true, "header": true, "footer": true,
}

// HTMLToText converts an HTML body to linearized plain text: script and
// style subtrees are dropped entirely, block-level elements end a line,
// all other tags are stripped. Entities are decoded by the parser.
func HTMLToText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		// Unparsable input: fall back to a bare tag strip.
		return Clean(stripTags(htmlBody))
	}

	doc.Find("script, style").Remove()

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if n.Data == "br" || blockTags[n.Data] {
				b.WriteString("\n")
			}
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// StripURLs removes bare URLs, used when building fallback summaries.
func StripURLs(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
