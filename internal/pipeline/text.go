package pipeline

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/callaudit/internal/ingest"
)

// TranscriptText turns a fetched document into plain transcript text.
// HTML is reduced to visible text, JSON payloads go through ingest.Normalize,
// anything else is returned as is. The result is not lower-cased.
func TranscriptText(body, contentType string) string {
	ct := strings.ToLower(contentType)
	trimmed := strings.TrimSpace(body)

	switch {
	case strings.Contains(ct, "json") || (ct == "" && strings.HasPrefix(trimmed, "{")):
		if rec, err := ingest.Normalize([]byte(body)); err == nil {
			return rec.Text
		}
		return body

	case strings.Contains(ct, "html") || (ct == "" && strings.HasPrefix(trimmed, "<")):
		doc, err := html.Parse(strings.NewReader(body))
		if err != nil {
			return body
		}
		return extractVisibleText(doc)
	}

	return body
}

// blockElements end a line of transcript text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "pre": true,
	"dt": true, "dd": true, "blockquote": true,
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}
