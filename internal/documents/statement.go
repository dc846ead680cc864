package documents

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "pre": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "td": true, "th": true,
}

// ExtractStatement returns the Japanese and English statement text of a task
// page. Pages without language sections yield the whole #task-statement as
// Japanese text.
func ExtractStatement(html string) (ja, en string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse statement: %w", err)
	}
	ja = sectionText(doc.Find("#task-statement span.lang-ja"))
	en = sectionText(doc.Find("#task-statement span.lang-en"))
	if ja == "" && en == "" {
		ja = sectionText(doc.Find("#task-statement"))
	}
	return ja, en, nil
}

// sectionText flattens the first matched element, separating block elements
// with a space and collapsing runs of whitespace.
func sectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	writeText(&b, sel.First())
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		switch name {
		case "#text":
			b.WriteString(child.Text())
		case "script", "style", "#comment":
		default:
			writeText(b, child)
			if blockElements[name] {
				b.WriteByte(' ')
			}
		}
	})
}
