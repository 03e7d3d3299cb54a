// Package scrape turns raw clinic HTML into clean text and classifies the
// links found on it.
package scrape

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sells-group/clinic-intel/internal/model"
)

// removeSelector lists the elements that never carry page content.
const removeSelector = "script, style, noscript, svg, img, picture, video, iframe, " +
	"form, button, input, select, label, header, footer, nav, aside"

// boilerplateHints are matched against id and class attributes.
var boilerplateHints = []string{"cookie", "gdpr", "newsletter", "subscribe", "signup", "breadcrumbs"}

var reBlankRun = regexp.MustCompile(`\n{3,}`)

// Normalize parses an HTML document and returns its visible text along with
// the first JSON-LD object on the page. Malformed markup is parsed
// best-effort and never produces an error.
func Normalize(rawHTML string) (string, model.StructuredData) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", nil
	}
	data, _ := structuredDataFromDoc(doc)
	return visibleTextFromDoc(doc), data
}

// VisibleText returns the cleaned visible text of an HTML document.
func VisibleText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return visibleTextFromDoc(doc)
}

// NewPayload builds a PagePayload from a fetched document.
func NewPayload(pageURL, rawHTML string) model.PagePayload {
	text, data := Normalize(rawHTML)
	return model.PagePayload{URL: pageURL, Text: text, StructuredData: data}
}

// visibleTextFromDoc strips non-content elements from doc in place and
// collects the remaining text nodes in document order.
func visibleTextFromDoc(doc *goquery.Document) string {
	doc.Find(removeSelector).Remove()
	doc.Find("[id], [class]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		if hasBoilerplateHint(id) || hasBoilerplateHint(class) {
			s.Remove()
		}
	})

	var lines []string
	for _, root := range doc.Nodes {
		collectText(root, &lines)
	}

	text := strings.Join(lines, "\n")
	return reBlankRun.ReplaceAllString(text, "\n\n")
}

func collectText(n *html.Node, lines *[]string) {
	switch n.Type {
	case html.TextNode:
		s := strings.TrimSpace(n.Data)
		if utf8.RuneCountInString(s) > 1 {
			*lines = append(*lines, s)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		// Script content surviving removal (e.g. JSON-LD inside template) is not text.
		if n.Data == "script" || n.Data == "style" || n.Data == "template" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

func hasBoilerplateHint(attr string) bool {
	if attr == "" {
		return false
	}
	attr = strings.ToLower(attr)
	for _, hint := range boilerplateHints {
		if strings.Contains(attr, hint) {
			return true
		}
	}
	return false
}
