package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/clinic-intel/internal/model"
)

// ParsePage parses a fetched document once and returns its payload plus
// the absolute link targets found on it. Links are collected before
// navigation markup is stripped from the text.
func ParsePage(pageURL, rawHTML string) (model.PagePayload, []string) {
	payload := model.PagePayload{URL: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return payload, nil
	}

	payload.StructuredData, _ = structuredDataFromDoc(doc)

	var links []string
	if base, err := url.Parse(pageURL); err == nil {
		links = extractLinks(doc, base)
	}

	payload.Text = visibleTextFromDoc(doc)
	return payload, links
}
