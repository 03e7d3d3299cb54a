package model

import (
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// StructuredData is the first JSON-LD object found on a page. A nil value
// means the page carried no usable structured data.
type StructuredData map[string]any

// PagePayload is one fetched and cleaned document.
type PagePayload struct {
	URL            string         `json:"url"`
	Text           string         `json:"text"`
	StructuredData StructuredData `json:"jsonld"`
}

// HasStructuredData reports whether the page carried a JSON-LD object.
func (p PagePayload) HasStructuredData() bool {
	return p.StructuredData != nil
}

// CrawlBudget bounds a single crawl. MaxDepth 0 fetches the seed only.
type CrawlBudget struct {
	MaxPages int `json:"max_pages" validate:"gt=0"`
	MaxDepth int `json:"max_depth" validate:"gte=0"`
}

var budgetValidator = validator.New()

// Validate checks the budget bounds.
func (b CrawlBudget) Validate() error {
	if err := budgetValidator.Struct(b); err != nil {
		return eris.Wrapf(err, "model: invalid crawl budget pages=%d depth=%d", b.MaxPages, b.MaxDepth)
	}
	return nil
}

// Covers reports whether b is at least as wide as other on both axes.
func (b CrawlBudget) Covers(other CrawlBudget) bool {
	return b.MaxPages >= other.MaxPages && b.MaxDepth >= other.MaxDepth
}
