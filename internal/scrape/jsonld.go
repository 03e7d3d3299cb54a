package scrape

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/clinic-intel/internal/model"
)

// ExtractStructuredData returns the first valid JSON-LD object in an HTML
// document. ok is false when no block parses to an object.
func ExtractStructuredData(rawHTML string) (model.StructuredData, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, false
	}
	return structuredDataFromDoc(doc)
}

func structuredDataFromDoc(doc *goquery.Document) (model.StructuredData, bool) {
	var (
		found model.StructuredData
		ok    bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found, ok = decodeJSONLD(s.Text())
		return !ok
	})
	return found, ok
}

// decodeJSONLD decodes one script block. A list yields its first element.
func decodeJSONLD(raw string) (model.StructuredData, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}

	if list, isList := v.([]any); isList {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}

	obj, isObj := v.(map[string]any)
	if !isObj {
		return nil, false
	}
	return model.StructuredData(obj), true
}
