package oracle

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-intel/internal/model"
)

// Payload caps in characters.
const (
	DefaultPayloadCap = 350000
	GeminiPayloadCap  = 700000
)

// DefaultInstruction is used when no prompt file is configured.
const DefaultInstruction = "You are an information extraction engine. " +
	"Return ONLY valid JSON with this schema: " +
	`{"clinic_info":{"specialty":"string","modalities":"string","location":"string","clinic_size":"string"}}. ` +
	"If unknown, use 'unknown'. No prose."

type payload struct {
	Pages    []model.PagePayload  `json:"pages"`
	Evidence model.EvidenceBundle `json:"evidence"`
}

// BuildPayload serializes pages and evidence compactly, truncating to at
// most limit characters. A non-positive limit disables truncation.
func BuildPayload(pages []model.PagePayload, ev model.EvidenceBundle, limit int) (string, error) {
	if pages == nil {
		pages = []model.PagePayload{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload{Pages: pages, Evidence: ev}); err != nil {
		return "", eris.Wrap(err, "oracle: encode payload")
	}
	return truncateRunes(strings.TrimRight(buf.String(), "\n"), limit), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// LoadPrompt reads a prompt file. A missing file yields "" without error.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", eris.Wrapf(err, "oracle: read prompt %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}
