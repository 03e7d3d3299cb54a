package oracle

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/clinic-intel/internal/model"
)

// excerptLen bounds the response text quoted in errors.
const excerptLen = 500

const responseSchemaJSON = `{
  "type": "object",
  "required": ["clinic_info"],
  "properties": {
    "clinic_info": {
      "type": "object",
      "required": ["specialty", "modalities", "location", "clinic_size"],
      "properties": {
        "specialty": {"type": "string"},
        "modalities": {"type": "string"},
        "location": {"type": "string"},
        "clinic_size": {"type": "string"}
      }
    }
  }
}`

var responseSchema = mustSchema(responseSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// ParseResponse validates a provider reply against the clinic_info schema
// and decodes it. Markdown code fences are tolerated.
func ParseResponse(text string) (model.ExtractionRecord, error) {
	body := cleanJSONBlock(text)
	if body == "" {
		return model.ExtractionRecord{}, eris.New("oracle: empty response")
	}

	result, err := responseSchema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return model.ExtractionRecord{}, eris.Wrapf(err, "oracle: non-JSON response: %s", excerpt(text))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return model.ExtractionRecord{}, eris.Errorf("oracle: schema mismatch (%s): %s",
			strings.Join(msgs, "; "), excerpt(text))
	}

	var out struct {
		ClinicInfo model.ExtractionRecord `json:"clinic_info"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return model.ExtractionRecord{}, eris.Wrapf(err, "oracle: decode response: %s", excerpt(text))
	}
	return out.ClinicInfo.WithDefaults(), nil
}

// cleanJSONBlock removes markdown code block wrappers.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	return truncateRunes(s, excerptLen)
}
