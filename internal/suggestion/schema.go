package suggestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// responseSchema is the JSON Schema the model's text must satisfy.
const responseSchema = `{
  "type": "object",
  "properties": {
    "solutions": {"type": "array", "items": {"type": "string"}},
    "keywords": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["solutions", "keywords"],
  "additionalProperties": false
}`

var compiledSchema = mustCompile(responseSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("suggestion schema: %v", err))
	}
	return compiled
}

// ParseResponse validates raw model output and decodes it.
func ParseResponse(raw string) (*domain.Suggestion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model response")
	}
	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("model response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var out struct {
		Solutions []string `json:"solutions"`
		Keywords  []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &domain.Suggestion{Solutions: out.Solutions, Keywords: out.Keywords}, nil
}
