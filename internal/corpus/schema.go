package corpus

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id", "title", "embedding"],
    "properties": {
      "id": {"type": ["string", "integer"]},
      "title": {"type": "string", "minLength": 1},
      "company": {"type": "string"},
      "description": {"type": "string"},
      "skills": {"type": "array", "items": {"type": "string"}},
      "level": {"type": "string"},
      "category": {"type": "string"},
      "postedDate": {"type": "string"},
      "originalUrl": {"type": "string"},
      "embedding": {"type": "array", "items": {"type": "number"}},
      "embeddingModel": {"type": "string"}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schema)

// CheckSchema validates raw corpus JSON against the corpus schema and returns one line
// per violation.
func CheckSchema(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate corpus schema: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}
