// internal/scenario/schema.go
package scenario

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// scenarioSchema is the JSON-Schema contract for scenario files. Validation
// runs on the decoded YAML document, so type errors surface with field paths
// instead of as zero values deep in a run.
const scenarioSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "url", "beats"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "url": {"type": "string", "minLength": 1},
    "viewport": {
      "type": "object",
      "required": ["width", "height"],
      "properties": {
        "width": {"type": "integer", "minimum": 320},
        "height": {"type": "integer", "minimum": 240}
      }
    },
    "beats": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "steps"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "duration": {"type": ["string", "integer"]},
          "narration": {"type": "string"},
          "steps": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "describe": {"type": "string"},
                "action": {
                  "type": "string",
                  "enum": ["click", "hover", "type", "scroll", "wait", "keypress"]
                },
                "selector": {"type": "string"},
                "text": {"type": "string"},
                "key": {"type": "string"},
                "wait": {"type": ["string", "integer"]}
              },
              "additionalProperties": false
            }
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// ValidateYAML checks a raw scenario document against the schema.
func ValidateYAML(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("scenario is not valid YAML: %w", err)
	}
	doc = normalizeYAML(doc)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(scenarioSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("scenario failed validation:")
	for _, issue := range result.Errors() {
		fmt.Fprintf(&sb, "\n  - %s: %s", issue.Field(), issue.Description())
	}
	return fmt.Errorf("%s", sb.String())
}

// normalizeYAML converts yaml.v3's map[string]interface{} trees into the
// shapes gojsonschema expects. yaml.v3 already decodes mappings with string
// keys, but nested any-keyed maps can appear for odd documents.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}
