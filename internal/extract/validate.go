package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/formpipe/formpipe/constants"
)

// BuildFieldsSchema returns the JSON-Schema constraint for the inference
// collaborator's response. Used locally to reject malformed payloads before
// candidates enter the pipeline.
func BuildFieldsSchema() map[string]any {
	position := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
			"y": map[string]any{"type": "number"},
		},
		"required": []string{"x", "y"},
	}
	field := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field_name":  map[string]any{"type": "string", "minLength": 1},
			"field_type":  map[string]any{"type": "string", "enum": constants.FieldTypesAsStrings()},
			"field_value": map[string]any{"type": "string"},
			"position":    position,
			"page":        map[string]any{"type": "integer", "minimum": 0},
			"validation":  map[string]any{"type": "object"},
		},
		"required": []string{"field_name"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":  "array",
				"items": field,
			},
		},
		"required": []string{"fields"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
