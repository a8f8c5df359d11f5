package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// BuildInvoiceArraySchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map describing the extraction response for one template: a
// bare array of invoice objects. The schema constrains STRUCTURE only —
// types of present fields and the line-item array shape. Missing
// business fields are the validator's concern, not an extraction
// failure, so nothing beyond line_items is marked required here.
func BuildInvoiceArraySchema(tpl *entity.Template) map[string]any {
	props := map[string]any{
		"line_items":   map[string]any{"type": "array", "items": lineItemProp(tpl)},
		"page_numbers": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
	}
	for _, f := range tpl.Fields {
		props[f.Name] = fieldProp(f.Type)
	}

	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"line_items"},
		},
	}
}

func lineItemProp(tpl *entity.Template) map[string]any {
	cols := map[string]any{}
	for _, c := range tpl.LineItems {
		cols[c.Name] = fieldProp(c.Type)
	}
	return map[string]any{
		"type":       "object",
		"properties": cols,
	}
}

func fieldProp(t constants.FieldType) map[string]any {
	switch t {
	case constants.FieldNumber, constants.FieldCurrency:
		// Models return amounts as numbers or decimal strings; both are
		// accepted here and normalized during decode.
		return map[string]any{
			"type": []string{"number", "string"},
		}
	default:
		return map[string]any{"type": "string"}
	}
}

// ValidateJSONAgainstSchema compiles the schema map and validates doc
// against it.
func ValidateJSONAgainstSchema(schema map[string]any, doc []byte) error {
	sb, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(sb)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return compiled.Validate(v)
}
