package llm

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/invoice-validator/constants"
)

// DecodeTemplateDraft parses a structural-analysis response. Field names
// are trimmed and lowercased to the snake_case convention the prompts
// ask for; unknown semantic types fall back to string rather than
// failing the whole draft.
func DecodeTemplateDraft(raw []byte) (TemplateDraft, error) {
	var d TemplateDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return TemplateDraft{}, err
	}

	for i := range d.Fields {
		d.Fields[i].Name = normalizeName(d.Fields[i].Name)
		d.Fields[i].Type = normalizeType(d.Fields[i].Type)
	}
	for i := range d.LineItemColumns {
		d.LineItemColumns[i].Name = normalizeName(d.LineItemColumns[i].Name)
		d.LineItemColumns[i].Type = normalizeType(d.LineItemColumns[i].Type)
	}
	for i := range d.RequiredFields {
		d.RequiredFields[i] = normalizeName(d.RequiredFields[i])
	}
	return d, nil
}

func normalizeName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.ReplaceAll(s, " ", "_")
}

func normalizeType(s string) string {
	t := constants.FieldType(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := constants.KnownFieldTypes[t]; ok {
		return string(t)
	}
	return string(constants.FieldString)
}
