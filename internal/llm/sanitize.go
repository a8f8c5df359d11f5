package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// amountKeys are invoice fields carrying money or quantities; their
// values get normalized to plain decimal strings during decode.
var amountKeys = map[string]struct{}{
	"subtotal": {}, "tax": {}, "total": {},
	"qty": {}, "quantity": {}, "rate": {}, "line_total": {},
	"amount_due": {}, "amount_paid": {},
}

// coreKeys are the response keys mapped onto named Invoice fields; any
// other scalar key lands in Invoice.Extra.
var coreKeys = map[string]struct{}{
	"invoice_number": {}, "date_of_issue": {}, "due_date": {},
	"billed_to": {}, "subtotal": {}, "tax": {}, "total": {},
	"currency": {}, "line_items": {}, "page_numbers": {},
}

// SanitizeInvoiceArray normalizes a raw extraction response so the
// schema can still validate: nulls are dropped, currency symbols and
// thousands separators are stripped from amount fields. Only value
// formatting is touched; structure is left alone. Returns the cleaned
// document and the list of keys that were modified.
func SanitizeInvoiceArray(doc []byte) ([]byte, []string, error) {
	var arr []map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&arr); err != nil {
		return nil, nil, err
	}

	var changed []string
	for _, inv := range arr {
		changed = append(changed, sanitizeObject(inv)...)
		items, ok := inv["line_items"].([]any)
		if !ok {
			continue
		}
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				changed = append(changed, sanitizeObject(obj)...)
			}
		}
	}

	b, err := json.Marshal(arr)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

func sanitizeObject(m map[string]any) []string {
	var changed []string
	for k, v := range m {
		if v == nil {
			delete(m, k)
			changed = append(changed, k)
			continue
		}
		if _, money := amountKeys[k]; !money {
			continue
		}
		if s, ok := v.(string); ok {
			cleaned := cleanAmount(s)
			if cleaned != s {
				m[k] = cleaned
				changed = append(changed, k)
			}
		}
	}
	return changed
}

// cleanAmount strips currency symbols, thousands separators and
// whitespace from a money string. "$1,234.50" becomes "1234.50".
func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// DecodeInvoices parses a sanitized extraction response into invoice
// records. Amounts arrive as JSON numbers or decimal strings and are
// normalized to strings; the validator owns all further parsing. A
// response whose elements are not objects, or whose line_items is not an
// array, cannot be mapped onto the invoice shape and errors out.
func DecodeInvoices(raw []byte) ([]entity.Invoice, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	invoices := make([]entity.Invoice, 0, len(arr))
	for i, el := range arr {
		var m map[string]any
		dec := json.NewDecoder(bytes.NewReader(el))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("invoice %d is not an object: %w", i, err)
		}

		inv := entity.Invoice{
			InvoiceNumber: asString(m["invoice_number"]),
			IssueDate:     asString(m["date_of_issue"]),
			DueDate:       asString(m["due_date"]),
			BilledTo:      asString(m["billed_to"]),
			Subtotal:      asAmount(m["subtotal"]),
			Tax:           asAmount(m["tax"]),
			Total:         asAmount(m["total"]),
			Currency:      asString(m["currency"]),
		}

		if rawItems, present := m["line_items"]; present && rawItems != nil {
			items, ok := rawItems.([]any)
			if !ok {
				return nil, fmt.Errorf("invoice %d: line_items is not an array", i)
			}
			for j, it := range items {
				obj, ok := it.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("invoice %d: line item %d is not an object", i, j)
				}
				li := entity.LineItem{
					Description: asString(obj["description"]),
					Quantity:    asAmount(firstOf(obj, "qty", "quantity")),
					Rate:        asAmount(obj["rate"]),
					LineTotal:   asAmount(obj["line_total"]),
				}
				inv.LineItems = append(inv.LineItems, li)
			}
		}

		for k, v := range m {
			if _, core := coreKeys[k]; core {
				continue
			}
			var val string
			if _, money := amountKeys[k]; money {
				val = asAmount(v)
			} else {
				switch v.(type) {
				case string, json.Number, bool:
					val = asString(v)
				default:
					continue // nested structures have no named home
				}
			}
			if inv.Extra == nil {
				inv.Extra = make(map[string]string)
			}
			inv.Extra[k] = val
		}

		if pages, ok := m["page_numbers"].([]any); ok {
			for _, p := range pages {
				if n, ok := p.(json.Number); ok {
					if v, err := n.Int64(); err == nil {
						inv.PageNumbers = append(inv.PageNumbers, int(v))
					}
				}
			}
		}

		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asAmount(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case json.Number:
		return t.String()
	case string:
		return cleanAmount(t)
	default:
		return ""
	}
}
