package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-validator/constants"
)

// FieldDef describes one extractable field of a vendor's invoice layout.
type FieldDef struct {
	Name     string              `json:"name"`
	Type     constants.FieldType `json:"type"`
	Required bool                `json:"required"`
}

// ColumnDef describes one line-item table column.
type ColumnDef struct {
	Name string              `json:"name"`
	Type constants.FieldType `json:"type"`
}

// ValidationRules holds the arithmetic constraints inferred for a vendor
// at learning time. Tolerance is an absolute amount in currency units,
// kept as a decimal string so templates round-trip losslessly.
type ValidationRules struct {
	RequiredFields   []string `json:"required_fields"`
	CheckTotals      bool     `json:"check_totals"`       // subtotal + tax = total
	CheckLineMath    bool     `json:"check_line_math"`    // qty * rate = line_total
	CheckLineItemSum bool     `json:"check_lineitem_sum"` // sum(line_total) = subtotal
	Tolerance        string   `json:"tolerance,omitempty"`
}

// ExtractionHints carries layout observations captured at learning time
// that steer later extraction calls for the same vendor.
type ExtractionHints struct {
	DateFormat        string `json:"date_format,omitempty"` // e.g. "M/D/YYYY"
	Currency          string `json:"currency,omitempty"`    // ISO 4217
	MultiInvoice      bool   `json:"multi_invoice"`
	PagesPerInvoice   string `json:"pages_per_invoice,omitempty"`
	InvoiceNumPattern string `json:"invoice_number_pattern,omitempty"`
}

// Template is the persisted extraction schema for one vendor. Learned
// once on first contact and reused for every later document from the
// same vendor key; never mutated by the validator or orchestrator.
type Template struct {
	VendorKey     string          `json:"vendor_key" badgerhold:"key"`
	VendorName    string          `json:"vendor_name"`
	SchemaVersion int             `json:"schema_version"`
	Fields        []FieldDef      `json:"fields"`
	LineItems     []ColumnDef     `json:"line_items"`
	Rules         ValidationRules `json:"rules"`
	Hints         ExtractionHints `json:"hints"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Field returns the definition for a named field, if the template has one.
func (t *Template) Field(name string) (FieldDef, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}
