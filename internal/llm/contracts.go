package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// VendorClassifier identifies the issuing vendor from a document's first
// page. knownVendors carries the display names already on file so the
// model can snap near-miss spellings onto an existing vendor.
type VendorClassifier interface {
	ClassifyVendor(ctx context.Context, page entity.PageImage, knownVendors []string) (string, error)
}

// FieldDraft is one candidate field from a structural-analysis response.
type FieldDraft struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ColumnDraft is one candidate line-item column.
type ColumnDraft struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TemplateDraft is the raw structured description of an invoice layout as
// returned by the structural-analysis call, before the learner applies
// its minimum-field floor and defaults.
type TemplateDraft struct {
	VendorName      string        `json:"vendor_name"`
	Fields          []FieldDraft  `json:"fields"`
	LineItemColumns []ColumnDraft `json:"line_item_columns"`
	RequiredFields  []string      `json:"required_fields"`
	SumConstraints  []string      `json:"sum_constraints,omitempty"` // e.g. "subtotal+tax=total"
	DateFormat      string        `json:"date_format,omitempty"`
	Currency        string        `json:"currency,omitempty"`
	MultiInvoice    bool          `json:"multi_invoice"`
}

// TemplateAnalyzer derives a candidate extraction schema for an unseen
// vendor from representative page images.
type TemplateAnalyzer interface {
	AnalyzeStructure(ctx context.Context, pages []entity.PageImage, identity entity.VendorIdentity) (TemplateDraft, error)
}

// InvoiceExtractor pulls structured invoice records out of a document,
// guided by the vendor's template. A document may legitimately yield
// zero, one, or many invoices. The raw model JSON is returned alongside
// for diagnostics.
type InvoiceExtractor interface {
	ExtractInvoices(ctx context.Context, pages []entity.PageImage, tpl *entity.Template) ([]entity.Invoice, []byte, error)
}
