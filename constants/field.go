package constants

// FieldType is the semantic type of a template field definition.
type FieldType string

// Stable values (persisted inside templates, do not rename).
const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldCurrency FieldType = "currency"
)

// KnownFieldTypes lists every accepted semantic type, used when
// sanitizing structural-analysis responses.
var KnownFieldTypes = map[FieldType]struct{}{
	FieldString:   {},
	FieldNumber:   {},
	FieldDate:     {},
	FieldCurrency: {},
}

// Core field names every usable template must describe. The learner
// refuses to persist a template that cannot account for these.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldIssueDate     = "date_of_issue"
	FieldDueDate       = "due_date"
	FieldSubtotal      = "subtotal"
	FieldTax           = "tax"
	FieldTotal         = "total"
)
