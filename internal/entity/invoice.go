package entity

import "github.com/google/uuid"

// LineItem is one billed row on an invoice. Amounts stay decimal strings
// as extracted; the validator owns all numeric parsing so it can report
// format problems precisely.
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"qty"`
	Rate        string `json:"rate"`
	LineTotal   string `json:"line_total"`
}

// Invoice is one extracted invoice record. A single document may yield
// zero or many of these.
type Invoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	IssueDate     string     `json:"date_of_issue"`
	DueDate       string     `json:"due_date,omitempty"`
	BilledTo      string     `json:"billed_to,omitempty"`
	Subtotal      string     `json:"subtotal"`
	Tax           string     `json:"tax"`
	Total         string     `json:"total"`
	Currency      string     `json:"currency,omitempty"`
	LineItems     []LineItem `json:"line_items"`
	PageNumbers   []int      `json:"page_numbers,omitempty"`

	// Extra carries extracted scalar fields outside the fixed set above
	// (e.g. amount_due, po_number), keyed by normalized field name, so
	// template-required fields are checkable whatever the vendor layout.
	Extra map[string]string `json:"extra,omitempty"`

	// Provenance.
	DocumentID      uuid.UUID `json:"document_id"`
	TemplateVersion int       `json:"template_version"`
}
