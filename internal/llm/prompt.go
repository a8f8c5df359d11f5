package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// BuildVendorPrompt composes the classification instruction for a first
// page. Known vendor display names are listed so slight spelling
// variants resolve to the name already on file.
func BuildVendorPrompt(knownVendors []string) string {
	var b strings.Builder
	b.WriteString("Look at the first page of this document and identify the vendor/company that issued it.\n")
	if len(knownVendors) > 0 {
		b.WriteString("\nKnown vendors in our system:\n")
		for _, v := range knownVendors {
			b.WriteString("- ")
			b.WriteString(v)
			b.WriteString("\n")
		}
		b.WriteString("\nIf the vendor matches one of the known vendors (even with slight spelling differences), return that exact name.\n")
		b.WriteString("If it is a new vendor not in the list, return the vendor name as shown on the document.\n")
	}
	b.WriteString("\nReturn ONLY the vendor name, nothing else. If no vendor name is visible, return an empty string.")
	return b.String()
}

// BuildAnalysisPrompt composes the structural-analysis instruction used
// when learning a template for an unseen vendor.
func BuildAnalysisPrompt(identity entity.VendorIdentity) string {
	parts := []string{
		"Analyze this invoice document and describe its structure as JSON.",
		"The vendor is: " + identity.DisplayName + ".",
		"Use these exact normalized field names (snake_case) where the concept appears:",
		"invoice_number, date_of_issue, due_date, billed_to, subtotal, tax, total.",
		"Return ONLY a JSON object with this shape:",
		`{
  "vendor_name": "<exact vendor name>",
  "fields": [{"name": "invoice_number", "type": "string", "required": true}, ...],
  "line_item_columns": [{"name": "description", "type": "string"}, {"name": "qty", "type": "number"}, {"name": "rate", "type": "currency"}, {"name": "line_total", "type": "currency"}],
  "required_fields": ["invoice_number", "date_of_issue", "total", ...],
  "sum_constraints": ["subtotal+tax=total", "qty*rate=line_total"],
  "date_format": "<e.g. M/D/YYYY>",
  "currency": "<ISO 4217>",
  "multi_invoice": true
}`,
		"Field types must be one of: string, number, date, currency.",
		"Mark a field required only if it appears on every invoice of this layout.",
		"Include every field needed to reconstruct an invoice from this vendor.",
	}
	return strings.Join(parts, "\n")
}

// BuildExtractionPrompt composes the per-document extraction instruction
// from the vendor's template. The template's field list and hints steer
// the model; the response must be a bare JSON array.
func BuildExtractionPrompt(tpl *entity.Template) string {
	var b strings.Builder
	b.WriteString("Analyze these invoice images and extract data from each invoice found.\n")
	b.WriteString("This document contains invoices from \"" + tpl.VendorName + "\".")
	if tpl.Hints.MultiInvoice {
		b.WriteString(" The document may contain multiple invoices; extract every one.")
	}
	b.WriteString("\n\nFor EACH invoice found, extract these fields:\n")
	for _, f := range tpl.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(string(f.Type))
		if f.Required {
			b.WriteString(", required")
		}
		b.WriteString(")\n")
	}
	b.WriteString("- line_items: array of ALL line items, each with:\n")
	for _, c := range tpl.LineItems {
		b.WriteString("    - ")
		b.WriteString(c.Name)
		b.WriteString(" (")
		b.WriteString(string(c.Type))
		b.WriteString(")\n")
	}
	b.WriteString("- page_numbers: which page numbers contain this invoice\n")
	b.WriteString("\nAmounts must be plain decimal numbers or decimal strings, no currency symbols or thousands separators.\n")
	if tpl.Hints.DateFormat != "" {
		b.WriteString("Dates on this layout use the format " + tpl.Hints.DateFormat + "; keep them as shown.\n")
	}
	if tpl.Hints.Currency != "" {
		b.WriteString("Amounts are in " + tpl.Hints.Currency + ".\n")
	}
	b.WriteString("Extract ALL line items completely. Never output null; omit fields that are not present.\n")
	b.WriteString("Return ONLY a JSON array of invoice objects, no other text. Return [] if the document contains no invoices.")
	return b.String()
}
