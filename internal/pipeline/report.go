package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-validator/constants"
)

// FormatResult renders one document's outcome as a human-readable text
// report for console output.
func FormatResult(r Result) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "INVOICE VALIDATION REPORT: %s\n", r.Filename)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Vendor: %s\n", orUnknown(r.VendorName))
	if r.TemplateCreated {
		fmt.Fprintln(&b, "Template Status: NEW (created)")
	} else {
		fmt.Fprintln(&b, "Template Status: Existing")
	}
	fmt.Fprintf(&b, "Total Pages: %d\n", r.Pages)
	fmt.Fprintf(&b, "Invoices Found: %d\n", len(r.Invoices))
	fmt.Fprintf(&b, "Valid Invoices: %d\n", r.ValidCount())
	fmt.Fprintf(&b, "Invalid Invoices: %d\n", len(r.Invoices)-r.ValidCount())
	fmt.Fprintf(&b, "Overall Status: %s\n", r.Status)
	fmt.Fprintln(&b)

	if r.Status == constants.DocumentFailed {
		fmt.Fprintln(&b, "FAILURE:")
		fmt.Fprintf(&b, "  - [%s] %s\n", r.Reason, r.Message)
		fmt.Fprintln(&b)
	}

	for i, ir := range r.Invoices {
		fmt.Fprintln(&b, strings.Repeat("-", 50))
		verdict := "VALID"
		if !ir.Validation.Valid {
			verdict = "INVALID"
		}
		fmt.Fprintf(&b, "%d. Invoice #%s (Pages: %s) - %s\n",
			i+1, orUnknown(ir.Invoice.InvoiceNumber), formatPages(ir.Invoice.PageNumbers), verdict)

		fmt.Fprintln(&b, "  Extracted Data:")
		writeField(&b, "invoice_number", ir.Invoice.InvoiceNumber)
		writeField(&b, "date_of_issue", ir.Invoice.IssueDate)
		writeField(&b, "due_date", ir.Invoice.DueDate)
		writeField(&b, "billed_to", ir.Invoice.BilledTo)
		writeField(&b, "subtotal", ir.Invoice.Subtotal)
		writeField(&b, "tax", ir.Invoice.Tax)
		writeField(&b, "total", ir.Invoice.Total)
		if len(ir.Invoice.LineItems) > 0 {
			fmt.Fprintf(&b, "    line_items: %d item(s)\n", len(ir.Invoice.LineItems))
			for _, item := range ir.Invoice.LineItems {
				fmt.Fprintf(&b, "      - %s\n", item.Description)
				fmt.Fprintf(&b, "        Rate: %s x Qty: %s = %s\n", item.Rate, item.Quantity, item.LineTotal)
			}
		}

		if errs := ir.Validation.Errors(); len(errs) > 0 {
			fmt.Fprintln(&b, "  Errors:")
			for _, is := range errs {
				fmt.Fprintf(&b, "    - %s\n", is.Message)
			}
		}
		if warns := ir.Validation.Warnings(); len(warns) > 0 {
			fmt.Fprintln(&b, "  Warnings:")
			for _, is := range warns {
				fmt.Fprintf(&b, "    - %s\n", is.Message)
			}
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatPages(pages []int) string {
	if len(pages) == 0 {
		return "Unknown"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "    %s: %s\n", name, value)
}
