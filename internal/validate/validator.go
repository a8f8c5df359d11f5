package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// acceptedDateFormats are tried in order when parsing invoice dates.
var acceptedDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// Validator checks extracted invoices against their vendor template. It
// is pure: no I/O, no external calls, no mutation of inputs, and the
// same inputs always yield the same result.
type Validator struct {
	tolerance     decimal.Decimal
	driftSeverity constants.Severity
}

// New builds a Validator from configuration. The tolerance is an
// absolute amount in currency units; arithmetic never uses float
// equality.
func New(cfg common.ValidateConfig) (*Validator, error) {
	tol, err := decimal.NewFromString(cfg.Tolerance)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "invalid VALIDATE_TOLERANCE", err)
	}
	if tol.IsNegative() {
		return nil, common.NewAppError("CONFIG_ERROR", "VALIDATE_TOLERANCE must not be negative", nil)
	}
	sev := cfg.DriftSeverity
	if sev == "" {
		sev = constants.SeverityWarning
	}
	return &Validator{tolerance: tol, driftSeverity: sev}, nil
}

// Validate runs every check, in order, against one invoice. Each check
// contributes zero or one issue per finding; the verdict is valid iff
// no error-severity issue was raised.
func (v *Validator) Validate(inv entity.Invoice, tpl *entity.Template) entity.ValidationResult {
	var issues []entity.Issue

	issues = append(issues, v.checkRequiredFields(inv, tpl)...)
	issues = append(issues, v.checkDateFormats(inv)...)
	issues = append(issues, v.checkDateOrdering(inv)...)
	if tpl.Rules.CheckLineMath {
		issues = append(issues, v.checkLineMath(inv, tpl)...)
	}
	if tpl.Rules.CheckTotals {
		issues = append(issues, v.checkTotals(inv, tpl)...)
	}
	if tpl.Rules.CheckLineItemSum {
		issues = append(issues, v.checkLineItemSum(inv, tpl)...)
	}

	valid := true
	for _, is := range issues {
		if is.Severity == constants.SeverityError {
			valid = false
			break
		}
	}
	return entity.ValidationResult{Valid: valid, Issues: issues}
}

func (v *Validator) checkRequiredFields(inv entity.Invoice, tpl *entity.Template) []entity.Issue {
	var issues []entity.Issue
	for _, name := range requiredFieldNames(tpl) {
		if fieldValue(inv, name) == "" {
			issues = append(issues, entity.Issue{
				Kind:     constants.IssueMissingField,
				Field:    name,
				Severity: constants.SeverityError,
				Message:  fmt.Sprintf("required field %q is missing or empty", name),
			})
		}
	}
	return issues
}

func (v *Validator) checkDateFormats(inv entity.Invoice) []entity.Issue {
	var issues []entity.Issue
	if inv.IssueDate != "" {
		if _, err := parseDate(inv.IssueDate); err != nil {
			issues = append(issues, entity.Issue{
				Kind:     constants.IssueBadDateFormat,
				Field:    constants.FieldIssueDate,
				Actual:   inv.IssueDate,
				Severity: constants.SeverityError,
				Message:  fmt.Sprintf("issue date %q does not match any accepted format", inv.IssueDate),
			})
		}
	}
	if inv.DueDate != "" {
		if _, err := parseDate(inv.DueDate); err != nil {
			issues = append(issues, entity.Issue{
				Kind:     constants.IssueBadDateFormat,
				Field:    constants.FieldDueDate,
				Actual:   inv.DueDate,
				Severity: constants.SeverityError,
				Message:  fmt.Sprintf("due date %q does not match any accepted format", inv.DueDate),
			})
		}
	}
	return issues
}

func (v *Validator) checkDateOrdering(inv entity.Invoice) []entity.Issue {
	if inv.DueDate == "" || inv.IssueDate == "" {
		return nil
	}
	issued, err := parseDate(inv.IssueDate)
	if err != nil {
		return nil // already reported as bad-date-format
	}
	due, err := parseDate(inv.DueDate)
	if err != nil {
		return nil
	}
	if due.Before(issued) {
		return []entity.Issue{{
			Kind:     constants.IssueDueBeforeIssue,
			Field:    constants.FieldDueDate,
			Expected: ">= " + inv.IssueDate,
			Actual:   inv.DueDate,
			Severity: constants.SeverityError,
			Message:  fmt.Sprintf("due date %s precedes issue date %s", inv.DueDate, inv.IssueDate),
		}}
	}
	return nil
}

func (v *Validator) checkLineMath(inv entity.Invoice, tpl *entity.Template) []entity.Issue {
	tol := v.effectiveTolerance(tpl)
	var issues []entity.Issue
	for i, item := range inv.LineItems {
		qty, ok1 := parseAmount(item.Quantity)
		rate, ok2 := parseAmount(item.Rate)
		total, ok3 := parseAmount(item.LineTotal)
		if !ok1 || !ok2 || !ok3 {
			continue // unparseable amounts are caught by required-field checks
		}
		expected := qty.Mul(rate)
		if expected.Sub(total).Abs().GreaterThan(tol) {
			issues = append(issues, entity.Issue{
				Kind:     constants.IssueLineMathMismatch,
				Field:    fmt.Sprintf("line_items[%d].line_total", i),
				Expected: expected.StringFixed(2),
				Actual:   total.StringFixed(2),
				Severity: constants.SeverityError,
				Message: fmt.Sprintf("line %d: %s x %s = %s, got %s",
					i, qty, rate, expected.StringFixed(2), total.StringFixed(2)),
			})
		}
	}
	return issues
}

func (v *Validator) checkTotals(inv entity.Invoice, tpl *entity.Template) []entity.Issue {
	subtotal, ok1 := parseAmount(inv.Subtotal)
	tax, ok2 := parseAmount(inv.Tax)
	total, ok3 := parseAmount(inv.Total)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	expected := subtotal.Add(tax)
	if expected.Sub(total).Abs().GreaterThan(v.effectiveTolerance(tpl)) {
		return []entity.Issue{{
			Kind:     constants.IssueTotalMismatch,
			Field:    constants.FieldTotal,
			Expected: expected.StringFixed(2),
			Actual:   total.StringFixed(2),
			Severity: constants.SeverityError,
			Message: fmt.Sprintf("subtotal %s + tax %s = %s, got total %s",
				subtotal.StringFixed(2), tax.StringFixed(2), expected.StringFixed(2), total.StringFixed(2)),
		}}
	}
	return nil
}

func (v *Validator) checkLineItemSum(inv entity.Invoice, tpl *entity.Template) []entity.Issue {
	subtotal, ok := parseAmount(inv.Subtotal)
	if !ok || len(inv.LineItems) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, item := range inv.LineItems {
		lt, ok := parseAmount(item.LineTotal)
		if !ok {
			return nil // cannot judge the sum with a hole in it
		}
		sum = sum.Add(lt)
	}
	if sum.Sub(subtotal).Abs().GreaterThan(v.effectiveTolerance(tpl)) {
		// Vendors sometimes apply discounts that are not itemized, so
		// this drift defaults to a warning.
		return []entity.Issue{{
			Kind:     constants.IssueSubtotalDrift,
			Field:    constants.FieldSubtotal,
			Expected: sum.StringFixed(2),
			Actual:   subtotal.StringFixed(2),
			Severity: v.driftSeverity,
			Message: fmt.Sprintf("line totals sum to %s but subtotal is %s",
				sum.StringFixed(2), subtotal.StringFixed(2)),
		}}
	}
	return nil
}

// effectiveTolerance prefers the template's learned tolerance, falling
// back to the validator's configured default.
func (v *Validator) effectiveTolerance(tpl *entity.Template) decimal.Decimal {
	if tpl.Rules.Tolerance != "" {
		if tol, err := decimal.NewFromString(tpl.Rules.Tolerance); err == nil && !tol.IsNegative() {
			return tol
		}
	}
	return v.tolerance
}

// requiredFieldNames prefers the template's explicit rule list, falling
// back to the per-field required flags.
func requiredFieldNames(tpl *entity.Template) []string {
	if len(tpl.Rules.RequiredFields) > 0 {
		return tpl.Rules.RequiredFields
	}
	var names []string
	for _, f := range tpl.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// fieldValue maps a template field name onto the invoice record. Names
// outside the fixed struct fields are looked up in Extra, so a required
// vendor-specific field (e.g. amount_due) that extraction never
// produced reads as empty and is reported missing. line_items is
// special-cased: present means non-empty.
func fieldValue(inv entity.Invoice, name string) string {
	switch name {
	case constants.FieldInvoiceNumber:
		return inv.InvoiceNumber
	case constants.FieldIssueDate:
		return inv.IssueDate
	case constants.FieldDueDate:
		return inv.DueDate
	case "billed_to":
		return inv.BilledTo
	case constants.FieldSubtotal:
		return inv.Subtotal
	case constants.FieldTax:
		return inv.Tax
	case constants.FieldTotal:
		return inv.Total
	case "currency":
		return inv.Currency
	case "line_items":
		if len(inv.LineItems) == 0 {
			return ""
		}
		return "present"
	default:
		return inv.Extra[name]
	}
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range acceptedDateFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
