package constants

// IssueKind identifies a single class of validation finding.
type IssueKind string

// Stable values (these exact strings appear in reports and exports).
const (
	IssueMissingField     IssueKind = "missing-field"
	IssueBadDateFormat    IssueKind = "bad-date-format"
	IssueDueBeforeIssue   IssueKind = "due-before-issue"
	IssueLineMathMismatch IssueKind = "line-math-mismatch"
	IssueTotalMismatch    IssueKind = "total-math-mismatch"
	IssueSubtotalDrift    IssueKind = "subtotal-lineitem-drift"
)

// Severity ranks a validation issue. Only SeverityError flips an
// invoice to invalid; warnings are surfaced but non-fatal.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)
