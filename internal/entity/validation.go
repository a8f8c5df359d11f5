package entity

import "github.com/joseph-ayodele/invoice-validator/constants"

// Issue is a single discrete validation finding on one invoice.
type Issue struct {
	Kind     constants.IssueKind `json:"kind"`
	Field    string              `json:"field"` // path, e.g. "line_items[2].line_total"
	Expected string              `json:"expected,omitempty"`
	Actual   string              `json:"actual,omitempty"`
	Severity constants.Severity  `json:"severity"`
	Message  string              `json:"message"`
}

// ValidationResult is the verdict for one invoice. Valid is true iff no
// error-severity issue is present; warnings never flip validity.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Errors returns only the error-severity issues.
func (r ValidationResult) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == constants.SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (r ValidationResult) Warnings() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == constants.SeverityWarning {
			out = append(out, is)
		}
	}
	return out
}
