package constants

// DocumentStatus is the terminal outcome of one document's pipeline run.
// Succeeded means processing completed; it says nothing about whether the
// individual invoices inside the document validated clean.
type DocumentStatus string

const (
	DocumentSucceeded DocumentStatus = "SUCCEEDED"
	DocumentFailed    DocumentStatus = "FAILED"
)

// FailureReason is the stable code attached to a FAILED document outcome.
type FailureReason string

const (
	ReasonVendorUnresolved FailureReason = "vendor-unresolved"
	ReasonTemplateLearning FailureReason = "template-learning-failed"
	ReasonExtractionFailed FailureReason = "extraction-failed"
	ReasonCancelled        FailureReason = "cancelled"
)
