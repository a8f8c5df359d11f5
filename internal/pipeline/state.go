package pipeline

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// state is the explicit tag for one document's position in the
// pipeline. Transitions are enumerable: Started → VendorResolved →
// TemplateReady → DataExtracted → Validated → Succeeded, with Failed
// reachable from any stage.
type state int

const (
	stateStarted state = iota
	stateVendorResolved
	stateTemplateReady
	stateDataExtracted
	stateValidated
	stateSucceeded
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateStarted:
		return "Started"
	case stateVendorResolved:
		return "VendorResolved"
	case stateTemplateReady:
		return "TemplateReady"
	case stateDataExtracted:
		return "DataExtracted"
	case stateValidated:
		return "Validated"
	case stateSucceeded:
		return "Succeeded"
	case stateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// InvoiceResult pairs one extracted invoice with its validation verdict.
type InvoiceResult struct {
	Invoice    entity.Invoice          `json:"invoice"`
	Validation entity.ValidationResult `json:"validation"`
}

// Result is the caller-facing outcome for one document. Status reports
// whether PROCESSING completed; per-invoice validity lives in the
// Invoices list and never affects Status.
type Result struct {
	DocumentID uuid.UUID                `json:"document_id"`
	Filename   string                   `json:"filename"`
	Pages      int                      `json:"pages"`
	Status     constants.DocumentStatus `json:"status"`

	// Reason and Message are set only when Status is FAILED.
	Reason  constants.FailureReason `json:"reason,omitempty"`
	Message string                  `json:"message,omitempty"`

	VendorKey       string `json:"vendor_key,omitempty"`
	VendorName      string `json:"vendor_name,omitempty"`
	TemplateCreated bool   `json:"template_created"`
	TemplateVersion int    `json:"template_version,omitempty"`

	Invoices []InvoiceResult `json:"invoices"`
}

// Succeeded reports whether processing completed.
func (r Result) Succeeded() bool {
	return r.Status == constants.DocumentSucceeded
}

// ValidCount returns how many extracted invoices validated clean.
func (r Result) ValidCount() int {
	n := 0
	for _, ir := range r.Invoices {
		if ir.Validation.Valid {
			n++
		}
	}
	return n
}
