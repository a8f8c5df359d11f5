package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
	"github.com/joseph-ayodele/invoice-validator/internal/template"
	"github.com/joseph-ayodele/invoice-validator/internal/validate"
	"github.com/joseph-ayodele/invoice-validator/internal/vendors"
)

// Orchestrator drives one document through the pipeline: resolve vendor,
// fetch or learn the template, extract invoices, validate each one.
// Instances are safe for concurrent use; every document gets its own
// state machine run.
type Orchestrator struct {
	logger    *slog.Logger
	resolver  *vendors.Resolver
	learner   *template.Learner
	extractor llm.InvoiceExtractor
	validator *validate.Validator
	cfg       common.PipelineConfig
}

func NewOrchestrator(
	logger *slog.Logger,
	resolver *vendors.Resolver,
	learner *template.Learner,
	extractor llm.InvoiceExtractor,
	validator *validate.Validator,
	cfg common.PipelineConfig,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExtractionRetries < 1 {
		cfg.ExtractionRetries = 1
	}
	return &Orchestrator{
		logger:    logger,
		resolver:  resolver,
		learner:   learner,
		extractor: extractor,
		validator: validator,
		cfg:       cfg,
	}
}

// run holds the intermediates of one document's pipeline.
type run struct {
	doc      entity.Document
	identity entity.VendorIdentity
	tpl      *entity.Template
	created  bool
	invoices []entity.Invoice
	results  []InvoiceResult
}

// Process runs the full state machine for one document and returns its
// terminal Result. The error taxonomy is folded into the Result; the
// method itself never fails. Cancellation is checked between stages —
// never mid-call — and surfaces as a FAILED outcome with reason
// "cancelled".
func (o *Orchestrator) Process(ctx context.Context, doc entity.Document) Result {
	st := stateStarted
	r := &run{doc: doc}
	start := time.Now()

	o.logger.Info("pipeline.start",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"pages", len(doc.Pages),
	)

	var result Result
	for {
		if st == stateSucceeded || st == stateFailed {
			break
		}
		if err := ctx.Err(); err != nil {
			result = o.fail(r, constants.ReasonCancelled, "processing cancelled between stages", err)
			st = stateFailed
			continue
		}

		var err error
		switch st {
		case stateStarted:
			err = o.retryOnBudget(ctx, "resolve", func() error { return o.resolveVendor(ctx, r) })
			if err != nil {
				result = o.fail(r, constants.ReasonVendorUnresolved,
					failureMessage(err, "could not identify the vendor on the first page"), err)
				st = stateFailed
				continue
			}
			st = stateVendorResolved

		case stateVendorResolved:
			err = o.retryOnBudget(ctx, "learn", func() error { return o.fetchOrLearnTemplate(ctx, r) })
			if err != nil {
				result = o.fail(r, constants.ReasonTemplateLearning,
					failureMessage(err, "could not learn a usable template for this vendor"), err)
				st = stateFailed
				continue
			}
			st = stateTemplateReady

		case stateTemplateReady:
			err = o.extractWithRetry(ctx, r)
			if err != nil {
				// Per-call timeouts are retryable and count toward the
				// bound; only cancellation maps to the cancelled reason.
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					result = o.fail(r, constants.ReasonCancelled, "processing cancelled between stages", err)
				} else {
					result = o.fail(r, constants.ReasonExtractionFailed, "extraction did not produce parseable invoice data", err)
				}
				st = stateFailed
				continue
			}
			st = stateDataExtracted

		case stateDataExtracted:
			o.validateAll(r)
			st = stateValidated

		case stateValidated:
			// Always reached once validation completes: succeeded means
			// processing finished, not that every invoice is valid.
			result = o.succeed(r)
			st = stateSucceeded
		}
	}

	o.logger.Info("pipeline.done",
		"document_id", doc.ID,
		"status", result.Status,
		"reason", result.Reason,
		"invoices", len(result.Invoices),
		"invoices_valid", result.ValidCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (o *Orchestrator) resolveVendor(ctx context.Context, r *run) error {
	identity, err := o.resolver.Resolve(ctx, r.doc.FirstPage())
	if err != nil {
		return err
	}
	r.identity = identity
	return nil
}

func (o *Orchestrator) fetchOrLearnTemplate(ctx context.Context, r *run) error {
	tpl, created, err := o.learner.FetchOrLearn(ctx, r.doc.Pages, r.identity)
	if err != nil {
		return err
	}
	r.tpl = tpl
	r.created = created
	if created {
		o.logger.Info("pipeline.template.learned", "document_id", r.doc.ID, "vendor_key", r.identity.Key)
	} else {
		o.logger.Debug("pipeline.template.reused", "document_id", r.doc.ID, "vendor_key", r.identity.Key)
	}
	return nil
}

// retryOnBudget re-runs a stage whose only failure is call-budget
// admission timing out. Budget exhaustion is backoff, not a verdict on
// the document, so the stage gets the same bounded retry extraction
// has; any other error returns immediately.
func (o *Orchestrator) retryOnBudget(ctx context.Context, stage string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.ExtractionRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil || !errors.Is(err, common.ErrCallBudgetExceeded) {
			return err
		}
		lastErr = err

		o.logger.Warn("pipeline.budget.retry",
			"stage", stage,
			"attempt", attempt,
			"max_attempts", o.cfg.ExtractionRetries,
		)
		if attempt < o.cfg.ExtractionRetries && o.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.RetryBackoff):
			}
		}
	}
	return lastErr
}

// failureMessage prefers naming the call budget when it is the actual
// cause, so the report does not blame the stage's own logic.
func failureMessage(err error, fallback string) string {
	if errors.Is(err, common.ErrCallBudgetExceeded) {
		return "call budget admission timed out before the stage could run"
	}
	return fallback
}

// extractWithRetry issues the extraction call up to the configured
// bound. Transient call errors, timeouts, and budget admission timeouts
// are all retryable; context cancellation is not.
func (o *Orchestrator) extractWithRetry(ctx context.Context, r *run) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.ExtractionRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		invoices, _, err := o.extractor.ExtractInvoices(ctx, r.doc.Pages, r.tpl)
		if err == nil {
			for i := range invoices {
				invoices[i].DocumentID = r.doc.ID
				invoices[i].TemplateVersion = r.tpl.SchemaVersion
			}
			r.invoices = invoices
			return nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return err
		}

		o.logger.Warn("pipeline.extract.retry",
			"document_id", r.doc.ID,
			"attempt", attempt,
			"max_attempts", o.cfg.ExtractionRetries,
			"error", err,
		)
		if attempt < o.cfg.ExtractionRetries && o.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.RetryBackoff):
			}
		}
	}
	return common.WrapError(lastErr, "extraction retries exhausted")
}

// validateAll validates every extracted invoice independently; one bad
// invoice never aborts its siblings.
func (o *Orchestrator) validateAll(r *run) {
	r.results = make([]InvoiceResult, 0, len(r.invoices))
	for _, inv := range r.invoices {
		vr := o.validator.Validate(inv, r.tpl)
		if !vr.Valid {
			o.logger.Warn("pipeline.invoice.invalid",
				"document_id", r.doc.ID,
				"invoice_number", inv.InvoiceNumber,
				"issues", len(vr.Issues),
			)
		}
		r.results = append(r.results, InvoiceResult{Invoice: inv, Validation: vr})
	}
}

func (o *Orchestrator) succeed(r *run) Result {
	return Result{
		DocumentID:      r.doc.ID,
		Filename:        r.doc.Filename,
		Pages:           len(r.doc.Pages),
		Status:          constants.DocumentSucceeded,
		VendorKey:       r.identity.Key,
		VendorName:      r.identity.DisplayName,
		TemplateCreated: r.created,
		TemplateVersion: r.tpl.SchemaVersion,
		Invoices:        r.results,
	}
}

func (o *Orchestrator) fail(r *run, reason constants.FailureReason, message string, cause error) Result {
	o.logger.Error("pipeline.failed",
		"document_id", r.doc.ID,
		"reason", reason,
		"error", cause,
	)
	res := Result{
		DocumentID: r.doc.ID,
		Filename:   r.doc.Filename,
		Pages:      len(r.doc.Pages),
		Status:     constants.DocumentFailed,
		Reason:     reason,
		Message:    message,
		VendorKey:  r.identity.Key,
		VendorName: r.identity.DisplayName,
	}
	if r.tpl != nil {
		res.TemplateCreated = r.created
		res.TemplateVersion = r.tpl.SchemaVersion
	}
	return res
}
