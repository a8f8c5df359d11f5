package llm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// CallBudget is the shared admission control over every external AI
// call, across all concurrently processing documents. When the budget is
// exhausted, callers block until a slot frees up or the admission
// timeout passes; only the timeout surfaces as an error.
type CallBudget struct {
	limiter   *rate.Limiter
	admission time.Duration
	logger    *slog.Logger
}

// NewCallBudget allows callsPerSecond sustained external calls with a
// burst of one, blocking admissions up to admissionTimeout.
func NewCallBudget(callsPerSecond float64, admissionTimeout time.Duration, logger *slog.Logger) *CallBudget {
	if logger == nil {
		logger = slog.Default()
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &CallBudget{
		limiter:   rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		admission: admissionTimeout,
		logger:    logger,
	}
}

// Acquire blocks until a call slot is available. A cancelled parent
// context propagates as ctx.Err(); an exhausted admission wait returns
// ErrCallBudgetExceeded.
func (b *CallBudget) Acquire(ctx context.Context) error {
	waitCtx := ctx
	if b.admission > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.admission)
		defer cancel()
	}

	start := time.Now()
	if err := b.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("llm.budget.admission_timeout",
			"waited_ms", time.Since(start).Milliseconds(),
			"admission_timeout", b.admission,
		)
		return common.ErrCallBudgetExceeded
	}
	return nil
}

// BudgetedClassifier wraps a VendorClassifier behind the shared budget.
type BudgetedClassifier struct {
	Budget *CallBudget
	Next   VendorClassifier
}

func (c *BudgetedClassifier) ClassifyVendor(ctx context.Context, page entity.PageImage, knownVendors []string) (string, error) {
	if err := c.Budget.Acquire(ctx); err != nil {
		return "", err
	}
	return c.Next.ClassifyVendor(ctx, page, knownVendors)
}

// BudgetedAnalyzer wraps a TemplateAnalyzer behind the shared budget.
type BudgetedAnalyzer struct {
	Budget *CallBudget
	Next   TemplateAnalyzer
}

func (a *BudgetedAnalyzer) AnalyzeStructure(ctx context.Context, pages []entity.PageImage, identity entity.VendorIdentity) (TemplateDraft, error) {
	if err := a.Budget.Acquire(ctx); err != nil {
		return TemplateDraft{}, err
	}
	return a.Next.AnalyzeStructure(ctx, pages, identity)
}

// BudgetedExtractor wraps an InvoiceExtractor behind the shared budget.
type BudgetedExtractor struct {
	Budget *CallBudget
	Next   InvoiceExtractor
}

func (e *BudgetedExtractor) ExtractInvoices(ctx context.Context, pages []entity.PageImage, tpl *entity.Template) ([]entity.Invoice, []byte, error) {
	if err := e.Budget.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	return e.Next.ExtractInvoices(ctx, pages, tpl)
}
