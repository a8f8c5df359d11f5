package template

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
	"github.com/joseph-ayodele/invoice-validator/internal/repository"
)

// defaultTolerance is the absolute currency tolerance stamped into
// learned templates when the analysis response does not suggest one.
const defaultTolerance = "0.01"

// Learner derives and persists extraction templates for vendors the
// store has never seen. A keyed mutex serializes the whole
// get-miss/learn/put sequence per vendor key, so concurrent first-time
// documents for the same vendor trigger exactly one analysis call and
// one store write.
type Learner struct {
	logger    *slog.Logger
	analyzer  llm.TemplateAnalyzer
	templates repository.TemplateRepository
	locks     *keyedMutex
}

func NewLearner(analyzer llm.TemplateAnalyzer, templates repository.TemplateRepository, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		logger:    logger,
		analyzer:  analyzer,
		templates: templates,
		locks:     newKeyedMutex(),
	}
}

// FetchOrLearn returns the vendor's template, learning and persisting
// one if the store has none. The returned bool reports whether a new
// template was created by this call.
func (l *Learner) FetchOrLearn(ctx context.Context, pages []entity.PageImage, identity entity.VendorIdentity) (*entity.Template, bool, error) {
	unlock := l.locks.Lock(identity.Key)
	defer unlock()

	tpl, err := l.templates.Get(ctx, identity.Key)
	if err == nil {
		return tpl, false, nil
	}
	if !errors.Is(err, common.ErrTemplateNotFound) {
		return nil, false, err
	}

	tpl, err = l.Learn(ctx, pages, identity)
	if err != nil {
		return nil, false, err
	}
	return tpl, true, nil
}

// Learn issues one structural-analysis call and converts the draft into
// a persisted template. The draft must clear the minimum-field floor —
// an invoice number, at least one date field, and at least one total
// amount — otherwise the vendor fails with ErrTemplateIncomplete rather
// than poisoning the store with a degenerate template. The template is
// written to the store before it is returned.
func (l *Learner) Learn(ctx context.Context, pages []entity.PageImage, identity entity.VendorIdentity) (*entity.Template, error) {
	l.logger.Info("learner.start", "vendor_key", identity.Key, "pages", len(pages))

	draft, err := l.analyzer.AnalyzeStructure(ctx, pages, identity)
	if err != nil {
		return nil, common.WrapError(err, "structural analysis")
	}

	tpl := draftToTemplate(draft, identity)
	if err := checkFieldFloor(tpl); err != nil {
		l.logger.Error("learner.incomplete",
			"vendor_key", identity.Key,
			"fields", len(tpl.Fields),
			"error", err,
		)
		return nil, err
	}

	if err := l.templates.Put(ctx, identity.Key, tpl); err != nil {
		return nil, common.WrapError(err, "persist learned template")
	}

	l.logger.Info("learner.template.saved",
		"vendor_key", identity.Key,
		"fields", len(tpl.Fields),
		"columns", len(tpl.LineItems),
		"required", len(tpl.Rules.RequiredFields),
	)
	return tpl, nil
}

// draftToTemplate applies defaults the analysis response may omit.
func draftToTemplate(d llm.TemplateDraft, identity entity.VendorIdentity) *entity.Template {
	tpl := &entity.Template{
		VendorKey:     identity.Key,
		VendorName:    identity.DisplayName,
		SchemaVersion: 1,
		CreatedAt:     time.Now().UTC(),
	}
	if d.VendorName != "" {
		tpl.VendorName = d.VendorName
	}

	for _, f := range d.Fields {
		if f.Name == "" {
			continue
		}
		tpl.Fields = append(tpl.Fields, entity.FieldDef{
			Name:     f.Name,
			Type:     constants.FieldType(f.Type),
			Required: f.Required,
		})
	}

	for _, c := range d.LineItemColumns {
		if c.Name == "" {
			continue
		}
		tpl.LineItems = append(tpl.LineItems, entity.ColumnDef{
			Name: c.Name,
			Type: constants.FieldType(c.Type),
		})
	}
	if len(tpl.LineItems) == 0 {
		tpl.LineItems = []entity.ColumnDef{
			{Name: "description", Type: constants.FieldString},
			{Name: "qty", Type: constants.FieldNumber},
			{Name: "rate", Type: constants.FieldCurrency},
			{Name: "line_total", Type: constants.FieldCurrency},
		}
	}

	required := d.RequiredFields
	if len(required) == 0 {
		for _, f := range tpl.Fields {
			if f.Required {
				required = append(required, f.Name)
			}
		}
	} else {
		// Required list and field flags must agree either way.
		for _, name := range required {
			for i := range tpl.Fields {
				if tpl.Fields[i].Name == name {
					tpl.Fields[i].Required = true
				}
			}
		}
	}

	tpl.Rules = entity.ValidationRules{
		RequiredFields:   required,
		CheckTotals:      hasConstraint(d.SumConstraints, "subtotal+tax=total"),
		CheckLineMath:    hasConstraint(d.SumConstraints, "qty*rate=line_total"),
		CheckLineItemSum: true,
		Tolerance:        defaultTolerance,
	}
	// Without explicit constraints from analysis, all arithmetic checks
	// apply; templates only opt out, never silently skip.
	if len(d.SumConstraints) == 0 {
		tpl.Rules.CheckTotals = true
		tpl.Rules.CheckLineMath = true
	}

	tpl.Hints = entity.ExtractionHints{
		DateFormat:   d.DateFormat,
		Currency:     d.Currency,
		MultiInvoice: d.MultiInvoice,
	}
	return tpl
}

func hasConstraint(constraints []string, want string) bool {
	for _, c := range constraints {
		if c == want {
			return true
		}
	}
	return false
}

// checkFieldFloor enforces the minimum a template must describe before
// it is worth persisting.
func checkFieldFloor(tpl *entity.Template) error {
	if _, ok := tpl.Field(constants.FieldInvoiceNumber); !ok {
		return common.WrapError(common.ErrTemplateIncomplete, "missing invoice_number field")
	}

	hasDate := false
	hasTotal := false
	for _, f := range tpl.Fields {
		if f.Type == constants.FieldDate {
			hasDate = true
		}
		if f.Type == constants.FieldCurrency || f.Name == constants.FieldTotal {
			hasTotal = true
		}
	}
	if !hasDate {
		return common.WrapError(common.ErrTemplateIncomplete, "missing a date field")
	}
	if !hasTotal {
		return common.WrapError(common.ErrTemplateIncomplete, "missing a total amount field")
	}
	return nil
}
