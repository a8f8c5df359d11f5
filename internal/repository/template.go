package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// TemplateRepository is the keyed template store. Get on an unknown key
// returns common.ErrTemplateNotFound, which callers treat as "learn a
// template", not as a failure. Put overwrites and is synchronous: once
// it returns, a Get on the same key in the same process observes the
// new value.
type TemplateRepository interface {
	Get(ctx context.Context, vendorKey string) (*entity.Template, error)
	Put(ctx context.Context, vendorKey string, tpl *entity.Template) error
	ListVendorNames(ctx context.Context) ([]string, error)
}

type templateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTemplateRepository(db *DB, logger *slog.Logger) TemplateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &templateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *templateRepository) Get(ctx context.Context, vendorKey string) (*entity.Template, error) {
	var tpl entity.Template
	if err := r.db.Store().Get(vendorKey, &tpl); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, common.ErrTemplateNotFound
		}
		r.logger.Error("template get failed", "vendor_key", vendorKey, "error", err)
		return nil, common.WrapError(err, "get template")
	}
	return &tpl, nil
}

func (r *templateRepository) Put(ctx context.Context, vendorKey string, tpl *entity.Template) error {
	if vendorKey == "" {
		return common.NewAppError("TEMPLATE_STORE", "vendor key is required", nil)
	}
	tpl.VendorKey = vendorKey
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}

	if err := r.db.Store().Upsert(vendorKey, tpl); err != nil {
		r.logger.Error("template put failed", "vendor_key", vendorKey, "error", err)
		return common.WrapError(err, "put template")
	}

	r.logger.Info("template saved",
		"vendor_key", vendorKey,
		"vendor_name", tpl.VendorName,
		"schema_version", tpl.SchemaVersion,
		"fields", len(tpl.Fields),
	)
	return nil
}

func (r *templateRepository) ListVendorNames(ctx context.Context) ([]string, error) {
	var templates []entity.Template
	if err := r.db.Store().Find(&templates, badgerhold.Where("VendorKey").Ne("").SortBy("VendorName")); err != nil {
		return nil, common.WrapError(err, "list vendors")
	}

	names := make([]string, 0, len(templates))
	for _, t := range templates {
		names = append(names, t.VendorName)
	}
	return names, nil
}
