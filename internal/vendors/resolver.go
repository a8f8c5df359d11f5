package vendors

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
	"github.com/joseph-ayodele/invoice-validator/internal/repository"
)

// maxVendorNameLen rejects classifier replies that are clearly prose
// rather than a name.
const maxVendorNameLen = 120

// Resolver maps a document's first page onto a canonical vendor
// identity via one external classification call.
type Resolver struct {
	logger     *slog.Logger
	classifier llm.VendorClassifier
	templates  repository.TemplateRepository
}

func NewResolver(classifier llm.VendorClassifier, templates repository.TemplateRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger:     logger,
		classifier: classifier,
		templates:  templates,
	}
}

// Resolve identifies the vendor on a first page. Known vendor names are
// passed along so near-miss spellings land on the key already on file.
// An empty or unusable reply fails with ErrVendorUnresolved.
func (r *Resolver) Resolve(ctx context.Context, firstPage entity.PageImage) (entity.VendorIdentity, error) {
	known, err := r.templates.ListVendorNames(ctx)
	if err != nil {
		// A listing failure only costs the spelling hint.
		r.logger.Warn("vendor.known_list_failed", "error", err)
		known = nil
	}

	name, err := r.classifier.ClassifyVendor(ctx, firstPage, known)
	if err != nil {
		return entity.VendorIdentity{}, common.WrapError(err, "classify vendor")
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxVendorNameLen || strings.ContainsRune(name, '\n') {
		r.logger.Warn("vendor.unresolved", "raw_len", len(name))
		return entity.VendorIdentity{}, common.ErrVendorUnresolved
	}

	key := Canonicalize(name)
	if key == "" {
		return entity.VendorIdentity{}, common.ErrVendorUnresolved
	}

	r.logger.Info("vendor.resolved", "vendor", name, "vendor_key", key)
	return entity.VendorIdentity{Key: key, DisplayName: name}, nil
}

// Canonicalize derives the stable template key from a detected vendor
// name: lowercase, runs of non-alphanumeric characters collapsed to a
// single underscore, leading/trailing separators trimmed. It is pure,
// total, and idempotent.
func Canonicalize(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	return b.String()
}
