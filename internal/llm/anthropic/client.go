package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
)

// maxAnalysisPages bounds how many pages are sent for structural
// analysis; a few representative pages are enough to learn a layout.
const maxAnalysisPages = 4

// ClassifyVendor implements llm.VendorClassifier. It sends the first
// page plus the known-vendor list and expects a bare vendor name back.
func (c *Client) ClassifyVendor(ctx context.Context, page entity.PageImage, knownVendors []string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.classify.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"page_bytes", len(page.Data),
		"known_vendors", len(knownVendors),
	)

	blocks := []sdk.ContentBlockParamUnion{
		sdk.NewTextBlock(llm.BuildVendorPrompt(knownVendors)),
		imageBlock(page),
	}

	text, err := c.complete(ctx, blocks, 200)
	if err != nil {
		c.logger.Error("llm.classify.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	name := strings.TrimSpace(text)
	c.logger.Info("llm.classify.ok",
		"req_id", rid, "vendor", name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return name, nil
}

// AnalyzeStructure implements llm.TemplateAnalyzer. It sends up to
// maxAnalysisPages representative pages and parses the JSON layout
// description out of the reply.
func (c *Client) AnalyzeStructure(ctx context.Context, pages []entity.PageImage, identity entity.VendorIdentity) (llm.TemplateDraft, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.analyze.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"vendor_key", identity.Key,
		"pages", len(pages),
	)

	blocks := []sdk.ContentBlockParamUnion{
		sdk.NewTextBlock(llm.BuildAnalysisPrompt(identity)),
	}
	for _, p := range pages {
		if len(blocks) > maxAnalysisPages*2 {
			break
		}
		blocks = append(blocks,
			sdk.NewTextBlock(fmt.Sprintf("--- Page %d ---", p.Number)),
			imageBlock(p),
		)
	}

	text, err := c.complete(ctx, blocks, 4000)
	if err != nil {
		c.logger.Error("llm.analyze.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.TemplateDraft{}, err
	}

	body, ok := carveJSON(text, '{', '}')
	if !ok {
		c.logger.Error("llm.analyze.no_json",
			"req_id", rid, "response_len", len(text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.TemplateDraft{}, common.WrapError(common.ErrTemplateIncomplete, "no JSON object in analysis response")
	}

	draft, err := llm.DecodeTemplateDraft([]byte(body))
	if err != nil {
		c.logger.Error("llm.analyze.decode_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.TemplateDraft{}, common.WrapError(err, "decode analysis response")
	}

	c.logger.Info("llm.analyze.ok",
		"req_id", rid,
		"fields", len(draft.Fields),
		"columns", len(draft.LineItemColumns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft, nil
}

// ExtractInvoices implements llm.InvoiceExtractor. All pages go out in a
// single call; the reply must be a JSON array of invoice objects, which
// is schema-checked (with one lenient sanitize pass) before decoding.
func (c *Client) ExtractInvoices(ctx context.Context, pages []entity.PageImage, tpl *entity.Template) ([]entity.Invoice, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"vendor_key", tpl.VendorKey,
		"pages", len(pages),
	)

	blocks := []sdk.ContentBlockParamUnion{
		sdk.NewTextBlock(llm.BuildExtractionPrompt(tpl)),
	}
	for _, p := range pages {
		blocks = append(blocks,
			sdk.NewTextBlock(fmt.Sprintf("--- Page %d ---", p.Number)),
			imageBlock(p),
		)
	}

	text, err := c.complete(ctx, blocks, c.cfg.MaxTokens)
	if err != nil {
		c.logger.Error("llm.extract.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, common.WrapError(err, "extraction call")
	}

	body, ok := carveJSON(text, '[', ']')
	if !ok {
		c.logger.Error("llm.extract.no_json",
			"req_id", rid, "response_len", len(text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, []byte(text), common.WrapError(common.ErrExtractionFailed, "no JSON array in extraction response")
	}
	rawContent := []byte(body)

	// Validate strictly first; on failure try one lenient sanitize pass
	// before giving up.
	schema := llm.BuildInvoiceArraySchema(tpl)
	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		cleaned, changed, sErr := llm.SanitizeInvoiceArray(rawContent)
		if sErr != nil {
			c.logger.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, common.WrapError(sErr, "sanitize extraction response")
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, common.WrapError(vErr, "extraction response failed schema validation")
		}
		c.logger.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "changed", changed,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	invoices, err := llm.DecodeInvoices(rawContent)
	if err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, common.WrapError(err, "decode invoices")
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"invoices", len(invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return invoices, rawContent, nil
}

// complete issues one message call and concatenates the text blocks of
// the reply.
func (c *Client) complete(ctx context.Context, blocks []sdk.ContentBlockParamUnion, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = sdk.Float(float64(c.cfg.Temperature))
	}

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no text content in anthropic response")
	}
	return out.String(), nil
}

func imageBlock(p entity.PageImage) sdk.ContentBlockParamUnion {
	mt := p.MediaType
	if mt == "" {
		mt = "image/png"
	}
	return sdk.NewImageBlockBase64(mt, base64.StdEncoding.EncodeToString(p.Data))
}

// carveJSON pulls the outermost open..close span out of a model reply,
// tolerating prose around the JSON body.
func carveJSON(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
