package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
	"github.com/joseph-ayodele/invoice-validator/internal/llm/anthropic"
	"github.com/joseph-ayodele/invoice-validator/internal/pipeline"
	repo "github.com/joseph-ayodele/invoice-validator/internal/repository"
	tpl "github.com/joseph-ayodele/invoice-validator/internal/template"
	"github.com/joseph-ayodele/invoice-validator/internal/validate"
	"github.com/joseph-ayodele/invoice-validator/internal/vendors"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

func main() {
	// Parse CLI flags
	var (
		dir       = flag.String("dir", "", "directory with one subdirectory of page images per document (required)")
		templates = flag.String("templates", "", "template database directory (overrides TEMPLATES_DIR)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// .env is optional; real env always wins
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *templates != "" {
		cfg.Templates.Dir = *templates
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load documents before opening anything expensive
	docs, err := loadDocuments(*dir)
	if err != nil {
		logger.Error("failed to load documents", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		printError("No documents found under %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("documents loaded", "dir", *dir, "count", len(docs))

	// Open template store
	db, err := repo.Open(cfg.Templates.Dir, logger)
	if err != nil {
		logger.Error("failed to open template store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close template store", "error", err)
		}
	}()
	templatesRepo := repo.NewTemplateRepository(db, logger)

	// Anthropic client behind the shared call budget
	client := anthropic.NewClient(anthropic.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)
	budget := llm.NewCallBudget(cfg.Pipeline.CallsPerSecond, cfg.Pipeline.AdmissionTimeout, logger)
	classifier := &llm.BudgetedClassifier{Budget: budget, Next: client}
	analyzer := &llm.BudgetedAnalyzer{Budget: budget, Next: client}
	extractor := &llm.BudgetedExtractor{Budget: budget, Next: client}

	validator, err := validate.New(cfg.Validation)
	if err != nil {
		logger.Error("invalid validation configuration", "error", err)
		os.Exit(1)
	}

	orchestrator := pipeline.NewOrchestrator(
		logger,
		vendors.NewResolver(classifier, templatesRepo, logger),
		tpl.NewLearner(analyzer, templatesRepo, logger),
		extractor,
		validator,
		cfg.Pipeline,
	)

	results := orchestrator.ProcessBatch(ctx, docs)

	allClean := true
	for _, r := range results {
		fmt.Println(pipeline.FormatResult(r))
		if !r.Succeeded() || r.ValidCount() < len(r.Invoices) {
			allClean = false
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	fmt.Printf("Batch complete: %d document(s), %d processed, %d failed\n",
		len(results), succeeded, len(results)-succeeded)

	if !allClean {
		os.Exit(1)
	}
}

// loadDocuments reads one document per subdirectory of root. Page
// images inside a subdirectory are ordered by filename.
func loadDocuments(root string) ([]entity.Document, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var docs []entity.Document
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		doc, err := loadDocument(filepath.Join(root, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		if len(doc.Pages) > 0 {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func loadDocument(dir, name string) (entity.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return entity.Document{}, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	doc := entity.Document{
		ID:       uuid.New(),
		Filename: name,
	}
	for i, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return entity.Document{}, err
		}
		doc.Pages = append(doc.Pages, entity.PageImage{
			Number:    i + 1,
			MediaType: imageExtensions[strings.ToLower(filepath.Ext(f))],
			Data:      data,
		})
	}
	return doc, nil
}
