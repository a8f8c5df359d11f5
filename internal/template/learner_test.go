package template

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-validator/constants"
	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
	"github.com/joseph-ayodele/invoice-validator/internal/llm"
)

type stubAnalyzer struct {
	calls int32
	draft llm.TemplateDraft
	err   error
}

func (s *stubAnalyzer) AnalyzeStructure(context.Context, []entity.PageImage, entity.VendorIdentity) (llm.TemplateDraft, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.draft, s.err
}

type memTemplates struct {
	mu   sync.Mutex
	data map[string]*entity.Template
	puts int32
}

func newMemTemplates() *memTemplates {
	return &memTemplates{data: make(map[string]*entity.Template)}
}

func (m *memTemplates) Get(_ context.Context, key string) (*entity.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tpl, ok := m.data[key]; ok {
		cp := *tpl
		return &cp, nil
	}
	return nil, common.ErrTemplateNotFound
}

func (m *memTemplates) Put(_ context.Context, key string, tpl *entity.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.AddInt32(&m.puts, 1)
	cp := *tpl
	m.data[key] = &cp
	return nil
}

func (m *memTemplates) ListVendorNames(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, tpl := range m.data {
		names = append(names, tpl.VendorName)
	}
	return names, nil
}

func goodDraft() llm.TemplateDraft {
	return llm.TemplateDraft{
		VendorName: "Acme Corp",
		Fields: []llm.FieldDraft{
			{Name: "invoice_number", Type: "string", Required: true},
			{Name: "date_of_issue", Type: "date", Required: true},
			{Name: "due_date", Type: "date"},
			{Name: "subtotal", Type: "currency", Required: true},
			{Name: "tax", Type: "currency", Required: true},
			{Name: "total", Type: "currency", Required: true},
		},
		LineItemColumns: []llm.ColumnDraft{
			{Name: "description", Type: "string"},
			{Name: "qty", Type: "number"},
			{Name: "rate", Type: "currency"},
			{Name: "line_total", Type: "currency"},
		},
		RequiredFields: []string{"invoice_number", "date_of_issue", "total"},
		SumConstraints: []string{"subtotal+tax=total", "qty*rate=line_total"},
		DateFormat:     "M/D/YYYY",
		Currency:       "USD",
	}
}

var acme = entity.VendorIdentity{Key: "acme_corp", DisplayName: "Acme Corp"}

func pages() []entity.PageImage {
	return []entity.PageImage{{Number: 1, MediaType: "image/png", Data: []byte{1}}}
}

func TestLearnPersistsBeforeReturning(t *testing.T) {
	analyzer := &stubAnalyzer{draft: goodDraft()}
	store := newMemTemplates()
	l := NewLearner(analyzer, store, nil)

	tpl, err := l.Learn(context.Background(), pages(), acme)
	require.NoError(t, err)

	// the returned template is already on file
	persisted, err := store.Get(context.Background(), "acme_corp")
	require.NoError(t, err)
	assert.Equal(t, tpl.Fields, persisted.Fields)
	assert.Equal(t, tpl.Rules, persisted.Rules)
}

func TestLearnAppliesDraftDefaults(t *testing.T) {
	t.Run("sum constraints map to checks", func(t *testing.T) {
		analyzer := &stubAnalyzer{draft: goodDraft()}
		l := NewLearner(analyzer, newMemTemplates(), nil)

		tpl, err := l.Learn(context.Background(), pages(), acme)
		require.NoError(t, err)
		assert.True(t, tpl.Rules.CheckTotals)
		assert.True(t, tpl.Rules.CheckLineMath)
		assert.True(t, tpl.Rules.CheckLineItemSum)
		assert.Equal(t, "0.01", tpl.Rules.Tolerance)
	})

	t.Run("no constraints means all checks on", func(t *testing.T) {
		draft := goodDraft()
		draft.SumConstraints = nil
		l := NewLearner(&stubAnalyzer{draft: draft}, newMemTemplates(), nil)

		tpl, err := l.Learn(context.Background(), pages(), acme)
		require.NoError(t, err)
		assert.True(t, tpl.Rules.CheckTotals)
		assert.True(t, tpl.Rules.CheckLineMath)
	})

	t.Run("missing line item columns get defaults", func(t *testing.T) {
		draft := goodDraft()
		draft.LineItemColumns = nil
		l := NewLearner(&stubAnalyzer{draft: draft}, newMemTemplates(), nil)

		tpl, err := l.Learn(context.Background(), pages(), acme)
		require.NoError(t, err)
		require.Len(t, tpl.LineItems, 4)
		assert.Equal(t, "description", tpl.LineItems[0].Name)
		assert.Equal(t, "line_total", tpl.LineItems[3].Name)
	})

	t.Run("required list marks field flags", func(t *testing.T) {
		draft := goodDraft()
		draft.Fields[2].Required = false // due_date
		draft.RequiredFields = []string{"invoice_number", "due_date"}
		l := NewLearner(&stubAnalyzer{draft: draft}, newMemTemplates(), nil)

		tpl, err := l.Learn(context.Background(), pages(), acme)
		require.NoError(t, err)
		f, ok := tpl.Field("due_date")
		require.True(t, ok)
		assert.True(t, f.Required)
	})
}

func TestLearnFieldFloor(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*llm.TemplateDraft)
	}{
		{"no invoice number", func(d *llm.TemplateDraft) {
			d.Fields = []llm.FieldDraft{
				{Name: "date_of_issue", Type: "date"},
				{Name: "total", Type: "currency"},
			}
		}},
		{"no date field", func(d *llm.TemplateDraft) {
			d.Fields = []llm.FieldDraft{
				{Name: "invoice_number", Type: "string"},
				{Name: "total", Type: "currency"},
			}
		}},
		{"no total amount", func(d *llm.TemplateDraft) {
			d.Fields = []llm.FieldDraft{
				{Name: "invoice_number", Type: "string"},
				{Name: "date_of_issue", Type: "date"},
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := goodDraft()
			tt.mutate(&draft)
			store := newMemTemplates()
			l := NewLearner(&stubAnalyzer{draft: draft}, store, nil)

			_, err := l.Learn(context.Background(), pages(), acme)
			assert.ErrorIs(t, err, common.ErrTemplateIncomplete)

			// a degenerate template never reaches the store
			_, err = store.Get(context.Background(), "acme_corp")
			assert.ErrorIs(t, err, common.ErrTemplateNotFound)
		})
	}
}

func TestLearnAnalyzerError(t *testing.T) {
	boom := errors.New("model unavailable")
	l := NewLearner(&stubAnalyzer{err: boom}, newMemTemplates(), nil)

	_, err := l.Learn(context.Background(), pages(), acme)
	assert.ErrorIs(t, err, boom)
}

func TestFetchOrLearnReusesExisting(t *testing.T) {
	analyzer := &stubAnalyzer{draft: goodDraft()}
	store := newMemTemplates()
	store.data["acme_corp"] = &entity.Template{
		VendorKey:     "acme_corp",
		VendorName:    "Acme Corp",
		SchemaVersion: 1,
		Fields: []entity.FieldDef{
			{Name: "invoice_number", Type: constants.FieldString, Required: true},
		},
	}
	l := NewLearner(analyzer, store, nil)

	tpl, created, err := l.FetchOrLearn(context.Background(), pages(), acme)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "acme_corp", tpl.VendorKey)
	assert.Zero(t, atomic.LoadInt32(&analyzer.calls))
}

func TestFetchOrLearnConcurrentSameVendor(t *testing.T) {
	analyzer := &stubAnalyzer{draft: goodDraft()}
	store := newMemTemplates()
	l := NewLearner(analyzer, store, nil)

	const goroutines = 16
	var wg sync.WaitGroup
	var created int32
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasCreated, err := l.FetchOrLearn(context.Background(), pages(), acme)
			if err != nil {
				errs <- err
				return
			}
			if wasCreated {
				atomic.AddInt32(&created, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// exactly one goroutine learned; the rest observed its template
	assert.EqualValues(t, 1, atomic.LoadInt32(&analyzer.calls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&store.puts))
	assert.EqualValues(t, 1, created)
}

func TestFetchOrLearnDistinctVendorsDoNotSerialize(t *testing.T) {
	analyzer := &stubAnalyzer{draft: goodDraft()}
	store := newMemTemplates()
	l := NewLearner(analyzer, store, nil)

	vendors := []entity.VendorIdentity{
		{Key: "acme_corp", DisplayName: "Acme Corp"},
		{Key: "zenith_ltd", DisplayName: "Zenith Ltd"},
		{Key: "globex_inc", DisplayName: "Globex Inc"},
	}

	var wg sync.WaitGroup
	for _, v := range vendors {
		wg.Add(1)
		go func(id entity.VendorIdentity) {
			defer wg.Done()
			_, _, err := l.FetchOrLearn(context.Background(), pages(), id)
			assert.NoError(t, err)
		}(v)
	}
	wg.Wait()

	assert.EqualValues(t, len(vendors), atomic.LoadInt32(&analyzer.calls))
}
