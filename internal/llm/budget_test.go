package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-validator/internal/common"
	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

func TestCallBudgetAcquire(t *testing.T) {
	t.Run("first call admitted immediately", func(t *testing.T) {
		b := NewCallBudget(0.01, 50*time.Millisecond, nil)
		require.NoError(t, b.Acquire(context.Background()))
	})

	t.Run("exhausted budget times out with the sentinel", func(t *testing.T) {
		b := NewCallBudget(0.01, 50*time.Millisecond, nil)
		require.NoError(t, b.Acquire(context.Background()))

		err := b.Acquire(context.Background())
		assert.ErrorIs(t, err, common.ErrCallBudgetExceeded)
		assert.NotErrorIs(t, err, common.ErrExtractionFailed)
	})

	t.Run("cancelled context wins over the sentinel", func(t *testing.T) {
		b := NewCallBudget(0.01, time.Minute, nil)
		require.NoError(t, b.Acquire(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := b.Acquire(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("slot frees up after the interval", func(t *testing.T) {
		b := NewCallBudget(50, time.Second, nil)
		for i := 0; i < 3; i++ {
			require.NoError(t, b.Acquire(context.Background()))
		}
	})
}

type countingExtractor struct {
	calls int32
}

func (c *countingExtractor) ExtractInvoices(context.Context, []entity.PageImage, *entity.Template) ([]entity.Invoice, []byte, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, nil, nil
}

func TestBudgetedExtractor(t *testing.T) {
	t.Run("admitted call reaches the inner extractor", func(t *testing.T) {
		inner := &countingExtractor{}
		e := &BudgetedExtractor{Budget: NewCallBudget(0.01, 50*time.Millisecond, nil), Next: inner}

		_, _, err := e.ExtractInvoices(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
	})

	t.Run("rejected call never reaches the inner extractor", func(t *testing.T) {
		inner := &countingExtractor{}
		budget := NewCallBudget(0.01, 50*time.Millisecond, nil)
		require.NoError(t, budget.Acquire(context.Background()))
		e := &BudgetedExtractor{Budget: budget, Next: inner}

		_, _, err := e.ExtractInvoices(context.Background(), nil, nil)
		assert.ErrorIs(t, err, common.ErrCallBudgetExceeded)
		assert.Zero(t, atomic.LoadInt32(&inner.calls))
	})
}

func TestBudgetSharedAcrossStages(t *testing.T) {
	budget := NewCallBudget(0.01, 50*time.Millisecond, nil)
	inner := &countingExtractor{}
	e := &BudgetedExtractor{Budget: budget, Next: inner}

	// a classification admission drains the same budget the extractor uses
	require.NoError(t, budget.Acquire(context.Background()))

	_, _, err := e.ExtractInvoices(context.Background(), nil, nil)
	assert.ErrorIs(t, err, common.ErrCallBudgetExceeded)
}
