package pipeline

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/invoice-validator/internal/entity"
)

// ProcessBatch runs every document through the pipeline with a bounded
// worker pool. Results come back in input order regardless of which
// worker finished first. Cancellation mid-batch leaves the remaining
// documents FAILED with reason "cancelled" rather than dropping them.
func (o *Orchestrator) ProcessBatch(ctx context.Context, docs []entity.Document) []Result {
	workers := o.cfg.BatchConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	o.logger.Info("batch.start", "documents", len(docs), "workers", workers)

	type job struct {
		idx int
		doc entity.Document
	}
	jobs := make(chan job)
	results := make([]Result, len(docs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = o.Process(ctx, j.doc)
			}
		}()
	}

	for i, doc := range docs {
		jobs <- job{idx: i, doc: doc}
	}
	close(jobs)
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	o.logger.Info("batch.done",
		"documents", len(docs),
		"succeeded", succeeded,
		"failed", len(docs)-succeeded,
	)
	return results
}
