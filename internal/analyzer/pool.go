package analyzer

import (
	"context"
	"sync"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// RunReport summarizes one DispatchMany run: how many items produced a
// record, how many were skipped/failed, and every non-nil error Dispatch
// (or the metadata read before it) returned for an item. Refusals and
// transient errors that exhausted their retries never reach Errors: the
// dispatcher demotes them to a nil result, counted under Skipped (§7
// Propagation). An error in Errors does not stop the remaining items.
type RunReport struct {
	Analyzed int
	Skipped  int
	Errors   []error
}

// DispatchMany fans an evidence set out across a bounded worker pool
// (default 4-8 goroutines, per Config.Core.MaxWorkers) and dispatches each
// item independently, mirroring the parallel-file-processing pattern this
// lineage uses for its own ingestion pipeline (§5.1). A per-item failure
// never aborts its siblings; only a genuinely fatal error (surfaced via
// Dispatch returning a non-demotable error) is collected in RunReport.
func (d *Dispatcher) DispatchMany(ctx context.Context, ids []models.EvidenceId) *RunReport {
	workers := d.cfg.Core.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(ids) && len(ids) > 0 {
		workers = len(ids)
	}

	work := make(chan models.EvidenceId)
	type outcome struct {
		analyzed bool
		err      error
	}
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				rec, err := d.store.GetMetadata(id)
				if err != nil {
					results <- outcome{err: err}
					continue
				}
				if rec == nil {
					results <- outcome{err: nil, analyzed: false}
					continue
				}
				analysis, err := d.Dispatch(ctx, rec)
				if err != nil {
					results <- outcome{err: err}
					continue
				}
				results <- outcome{analyzed: analysis != nil}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, id := range ids {
			select {
			case work <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	report := &RunReport{}
	for o := range results {
		switch {
		case o.err != nil:
			report.Errors = append(report.Errors, o.err)
		case o.analyzed:
			report.Analyzed++
		default:
			report.Skipped++
		}
	}
	return report
}
