package core

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Runner analyzes one package update.
type Runner interface {
	Run(ctx context.Context, req schema.AnalysisRequest) (*schema.AnalysisReport, error)
}

var _ Runner = &Analyzer{} // Compile-time check

// RunBatch analyzes up to limit pending updates from store with at most workers concurrent
// analyses. Each outcome is recorded as a report or a failure; a failed update never stops
// the batch. Updates that hit an exhausted rate limit stay pending.
func RunBatch(
	ctx context.Context,
	runner Runner,
	store contract.ReportStore,
	limit, workers int,
) ([]schema.BatchOutcome, error) {
	updates, err := store.PendingUpdates(limit)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, nil
	}

	outcomes := make([]schema.BatchOutcome, len(updates))
	var storeMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, update := range updates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = schema.BatchOutcome{Update: update, Err: err, Skipped: true}
				return nil
			}
			outcomes[i] = runOne(WithSuppressHeader(gctx), runner, store, &storeMu, update)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, ctx.Err()
}

func runOne(
	ctx context.Context,
	runner Runner,
	store contract.ReportStore,
	storeMu *sync.Mutex,
	update schema.PackageUpdate,
) schema.BatchOutcome {
	log := analysisLogger(update.Request()).WithField("update", update.ID)
	report, err := runner.Run(ctx, update.Request())
	out := schema.BatchOutcome{Update: update, Report: report, Err: err}

	storeMu.Lock()
	defer storeMu.Unlock()
	switch {
	case err == nil:
		if recErr := store.RecordReport(update.ID, report); recErr != nil {
			contract.LogWarn("Failed to record report", recErr)
		}
	case errors.Is(err, schema.ErrRateLimitExhausted), errors.Is(err, context.Canceled):
		out.Skipped = true
		log.WithError(err).Warn("left pending")
	default:
		log.WithError(err).Warn("analysis failed")
		if recErr := store.RecordFailure(update.ID, schema.FailureReason(err)); recErr != nil {
			contract.LogWarn("Failed to record failure", recErr)
		}
	}
	return out
}
