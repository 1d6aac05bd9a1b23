package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/iocache"
	"github.com/huangsam/depdive/schema"
)

// scriptedRunner returns a canned outcome per package name.
type scriptedRunner struct {
	mu       sync.Mutex
	errs     map[string]error
	seen     []string
	suppress []bool
}

func (r *scriptedRunner) Run(ctx context.Context, req schema.AnalysisRequest) (*schema.AnalysisReport, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req.Package)
	r.suppress = append(r.suppress, shouldSuppressHeader(ctx))
	r.mu.Unlock()
	if err := r.errs[req.Package]; err != nil {
		return nil, err
	}
	return schema.NewAnalysisReport(req), nil
}

func pending(names ...string) []schema.PackageUpdate {
	out := make([]schema.PackageUpdate, len(names))
	for i, name := range names {
		out[i] = schema.PackageUpdate{
			ID:         int64(i + 1),
			Ecosystem:  schema.NPM,
			Package:    name,
			OldVersion: "1.0.0",
			NewVersion: "1.0.1",
		}
	}
	return out
}

func TestRunBatch(t *testing.T) {
	runner := &scriptedRunner{errs: map[string]error{
		"broken":  fmt.Errorf("resolve: %w", schema.ErrReleaseCommitNotFound),
		"limited": schema.ErrRateLimitExhausted,
	}}
	store := &iocache.MockReportStore{}
	store.On("PendingUpdates", 10).Return(pending("ok", "broken", "limited"), nil)
	store.On("RecordReport", int64(1), mock.AnythingOfType("*schema.AnalysisReport")).Return(nil)
	store.On("RecordFailure", int64(2), "Release commit not found").Return(nil)

	outcomes, err := RunBatch(context.Background(), runner, store, 10, 2)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.False(t, outcomes[0].Failed())
	assert.NotNil(t, outcomes[0].Report)
	assert.True(t, outcomes[1].Failed())
	assert.False(t, outcomes[1].Skipped)
	assert.True(t, outcomes[2].Skipped, "rate limited updates stay pending")

	assert.ElementsMatch(t, []string{"ok", "broken", "limited"}, runner.seen)
	for _, s := range runner.suppress {
		assert.True(t, s, "batch runs never print per-analysis headers")
	}
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RecordFailure", int64(3), mock.Anything)
}

func TestRunBatch_Empty(t *testing.T) {
	store := &iocache.MockReportStore{}
	store.On("PendingUpdates", 5).Return(nil, nil)

	outcomes, err := RunBatch(context.Background(), &scriptedRunner{}, store, 5, 1)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestRunBatch_PendingError(t *testing.T) {
	store := &iocache.MockReportStore{}
	store.On("PendingUpdates", 5).Return(nil, assert.AnError)

	_, err := RunBatch(context.Background(), &scriptedRunner{}, store, 5, 1)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunBatch_Canceled(t *testing.T) {
	store := &iocache.MockReportStore{}
	store.On("PendingUpdates", 5).Return(pending("a", "b"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := RunBatch(ctx, &scriptedRunner{}, store, 5, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Skipped)
	}
	store.AssertNotCalled(t, "RecordReport", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "RecordFailure", mock.Anything, mock.Anything)
}

func TestRunBatch_RecordErrorDoesNotStopBatch(t *testing.T) {
	store := &iocache.MockReportStore{}
	store.On("PendingUpdates", 5).Return(pending("a", "b"), nil)
	store.On("RecordReport", mock.Anything, mock.Anything).Return(assert.AnError)

	outcomes, err := RunBatch(context.Background(), &scriptedRunner{}, store, 5, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	store.AssertNumberOfCalls(t, "RecordReport", 2)
}
