package stocksync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

func bulkJob(accountID uuid.UUID) *stocksync.SyncJob {
	return &stocksync.SyncJob{
		Key:       stocksync.DedupKey(accountID),
		AccountID: accountID,
		State:     stocksync.JobStateActive,
		Payload: stocksync.BulkSyncPayload{
			AccountID: accountID,
			Trigger:   stocksync.SyncTriggerScheduled,
		},
	}
}

func TestBulkSyncRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("isolates per-product failures", func(t *testing.T) {
		f := newCatalogFixture()
		drifted := f.product("Drifted", 1, int64Ptr(1))
		f.bom(drifted, f.internalItem(6))
		steady := f.product("Steady", 2, int64Ptr(6))
		f.bom(steady, f.internalItem(6))
		broken := f.product("Broken", 3, int64Ptr(6))
		f.bom(broken, bom.InternalStockItemRef{ID: uuid.New()})
		rejected := f.product("Rejected", 4, int64Ptr(0))
		f.bom(rejected, f.internalItem(2))
		loose := f.product("Loose", 5, int64Ptr(0))
		f.bom(loose)

		graphs := new(MockGraphProvider)
		provider := new(MockStockProvider)
		audit := new(MockAuditLogRepository)
		graphs.On("Load", mock.Anything, f.accountID).Return(f.graph(t), nil).Once()
		provider.On("SetStock", mock.Anything, f.accountID, bom.ExternalRef{ExternalID: 1}, int64(6)).Return(nil)
		provider.On("SetStock", mock.Anything, f.accountID, bom.ExternalRef{ExternalID: 4}, int64(2)).
			Return(stocksync.NewExternalSyncFailure(stocksync.FailureReasonValidation, bom.ExternalRef{ExternalID: 4}, errors.New("bad request")))
		audit.On("Append", mock.Anything, mock.Anything).Return(nil)

		var beats atomic.Int32
		heartbeat := func(context.Context) error {
			beats.Add(1)
			return nil
		}

		reconciler := newTestReconciler(graphs, provider, audit)
		runner := NewBulkSyncRunner(graphs, reconciler, 2, zap.NewNop())
		summary, err := runner.Run(ctx, bulkJob(f.accountID), heartbeat)
		require.NoError(t, err)

		assert.Equal(t, 4, summary.Total)
		assert.Equal(t, 1, summary.Synced)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 2, summary.Errored)
		assert.False(t, summary.Aborted)
		assert.Equal(t, int32(4), beats.Load())

		codes := map[string]bool{}
		for _, failure := range summary.Errors {
			codes[failure.Code] = true
		}
		assert.True(t, codes[bom.CodeComponentUnavailable])
		assert.True(t, codes[stocksync.CodeExternalSyncFailure])
		graphs.AssertNumberOfCalls(t, "Load", 1)
	})

	t.Run("cancelled job stops between products", func(t *testing.T) {
		f := newCatalogFixture()
		for i := int64(1); i <= 5; i++ {
			key := f.product("Kit", i, int64Ptr(0))
			f.bom(key, f.internalItem(3))
		}

		graphs := new(MockGraphProvider)
		provider := new(MockStockProvider)
		audit := new(MockAuditLogRepository)
		graphs.On("Load", mock.Anything, f.accountID).Return(f.graph(t), nil)
		provider.On("SetStock", mock.Anything, mock.Anything, mock.Anything, int64(3)).Return(nil)
		audit.On("Append", mock.Anything, mock.Anything).Return(nil)

		heartbeat := func(context.Context) error { return stocksync.ErrJobNotActive }

		runner := NewBulkSyncRunner(graphs, newTestReconciler(graphs, provider, audit), 1, zap.NewNop())
		summary, err := runner.Run(ctx, bulkJob(f.accountID), heartbeat)

		assert.ErrorIs(t, err, stocksync.ErrSyncCancelled)
		require.NotNil(t, summary)
		assert.True(t, summary.Aborted)
		assert.Equal(t, 5, summary.Total)
		assert.Equal(t, 1, summary.Synced)
	})

	t.Run("transient heartbeat error does not abort", func(t *testing.T) {
		f := newCatalogFixture()
		key := f.product("Kit", 1, int64Ptr(3))
		f.bom(key, f.internalItem(3))

		graphs := new(MockGraphProvider)
		graphs.On("Load", mock.Anything, f.accountID).Return(f.graph(t), nil)

		heartbeat := func(context.Context) error { return errors.New("redis timeout") }

		runner := NewBulkSyncRunner(graphs, newTestReconciler(graphs, new(MockStockProvider), new(MockAuditLogRepository)), 0, zap.NewNop())
		summary, err := runner.Run(ctx, bulkJob(f.accountID), heartbeat)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
	})

	t.Run("graph load failure fails the run", func(t *testing.T) {
		accountID := uuid.New()
		graphs := new(MockGraphProvider)
		graphs.On("Load", mock.Anything, accountID).Return(nil, errors.New("db down"))

		runner := NewBulkSyncRunner(graphs, newTestReconciler(graphs, new(MockStockProvider), new(MockAuditLogRepository)), 2, zap.NewNop())
		_, err := runner.Run(ctx, bulkJob(accountID), nil)
		assert.ErrorContains(t, err, "load component graph")
	})
}
