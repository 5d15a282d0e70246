package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

type mockProductSyncService struct {
	mock.Mock
}

func (m *mockProductSyncService) SyncProduct(ctx context.Context, accountID uuid.UUID, key bom.ProductKey, trigger stocksync.SyncTrigger) (*stocksync.SyncResult, error) {
	args := m.Called(ctx, accountID, key, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stocksync.SyncResult), args.Error(1)
}

func (m *mockProductSyncService) Diagnose(ctx context.Context, accountID uuid.UUID, key bom.ProductKey) (*stocksync.Diagnosis, error) {
	args := m.Called(ctx, accountID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stocksync.Diagnosis), args.Error(1)
}

func (m *mockProductSyncService) PendingChanges(ctx context.Context, accountID uuid.UUID) ([]stocksync.PendingChange, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stocksync.PendingChange), args.Error(1)
}

func (m *mockProductSyncService) RecentActivity(ctx context.Context, accountID uuid.UUID, limit int) ([]stocksync.AuditLogEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stocksync.AuditLogEntry), args.Error(1)
}

type mockBulkSyncService struct {
	mock.Mock
}

func (m *mockBulkSyncService) EnqueueBulkSync(ctx context.Context, accountID uuid.UUID, trigger stocksync.SyncTrigger) (*appsync.EnqueueResult, error) {
	args := m.Called(ctx, accountID, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsync.EnqueueResult), args.Error(1)
}

func (m *mockBulkSyncService) Status(ctx context.Context, accountID uuid.UUID) (*appsync.JobStatus, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsync.JobStatus), args.Error(1)
}

func (m *mockBulkSyncService) Cancel(ctx context.Context, accountID uuid.UUID) (*appsync.CancelResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsync.CancelResult), args.Error(1)
}

func int64Ptr(v int64) *int64 { return &v }

func setupInventorySync() (*mockProductSyncService, *mockBulkSyncService, http.Handler) {
	products := new(mockProductSyncService)
	bulk := new(mockBulkSyncService)
	engine := newTestEngine(NewInventorySyncHandler(products, bulk))
	return products, bulk, engine
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestInventorySyncHandler_SyncProduct(t *testing.T) {
	accountID := uuid.New()
	productID := uuid.New()
	key := bom.NewProductKey(productID, 42)

	t.Run("synced", func(t *testing.T) {
		products, _, engine := setupInventorySync()
		products.On("SyncProduct", mock.Anything, accountID, key, stocksync.SyncTriggerManual).
			Return(&stocksync.SyncResult{
				Key:           key,
				Status:        stocksync.SyncStatusSynced,
				PreviousStock: int64Ptr(3),
				NewStock:      int64Ptr(7),
			}, nil)

		w := serve(engine, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/products/%s/sync?variation_id=42", accountID, productID))

		assert.Equal(t, http.StatusOK, w.Code)
		var body SyncResultResponse
		resp := decodeResponse(t, w, &body)
		assert.True(t, resp.Success)
		assert.Equal(t, "SYNCED", body.Status)
		assert.Equal(t, int64(42), body.VariationID)
		require.NotNil(t, body.NewStock)
		assert.Equal(t, int64(7), *body.NewStock)
		products.AssertExpectations(t)
	})

	t.Run("invalid account", func(t *testing.T) {
		products, _, engine := setupInventorySync()

		w := serve(engine, http.MethodPost, fmt.Sprintf("/api/v1/accounts/not-a-uuid/products/%s/sync", productID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		products.AssertNotCalled(t, "SyncProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid variation", func(t *testing.T) {
		_, _, engine := setupInventorySync()

		w := serve(engine, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/products/%s/sync?variation_id=-1", accountID, productID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"product not found", fmt.Errorf("load: %w", bom.ErrProductNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"bom not found", bom.ErrBOMNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"cycle", &bom.CycleDetectedError{Path: []bom.ProductKey{key, key}}, http.StatusUnprocessableEntity, dto.ErrCodeCycleDetected},
		{"bom validation", bom.NewValidationError("quantity", "must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{
			"storefront rejected",
			stocksync.NewExternalSyncFailure(stocksync.FailureReasonAuth, bom.ExternalRef{ExternalID: 9}, errors.New("401")),
			http.StatusBadGateway,
			dto.ErrCodeExternalSyncFailure,
		},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			products, _, engine := setupInventorySync()
			products.On("SyncProduct", mock.Anything, accountID, bom.NewProductKey(productID, 0), stocksync.SyncTriggerManual).
				Return(nil, tc.err)

			w := serve(engine, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/products/%s/sync", accountID, productID))

			assert.Equal(t, tc.status, w.Code)
			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	t.Run("internal error hides details", func(t *testing.T) {
		products, _, engine := setupInventorySync()
		products.On("SyncProduct", mock.Anything, accountID, mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: password authentication failed"))

		w := serve(engine, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/products/%s/sync", accountID, productID))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func TestInventorySyncHandler_Diagnose(t *testing.T) {
	products, _, engine := setupInventorySync()
	accountID := uuid.New()
	productID := uuid.New()
	key := bom.NewProductKey(productID, 0)

	products.On("Diagnose", mock.Anything, accountID, key).Return(&stocksync.Diagnosis{
		Key:         key,
		ProductName: "Gift box",
		Syncable:    false,
		Issues: []stocksync.DiagnosisIssue{
			{Code: stocksync.DiagnosisMissingBOM, Message: "no BOM", LineIndex: -1, Blocking: true},
		},
	}, nil)

	w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/products/%s/diagnose", accountID, productID))

	assert.Equal(t, http.StatusOK, w.Code)
	var body DiagnosisResponse
	decodeResponse(t, w, &body)
	assert.False(t, body.Syncable)
	require.Len(t, body.Issues, 1)
	assert.Equal(t, "MISSING_BOM", body.Issues[0].Code)
	assert.True(t, body.Issues[0].Blocking)
	assert.Nil(t, body.Result)
}

func TestInventorySyncHandler_EnqueueBulkSync(t *testing.T) {
	accountID := uuid.New()
	path := fmt.Sprintf("/api/v1/accounts/%s/sync", accountID)

	tests := []struct {
		name   string
		result *appsync.EnqueueResult
		status int
	}{
		{
			name:   "queued",
			result: &appsync.EnqueueResult{Status: appsync.EnqueueStatusQueued, JobKey: stocksync.DedupKey(accountID)},
			status: http.StatusAccepted,
		},
		{
			name: "restarted after stale job",
			result: &appsync.EnqueueResult{
				Status:    appsync.EnqueueStatusRestarted,
				JobKey:    stocksync.DedupKey(accountID),
				Recovered: &stocksync.StaleJobRecovered{},
			},
			status: http.StatusAccepted,
		},
		{
			name: "already running",
			result: &appsync.EnqueueResult{
				Status: appsync.EnqueueStatusAlreadyRunning,
				JobKey: stocksync.DedupKey(accountID),
				Job:    &stocksync.SyncJob{State: stocksync.JobStateWaiting},
			},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bulk, engine := setupInventorySync()
			bulk.On("EnqueueBulkSync", mock.Anything, accountID, stocksync.SyncTriggerManual).Return(tt.result, nil)

			w := serve(engine, http.MethodPost, path)

			assert.Equal(t, tt.status, w.Code)
			var body EnqueueResponse
			decodeResponse(t, w, &body)
			assert.Equal(t, string(tt.result.Status), body.Status)
			assert.Equal(t, stocksync.DedupKey(accountID), body.JobKey)
			assert.Equal(t, tt.result.Recovered != nil, body.Recovered)
		})
	}
}

func TestInventorySyncHandler_BulkSyncStatus(t *testing.T) {
	_, bulk, engine := setupInventorySync()
	accountID := uuid.New()
	bulk.On("Status", mock.Anything, accountID).Return(&appsync.JobStatus{
		IsSyncing: true,
		State:     stocksync.JobStateActive,
		JobKey:    stocksync.DedupKey(accountID),
	}, nil)

	w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/sync", accountID))

	assert.Equal(t, http.StatusOK, w.Code)
	var body JobStatusResponse
	decodeResponse(t, w, &body)
	assert.True(t, body.IsSyncing)
	assert.Equal(t, "active", body.State)
}

func TestInventorySyncHandler_CancelBulkSync(t *testing.T) {
	accountID := uuid.New()
	path := fmt.Sprintf("/api/v1/accounts/%s/sync", accountID)

	t.Run("forced", func(t *testing.T) {
		_, bulk, engine := setupInventorySync()
		bulk.On("Cancel", mock.Anything, accountID).Return(&appsync.CancelResult{
			JobKey:        stocksync.DedupKey(accountID),
			Cancelled:     true,
			Forced:        true,
			PreviousState: stocksync.JobStateActive,
		}, nil)

		w := serve(engine, http.MethodDelete, path)

		assert.Equal(t, http.StatusOK, w.Code)
		var body CancelResponse
		decodeResponse(t, w, &body)
		assert.True(t, body.Cancelled)
		assert.True(t, body.Forced)
		assert.Equal(t, "active", body.PreviousState)
	})

	t.Run("no job", func(t *testing.T) {
		_, bulk, engine := setupInventorySync()
		bulk.On("Cancel", mock.Anything, accountID).Return(nil, stocksync.ErrJobNotFound)

		w := serve(engine, http.MethodDelete, path)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInventorySyncHandler_PendingChanges(t *testing.T) {
	products, _, engine := setupInventorySync()
	accountID := uuid.New()
	productID := uuid.New()
	products.On("PendingChanges", mock.Anything, accountID).Return([]stocksync.PendingChange{
		{Key: bom.NewProductKey(productID, 0), ProductName: "Kit", CurrentStock: int64Ptr(10), ComputedStock: 4},
	}, nil)

	w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/sync/pending", accountID))

	assert.Equal(t, http.StatusOK, w.Code)
	var body []PendingChangeResponse
	decodeResponse(t, w, &body)
	require.Len(t, body, 1)
	assert.Equal(t, int64(-6), body[0].Diff)
}

func TestInventorySyncHandler_RecentActivity(t *testing.T) {
	accountID := uuid.New()

	t.Run("explicit limit", func(t *testing.T) {
		products, _, engine := setupInventorySync()
		products.On("RecentActivity", mock.Anything, accountID, 25).Return([]stocksync.AuditLogEntry{
			{
				ID:            uuid.New(),
				AccountID:     accountID,
				Key:           bom.NewProductKey(uuid.New(), 0),
				ExternalRef:   bom.ExternalRef{ExternalID: 12},
				PreviousValue: int64Ptr(5),
				NewValue:      2,
				Trigger:       stocksync.SyncTriggerScheduled,
				Source:        stocksync.AuditSource,
			},
		}, nil)

		w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/sync/activity?limit=25", accountID))

		assert.Equal(t, http.StatusOK, w.Code)
		var body []AuditLogEntryResponse
		decodeResponse(t, w, &body)
		require.Len(t, body, 1)
		assert.Equal(t, int64(-3), body[0].Delta)
		assert.Equal(t, "SCHEDULED", body[0].Trigger)
	})

	t.Run("default limit", func(t *testing.T) {
		products, _, engine := setupInventorySync()
		products.On("RecentActivity", mock.Anything, accountID, 0).Return([]stocksync.AuditLogEntry{}, nil)

		w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/sync/activity", accountID))

		assert.Equal(t, http.StatusOK, w.Code)
		products.AssertExpectations(t)
	})

	t.Run("limit out of range", func(t *testing.T) {
		products, _, engine := setupInventorySync()

		w := serve(engine, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/sync/activity?limit=5000", accountID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "Limit", resp.Error.Details[0].Field)
		products.AssertNotCalled(t, "RecentActivity", mock.Anything, mock.Anything, mock.Anything)
	})
}
