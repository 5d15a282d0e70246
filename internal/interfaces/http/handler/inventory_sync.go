package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// ProductSyncService reconciles single products. Implemented by stocksync.Reconciler.
type ProductSyncService interface {
	SyncProduct(ctx context.Context, accountID uuid.UUID, key bom.ProductKey, trigger stocksync.SyncTrigger) (*stocksync.SyncResult, error)
	Diagnose(ctx context.Context, accountID uuid.UUID, key bom.ProductKey) (*stocksync.Diagnosis, error)
	PendingChanges(ctx context.Context, accountID uuid.UUID) ([]stocksync.PendingChange, error)
	RecentActivity(ctx context.Context, accountID uuid.UUID, limit int) ([]stocksync.AuditLogEntry, error)
}

// BulkSyncService controls the per-account bulk sync job. Implemented by stocksync.Orchestrator.
type BulkSyncService interface {
	EnqueueBulkSync(ctx context.Context, accountID uuid.UUID, trigger stocksync.SyncTrigger) (*appsync.EnqueueResult, error)
	Status(ctx context.Context, accountID uuid.UUID) (*appsync.JobStatus, error)
	Cancel(ctx context.Context, accountID uuid.UUID) (*appsync.CancelResult, error)
}

// InventorySyncHandler exposes BOM stock reconciliation. Bulk requests only
// enqueue, query or cancel the account job; they never run the computation inline.
type InventorySyncHandler struct {
	BaseHandler
	products ProductSyncService
	bulk     BulkSyncService
}

// NewInventorySyncHandler creates a new InventorySyncHandler
func NewInventorySyncHandler(products ProductSyncService, bulk BulkSyncService) *InventorySyncHandler {
	return &InventorySyncHandler{products: products, bulk: bulk}
}

// RegisterRoutes registers the inventory sync routes
func (h *InventorySyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts/:account_id")
	accounts.POST("/products/:product_id/sync", h.SyncProduct)
	accounts.GET("/products/:product_id/diagnose", h.Diagnose)

	accounts.POST("/sync", h.EnqueueBulkSync)
	accounts.GET("/sync", h.BulkSyncStatus)
	accounts.DELETE("/sync", h.CancelBulkSync)
	accounts.GET("/sync/pending", h.PendingChanges)
	accounts.GET("/sync/activity", h.RecentActivity)
}

// SyncProduct recomputes one product's stock and pushes it when it changed
// POST /accounts/:account_id/products/:product_id/sync?variation_id=
func (h *InventorySyncHandler) SyncProduct(c *gin.Context) {
	accountID, key, ok := h.accountAndProduct(c)
	if !ok {
		return
	}

	result, err := h.products.SyncProduct(c.Request.Context(), accountID, key, stocksync.SyncTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncResultResponse(result))
}

// Diagnose reports why a product may not be syncable
// GET /accounts/:account_id/products/:product_id/diagnose?variation_id=
func (h *InventorySyncHandler) Diagnose(c *gin.Context) {
	accountID, key, ok := h.accountAndProduct(c)
	if !ok {
		return
	}

	diagnosis, err := h.products.Diagnose(c.Request.Context(), accountID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDiagnosisResponse(diagnosis))
}

// EnqueueBulkSync requests a bulk sync of the account.
// 202 when a job was queued or restarted, 200 when one is already pending.
func (h *InventorySyncHandler) EnqueueBulkSync(c *gin.Context) {
	accountID, ok := h.account(c)
	if !ok {
		return
	}

	result, err := h.bulk.EnqueueBulkSync(c.Request.Context(), accountID, stocksync.SyncTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Status == appsync.EnqueueStatusAlreadyRunning {
		h.Success(c, toEnqueueResponse(result))
		return
	}
	h.Accepted(c, toEnqueueResponse(result))
}

// BulkSyncStatus reports the account's bulk sync job
func (h *InventorySyncHandler) BulkSyncStatus(c *gin.Context) {
	accountID, ok := h.account(c)
	if !ok {
		return
	}

	status, err := h.bulk.Status(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toJobStatusResponse(status))
}

// CancelBulkSync cancels the account's bulk sync job; 404 when there is none
func (h *InventorySyncHandler) CancelBulkSync(c *gin.Context) {
	accountID, ok := h.account(c)
	if !ok {
		return
	}

	result, err := h.bulk.Cancel(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCancelResponse(result))
}

// PendingChanges lists products whose storefront stock differs from the computed stock
func (h *InventorySyncHandler) PendingChanges(c *gin.Context) {
	accountID, ok := h.account(c)
	if !ok {
		return
	}

	changes, err := h.products.PendingChanges(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPendingChangeResponses(changes))
}

// RecentActivity lists the newest stock corrections of the account
// GET /accounts/:account_id/sync/activity?limit=
func (h *InventorySyncHandler) RecentActivity(c *gin.Context) {
	accountID, ok := h.account(c)
	if !ok {
		return
	}

	var query ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	entries, err := h.products.RecentActivity(c.Request.Context(), accountID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAuditLogEntryResponses(entries))
}

func (h *InventorySyncHandler) account(c *gin.Context) (uuid.UUID, bool) {
	accountID, ok := accountIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid account ID")
	}
	return accountID, ok
}

func (h *InventorySyncHandler) accountAndProduct(c *gin.Context) (uuid.UUID, bom.ProductKey, bool) {
	accountID, ok := h.account(c)
	if !ok {
		return uuid.Nil, bom.ProductKey{}, false
	}
	key, ok := productKeyParam(c)
	if !ok {
		h.BadRequest(c, "invalid product ID or variation ID")
		return uuid.Nil, bom.ProductKey{}, false
	}
	return accountID, key, true
}

var (
	_ ProductSyncService = (*appsync.Reconciler)(nil)
	_ BulkSyncService    = (*appsync.Orchestrator)(nil)
)
