package handler

import (
	"time"

	"github.com/google/uuid"

	appsync "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// ActivityQuery is the query string of the recent activity listing
type ActivityQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ComponentBreakdownResponse is one BOM line of a stock computation
type ComponentBreakdownResponse struct {
	LineID            uuid.UUID `json:"line_id"`
	Component         string    `json:"component"`
	Kind              string    `json:"kind"`
	QuantityPerUnit   string    `json:"quantity_per_unit"`
	WasteFactor       string    `json:"waste_factor"`
	EffectiveQuantity string    `json:"effective_quantity"`
	Available         *int64    `json:"available"`
	Contribution      *int64    `json:"contribution"`
	Unconstrained     bool      `json:"unconstrained"`
	StockUnknown      bool      `json:"stock_unknown"`
	Nested            bool      `json:"nested"`
	Limiting          bool      `json:"limiting"`
}

// EffectiveStockResponse is the result of computing a product's buildable stock
type EffectiveStockResponse struct {
	ProductID            uuid.UUID                    `json:"product_id"`
	VariationID          int64                        `json:"variation_id"`
	EffectiveStock       *int64                       `json:"effective_stock"`
	CurrentExternalStock *int64                       `json:"current_external_stock"`
	NeedsSync            bool                         `json:"needs_sync"`
	Components           []ComponentBreakdownResponse `json:"components"`
}

// SyncResultResponse is returned by the single product sync endpoint
type SyncResultResponse struct {
	ProductID     uuid.UUID               `json:"product_id"`
	VariationID   int64                   `json:"variation_id"`
	Status        string                  `json:"status"`
	PreviousStock *int64                  `json:"previous_stock"`
	NewStock      *int64                  `json:"new_stock"`
	AuditEntryID  *uuid.UUID              `json:"audit_entry_id,omitempty"`
	Computation   *EffectiveStockResponse `json:"computation,omitempty"`
}

// DiagnosisIssueResponse is one finding of a diagnosis
type DiagnosisIssueResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LineIndex int    `json:"line_index"`
	Component string `json:"component,omitempty"`
	Blocking  bool   `json:"blocking"`
}

// DiagnosisResponse is returned by the diagnose endpoint
type DiagnosisResponse struct {
	ProductID   uuid.UUID                `json:"product_id"`
	VariationID int64                    `json:"variation_id"`
	ProductName string                   `json:"product_name,omitempty"`
	Syncable    bool                     `json:"syncable"`
	Result      *EffectiveStockResponse  `json:"result,omitempty"`
	Issues      []DiagnosisIssueResponse `json:"issues"`
	CheckedAt   time.Time                `json:"checked_at"`
}

// PendingChangeResponse is a product whose storefront stock is out of date
type PendingChangeResponse struct {
	ProductID     uuid.UUID `json:"product_id"`
	VariationID   int64     `json:"variation_id"`
	ProductName   string    `json:"product_name"`
	SKU           string    `json:"sku,omitempty"`
	CurrentStock  *int64    `json:"current_stock"`
	ComputedStock int64     `json:"computed_stock"`
	Diff          int64     `json:"diff"`
}

// AuditLogEntryResponse is one stock correction pushed to the storefront
type AuditLogEntryResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProductID           uuid.UUID `json:"product_id"`
	VariationID         int64     `json:"variation_id"`
	ExternalID          int64     `json:"external_id"`
	ExternalVariationID int64     `json:"external_variation_id,omitempty"`
	PreviousValue       *int64    `json:"previous_value"`
	NewValue            int64     `json:"new_value"`
	Delta               int64     `json:"delta"`
	Trigger             string    `json:"trigger"`
	Source              string    `json:"source"`
	CreatedAt           time.Time `json:"created_at"`
}

// EnqueueResponse is returned when a bulk sync is requested
type EnqueueResponse struct {
	Status    string `json:"status"`
	JobKey    string `json:"job_key"`
	State     string `json:"state,omitempty"`
	Recovered bool   `json:"recovered,omitempty"`
}

// JobStatusResponse reports the bulk sync of an account
type JobStatusResponse struct {
	IsSyncing    bool                       `json:"is_syncing"`
	State        string                     `json:"state,omitempty"`
	JobKey       string                     `json:"job_key"`
	EnqueuedAt   *time.Time                 `json:"enqueued_at,omitempty"`
	ProcessedOn  *time.Time                 `json:"processed_on,omitempty"`
	FinishedOn   *time.Time                 `json:"finished_on,omitempty"`
	FailedReason string                     `json:"failed_reason,omitempty"`
	Summary      *stocksync.BulkSyncSummary `json:"summary,omitempty"`
}

// CancelResponse is returned by the cancel endpoint
type CancelResponse struct {
	JobKey        string `json:"job_key"`
	Cancelled     bool   `json:"cancelled"`
	Forced        bool   `json:"forced"`
	PreviousState string `json:"previous_state"`
}

func toEffectiveStockResponse(r *bom.EffectiveStockResult) *EffectiveStockResponse {
	if r == nil {
		return nil
	}
	components := make([]ComponentBreakdownResponse, 0, len(r.Components))
	for _, cb := range r.Components {
		component := ""
		if cb.Component != nil {
			component = cb.Component.String()
		}
		components = append(components, ComponentBreakdownResponse{
			LineID:            cb.LineID,
			Component:         component,
			Kind:              cb.Kind.String(),
			QuantityPerUnit:   cb.QuantityPerUnit.String(),
			WasteFactor:       cb.WasteFactor.String(),
			EffectiveQuantity: cb.EffectiveQuantity.String(),
			Available:         cb.Available,
			Contribution:      cb.Contribution,
			Unconstrained:     cb.Unconstrained,
			StockUnknown:      cb.StockUnknown,
			Nested:            cb.Nested,
			Limiting:          cb.Limiting,
		})
	}
	return &EffectiveStockResponse{
		ProductID:            r.Key.ProductID,
		VariationID:          r.Key.VariationID,
		EffectiveStock:       r.EffectiveStock,
		CurrentExternalStock: r.CurrentExternalStock,
		NeedsSync:            r.NeedsSync,
		Components:           components,
	}
}

func toSyncResultResponse(r *stocksync.SyncResult) SyncResultResponse {
	return SyncResultResponse{
		ProductID:     r.Key.ProductID,
		VariationID:   r.Key.VariationID,
		Status:        string(r.Status),
		PreviousStock: r.PreviousStock,
		NewStock:      r.NewStock,
		AuditEntryID:  r.AuditEntryID,
		Computation:   toEffectiveStockResponse(r.Computation),
	}
}

func toDiagnosisResponse(d *stocksync.Diagnosis) DiagnosisResponse {
	issues := make([]DiagnosisIssueResponse, 0, len(d.Issues))
	for _, issue := range d.Issues {
		issues = append(issues, DiagnosisIssueResponse{
			Code:      string(issue.Code),
			Message:   issue.Message,
			LineIndex: issue.LineIndex,
			Component: issue.Component,
			Blocking:  issue.Blocking,
		})
	}
	return DiagnosisResponse{
		ProductID:   d.Key.ProductID,
		VariationID: d.Key.VariationID,
		ProductName: d.ProductName,
		Syncable:    d.Syncable,
		Result:      toEffectiveStockResponse(d.Result),
		Issues:      issues,
		CheckedAt:   d.CheckedAt,
	}
}

func toPendingChangeResponses(changes []stocksync.PendingChange) []PendingChangeResponse {
	out := make([]PendingChangeResponse, 0, len(changes))
	for _, change := range changes {
		out = append(out, PendingChangeResponse{
			ProductID:     change.Key.ProductID,
			VariationID:   change.Key.VariationID,
			ProductName:   change.ProductName,
			SKU:           change.SKU,
			CurrentStock:  change.CurrentStock,
			ComputedStock: change.ComputedStock,
			Diff:          change.Diff(),
		})
	}
	return out
}

func toAuditLogEntryResponses(entries []stocksync.AuditLogEntry) []AuditLogEntryResponse {
	out := make([]AuditLogEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, AuditLogEntryResponse{
			ID:                  e.ID,
			ProductID:           e.Key.ProductID,
			VariationID:         e.Key.VariationID,
			ExternalID:          e.ExternalRef.ExternalID,
			ExternalVariationID: e.ExternalRef.VariationID,
			PreviousValue:       e.PreviousValue,
			NewValue:            e.NewValue,
			Delta:               e.Delta(),
			Trigger:             e.Trigger.String(),
			Source:              e.Source,
			CreatedAt:           e.CreatedAt,
		})
	}
	return out
}

func toEnqueueResponse(r *appsync.EnqueueResult) EnqueueResponse {
	resp := EnqueueResponse{
		Status:    string(r.Status),
		JobKey:    r.JobKey,
		Recovered: r.Recovered != nil,
	}
	if r.Job != nil {
		resp.State = r.Job.State.String()
	}
	return resp
}

func toJobStatusResponse(s *appsync.JobStatus) JobStatusResponse {
	return JobStatusResponse{
		IsSyncing:    s.IsSyncing,
		State:        string(s.State),
		JobKey:       s.JobKey,
		EnqueuedAt:   s.EnqueuedAt,
		ProcessedOn:  s.ProcessedOn,
		FinishedOn:   s.FinishedOn,
		FailedReason: s.FailedReason,
		Summary:      s.Summary,
	}
}

func toCancelResponse(r *appsync.CancelResult) CancelResponse {
	return CancelResponse{
		JobKey:        r.JobKey,
		Cancelled:     r.Cancelled,
		Forced:        r.Forced,
		PreviousState: string(r.PreviousState),
	}
}
