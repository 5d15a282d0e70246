package stocksync

import (
	"time"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// SyncStatus is the outcome of a single product reconciliation
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "SYNCED"
	SyncStatusNoChange SyncStatus = "NO_CHANGE"
)

// SyncResult is returned by a single product reconciliation
type SyncResult struct {
	Key           bom.ProductKey
	Status        SyncStatus
	PreviousStock *int64
	NewStock      *int64
	AuditEntryID  *uuid.UUID
	Computation   *bom.EffectiveStockResult
}

// IsSynced returns true if a correction was pushed
func (r *SyncResult) IsSynced() bool {
	return r.Status == SyncStatusSynced
}

// PendingChange is a product whose computed stock differs from the recorded one
type PendingChange struct {
	Key           bom.ProductKey
	ProductName   string
	SKU           string
	CurrentStock  *int64
	ComputedStock int64
}

// Diff returns computed minus recorded stock, treating unknown as zero
func (p PendingChange) Diff() int64 {
	if p.CurrentStock == nil {
		return p.ComputedStock
	}
	return p.ComputedStock - *p.CurrentStock
}

// DiagnosisCode names a reason a product may not be syncable
type DiagnosisCode string

const (
	DiagnosisProductNotFound      DiagnosisCode = "PRODUCT_NOT_FOUND"
	DiagnosisMissingBOM           DiagnosisCode = "MISSING_BOM"
	DiagnosisEmptyBOM             DiagnosisCode = "EMPTY_BOM"
	DiagnosisCycleDetected        DiagnosisCode = "CYCLE_DETECTED"
	DiagnosisComponentUnavailable DiagnosisCode = "COMPONENT_UNAVAILABLE"
	DiagnosisStockUnknown         DiagnosisCode = "STOCK_UNKNOWN"
	DiagnosisUnconstrained        DiagnosisCode = "UNCONSTRAINED"
	DiagnosisStockNotManaged      DiagnosisCode = "STOCK_NOT_MANAGED"
	DiagnosisInvalidLine          DiagnosisCode = "INVALID_LINE"
)

// DiagnosisIssue is a single finding of Diagnose. LineIndex is -1 for BOM-level issues.
// A blocking issue prevents the product from being synced.
type DiagnosisIssue struct {
	Code      DiagnosisCode
	Message   string
	LineIndex int
	Component string
	Blocking  bool
}

// Diagnosis is the read-only sync eligibility report of one product
type Diagnosis struct {
	Key         bom.ProductKey
	ProductName string
	Syncable    bool
	Result      *bom.EffectiveStockResult
	Issues      []DiagnosisIssue
	CheckedAt   time.Time
}

// HasIssue returns true if the diagnosis contains the code
func (d *Diagnosis) HasIssue(code DiagnosisCode) bool {
	for _, issue := range d.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
