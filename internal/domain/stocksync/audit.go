package stocksync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// AuditSource tags every audit entry written by the reconciler
const AuditSource = "inventory-sync"

// SyncTrigger is what caused a reconciliation
type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "MANUAL"
	SyncTriggerScheduled SyncTrigger = "SCHEDULED"
)

// IsValid returns true if the trigger is known
func (t SyncTrigger) IsValid() bool {
	return t == SyncTriggerManual || t == SyncTriggerScheduled
}

// String returns the string representation of SyncTrigger
func (t SyncTrigger) String() string {
	return string(t)
}

// AuditLogEntry records one stock correction pushed to the storefront.
// Entries are immutable and append-only.
type AuditLogEntry struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Key           bom.ProductKey
	ExternalRef   bom.ExternalRef
	PreviousValue *int64
	NewValue      int64
	Trigger       SyncTrigger
	Source        string
	CreatedAt     time.Time
}

// NewAuditLogEntry creates a validated audit entry
func NewAuditLogEntry(
	accountID uuid.UUID,
	key bom.ProductKey,
	ref bom.ExternalRef,
	previous *int64,
	newValue int64,
	trigger SyncTrigger,
	at time.Time,
) (*AuditLogEntry, error) {
	if accountID == uuid.Nil {
		return nil, ErrInvalidAccountID
	}
	if key.IsZero() {
		return nil, ErrInvalidProduct
	}
	if !trigger.IsValid() {
		return nil, ErrInvalidTrigger
	}
	if newValue < 0 {
		return nil, ErrNegativeStock
	}

	var prev *int64
	if previous != nil {
		v := *previous
		prev = &v
	}

	return &AuditLogEntry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Key:           key,
		ExternalRef:   ref,
		PreviousValue: prev,
		NewValue:      newValue,
		Trigger:       trigger,
		Source:        AuditSource,
		CreatedAt:     at.UTC(),
	}, nil
}

// Delta returns new minus previous, treating an unknown previous value as zero
func (e *AuditLogEntry) Delta() int64 {
	if e.PreviousValue == nil {
		return e.NewValue
	}
	return e.NewValue - *e.PreviousValue
}

// AuditLogRepository persists audit entries. It has no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
	// ListRecent returns the newest entries of an account first
	ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]AuditLogEntry, error)
}
