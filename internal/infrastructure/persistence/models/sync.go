package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// SyncAuditLogModel is one stock correction pushed to the storefront.
// Rows are only ever inserted.
type SyncAuditLogModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key"`
	AccountID           uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_audit_logs_account_created,priority:1"`
	ProductID           uuid.UUID `gorm:"type:uuid;not null"`
	VariationID         int64     `gorm:"not null;default:0"`
	ExternalID          int64     `gorm:"not null"`
	ExternalVariationID int64     `gorm:"not null;default:0"`
	PreviousValue       *int64
	NewValue            int64     `gorm:"not null"`
	Trigger             string    `gorm:"type:varchar(20);not null"`
	Source              string    `gorm:"type:varchar(50);not null"`
	CreatedAt           time.Time `gorm:"not null;index:idx_sync_audit_logs_account_created,priority:2"`
}

// TableName returns the table name for GORM
func (SyncAuditLogModel) TableName() string {
	return "sync_audit_logs"
}

// ToDomain converts the persistence model to a domain AuditLogEntry
func (m *SyncAuditLogModel) ToDomain() *stocksync.AuditLogEntry {
	return &stocksync.AuditLogEntry{
		ID:            m.ID,
		AccountID:     m.AccountID,
		Key:           bom.NewProductKey(m.ProductID, m.VariationID),
		ExternalRef:   bom.ExternalRef{ExternalID: m.ExternalID, VariationID: m.ExternalVariationID},
		PreviousValue: m.PreviousValue,
		NewValue:      m.NewValue,
		Trigger:       stocksync.SyncTrigger(m.Trigger),
		Source:        m.Source,
		CreatedAt:     m.CreatedAt,
	}
}

// SyncAuditLogModelFromDomain creates a new persistence model from a domain AuditLogEntry
func SyncAuditLogModelFromDomain(e *stocksync.AuditLogEntry) *SyncAuditLogModel {
	return &SyncAuditLogModel{
		ID:                  e.ID,
		AccountID:           e.AccountID,
		ProductID:           e.Key.ProductID,
		VariationID:         e.Key.VariationID,
		ExternalID:          e.ExternalRef.ExternalID,
		ExternalVariationID: e.ExternalRef.VariationID,
		PreviousValue:       e.PreviousValue,
		NewValue:            e.NewValue,
		Trigger:             string(e.Trigger),
		Source:              e.Source,
		CreatedAt:           e.CreatedAt,
	}
}
