package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormSyncAuditLogRepository implements stocksync.AuditLogRepository using GORM.
// The table is append-only: there is no update or delete.
type GormSyncAuditLogRepository struct {
	db *gorm.DB
}

// NewGormSyncAuditLogRepository creates a new GormSyncAuditLogRepository
func NewGormSyncAuditLogRepository(db *gorm.DB) *GormSyncAuditLogRepository {
	return &GormSyncAuditLogRepository{db: db}
}

// Append inserts one audit entry
func (r *GormSyncAuditLogRepository) Append(ctx context.Context, entry *stocksync.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(models.SyncAuditLogModelFromDomain(entry)).Error
}

// ListRecent returns the newest entries of an account first
func (r *GormSyncAuditLogRepository) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]stocksync.AuditLogEntry, error) {
	var rows []models.SyncAuditLogModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]stocksync.AuditLogEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

var _ stocksync.AuditLogRepository = (*GormSyncAuditLogRepository)(nil)
