package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormAccountRepository reads connected storefront accounts
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// ActiveAccountIDs returns the accounts with sync enabled that have at least one bill of materials
func (r *GormAccountRepository) ActiveAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.StorefrontAccountModel{}).
		Where("sync_enabled = ?", true).
		Where("EXISTS (SELECT 1 FROM boms WHERE boms.account_id = accounts.id)").
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
