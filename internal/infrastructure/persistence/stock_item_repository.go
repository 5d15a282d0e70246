package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormStockItemRepository implements bom.StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindInternalItems returns the internal stock items of an account
func (r *GormStockItemRepository) FindInternalItems(ctx context.Context, accountID uuid.UUID) ([]bom.InternalStockItem, error) {
	var rows []models.InternalStockItemModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]bom.InternalStockItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// FindSupplierItems returns the supplier items of an account
func (r *GormStockItemRepository) FindSupplierItems(ctx context.Context, accountID uuid.UUID) ([]bom.SupplierItem, error) {
	var rows []models.SupplierItemModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]bom.SupplierItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

var _ bom.StockItemRepository = (*GormStockItemRepository)(nil)
