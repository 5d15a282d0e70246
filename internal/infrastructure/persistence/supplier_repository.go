package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormSupplierRepository implements bom.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindAllByAccount returns the suppliers of an account
func (r *GormSupplierRepository) FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]bom.Supplier, error) {
	var rows []models.SupplierModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	suppliers := make([]bom.Supplier, len(rows))
	for i := range rows {
		suppliers[i] = *rows[i].ToDomain()
	}
	return suppliers, nil
}

var _ bom.SupplierRepository = (*GormSupplierRepository)(nil)
