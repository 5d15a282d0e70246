package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormProductRepository implements bom.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindAllByAccount returns every product and variation of an account
func (r *GormProductRepository) FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]bom.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC, id ASC, variation_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return productsToDomain(rows), nil
}

func productsToDomain(rows []models.ProductModel) []bom.Product {
	products := make([]bom.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}

var _ bom.ProductRepository = (*GormProductRepository)(nil)
