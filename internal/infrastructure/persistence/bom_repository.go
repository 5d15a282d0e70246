package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// GormBOMRepository implements bom.BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindAllByAccount returns every bill of materials of an account
func (r *GormBOMRepository) FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]bom.BillOfMaterials, error) {
	var rows []models.BOMModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	boms := make([]bom.BillOfMaterials, len(rows))
	for i := range rows {
		boms[i] = *rows[i].ToDomain()
	}
	return boms, nil
}

var _ bom.BOMRepository = (*GormBOMRepository)(nil)
