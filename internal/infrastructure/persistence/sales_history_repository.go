package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/forecast"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence/models"
)

// excludedOrderStatuses never count as demand
var excludedOrderStatuses = []string{
	models.OrderLineStatusCancelled,
	models.OrderLineStatusRefunded,
	models.OrderLineStatusFailed,
}

// GormSalesHistoryRepository implements forecast.SalesHistorySource over order lines
type GormSalesHistoryRepository struct {
	db *gorm.DB
}

// NewGormSalesHistoryRepository creates a new GormSalesHistoryRepository
func NewGormSalesHistoryRepository(db *gorm.DB) *GormSalesHistoryRepository {
	return &GormSalesHistoryRepository{db: db}
}

type orderLineSale struct {
	OrderedAt time.Time
	Quantity  int64
}

// DailySales returns the quantity sold per UTC day in [from, to], oldest first.
// Lines are bucketed here rather than in SQL so the query stays portable across dialects.
func (r *GormSalesHistoryRepository) DailySales(ctx context.Context, accountID uuid.UUID, key bom.ProductKey, from, to time.Time) ([]forecast.DailySales, error) {
	var sales []orderLineSale
	if err := r.db.WithContext(ctx).
		Model(&models.OrderLineModel{}).
		Select("ordered_at, quantity").
		Where("account_id = ? AND product_id = ? AND variation_id = ?", accountID, key.ProductID, key.VariationID).
		Where("status NOT IN ?", excludedOrderStatuses).
		Where("ordered_at >= ? AND ordered_at <= ?", from.UTC(), to.UTC()).
		Order("ordered_at ASC").
		Scan(&sales).Error; err != nil {
		return nil, err
	}

	history := make([]forecast.DailySales, 0)
	index := make(map[time.Time]int)
	for _, s := range sales {
		t := s.OrderedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if i, ok := index[day]; ok {
			history[i].Quantity += s.Quantity
			continue
		}
		index[day] = len(history)
		history = append(history, forecast.DailySales{Date: day, Quantity: s.Quantity})
	}
	return history, nil
}

var _ forecast.SalesHistorySource = (*GormSalesHistoryRepository)(nil)
