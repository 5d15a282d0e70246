package models

import (
	"time"

	"github.com/google/uuid"
)

// Order line statuses that do not count as demand
const (
	OrderLineStatusCancelled = "cancelled"
	OrderLineStatusRefunded  = "refunded"
	OrderLineStatusFailed    = "failed"
)

// OrderLineModel is one sold line of a storefront order, the source of sales history
type OrderLineModel struct {
	AccountModel
	OrderID     int64     `gorm:"not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index:idx_order_lines_product_ordered,priority:1"`
	VariationID int64     `gorm:"not null;default:0;index:idx_order_lines_product_ordered,priority:2"`
	Quantity    int64     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'completed'"`
	OrderedAt   time.Time `gorm:"not null;index:idx_order_lines_product_ordered,priority:3"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}
