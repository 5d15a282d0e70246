package models

import (
	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// InternalStockItemModel is the persistence model for stock owned by this system
type InternalStockItemModel struct {
	AccountModel
	Name     string `gorm:"type:varchar(255);not null"`
	SKU      string `gorm:"column:sku;type:varchar(100)"`
	Quantity int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InternalStockItemModel) TableName() string {
	return "internal_stock_items"
}

// ToDomain converts the persistence model to a domain InternalStockItem
func (m *InternalStockItemModel) ToDomain() *bom.InternalStockItem {
	return &bom.InternalStockItem{
		ID:        m.ID,
		AccountID: m.AccountID,
		Name:      m.Name,
		SKU:       m.SKU,
		Quantity:  m.Quantity,
	}
}

// InternalStockItemModelFromDomain creates a new persistence model from a domain InternalStockItem
func InternalStockItemModelFromDomain(item *bom.InternalStockItem) *InternalStockItemModel {
	m := &InternalStockItemModel{
		Name:     item.Name,
		SKU:      item.SKU,
		Quantity: item.Quantity,
	}
	m.ID = item.ID
	m.AccountID = item.AccountID
	return m
}

// SupplierItemModel is the persistence model for a raw material bought from a supplier.
// A null stock_cap means unconstrained supply.
type SupplierItemModel struct {
	AccountModel
	SupplierID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"type:varchar(255);not null"`
	SKU          string    `gorm:"column:sku;type:varchar(100)"`
	StockCap     *int64
	LeadTimeDays *int
}

// TableName returns the table name for GORM
func (SupplierItemModel) TableName() string {
	return "supplier_items"
}

// ToDomain converts the persistence model to a domain SupplierItem
func (m *SupplierItemModel) ToDomain() *bom.SupplierItem {
	return &bom.SupplierItem{
		ID:           m.ID,
		AccountID:    m.AccountID,
		SupplierID:   m.SupplierID,
		Name:         m.Name,
		SKU:          m.SKU,
		StockCap:     m.StockCap,
		LeadTimeDays: m.LeadTimeDays,
	}
}

// SupplierItemModelFromDomain creates a new persistence model from a domain SupplierItem
func SupplierItemModelFromDomain(item *bom.SupplierItem) *SupplierItemModel {
	m := &SupplierItemModel{
		SupplierID:   item.SupplierID,
		Name:         item.Name,
		SKU:          item.SKU,
		StockCap:     item.StockCap,
		LeadTimeDays: item.LeadTimeDays,
	}
	m.ID = item.ID
	m.AccountID = item.AccountID
	return m
}

// SupplierModel is the persistence model for a supplier
type SupplierModel struct {
	AccountModel
	Name         string `gorm:"type:varchar(200);not null"`
	LeadTimeDays int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier
func (m *SupplierModel) ToDomain() *bom.Supplier {
	return &bom.Supplier{
		ID:           m.ID,
		AccountID:    m.AccountID,
		Name:         m.Name,
		LeadTimeDays: m.LeadTimeDays,
	}
}

// SupplierModelFromDomain creates a new persistence model from a domain Supplier
func SupplierModelFromDomain(s *bom.Supplier) *SupplierModel {
	m := &SupplierModel{
		Name:         s.Name,
		LeadTimeDays: s.LeadTimeDays,
	}
	m.ID = s.ID
	m.AccountID = s.AccountID
	return m
}
