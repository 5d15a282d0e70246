package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// ProductModel is the persistence model for a mirrored storefront product.
// Variations share the product ID and are told apart by variation_id; 0 is the parent.
type ProductModel struct {
	BaseModel
	VariationID   int64      `gorm:"primaryKey;autoIncrement:false;default:0"`
	AccountID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExternalID    int64      `gorm:"not null"`
	Name          string     `gorm:"type:varchar(255);not null"`
	SKU           string     `gorm:"column:sku;type:varchar(100)"`
	ManagesStock  bool       `gorm:"not null;default:false"`
	StockQuantity *int64     `gorm:"column:stock_quantity"`
	SupplierID    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *bom.Product {
	var stock *int64
	if m.StockQuantity != nil {
		v := *m.StockQuantity
		stock = &v
	}
	return &bom.Product{
		ID:            m.ID,
		VariationID:   m.VariationID,
		AccountID:     m.AccountID,
		ExternalID:    m.ExternalID,
		Name:          m.Name,
		SKU:           m.SKU,
		ManagesStock:  m.ManagesStock,
		ExternalStock: stock,
		SupplierID:    m.SupplierID,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *bom.Product) {
	m.ID = p.ID
	m.VariationID = p.VariationID
	m.AccountID = p.AccountID
	m.ExternalID = p.ExternalID
	m.Name = p.Name
	m.SKU = p.SKU
	m.ManagesStock = p.ManagesStock
	m.StockQuantity = p.ExternalStock
	m.SupplierID = p.SupplierID
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *bom.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// BOMModel is the persistence model for a bill of materials.
// One BOM exists per (account, product, variation).
type BOMModel struct {
	BaseModel
	AccountID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_boms_account_product,priority:1"`
	ProductID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_boms_account_product,priority:2"`
	VariationID int64          `gorm:"not null;default:0;uniqueIndex:idx_boms_account_product,priority:3"`
	Lines       []BOMLineModel `gorm:"foreignKey:BOMID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (BOMModel) TableName() string {
	return "boms"
}

// ToDomain converts the persistence model to a domain BillOfMaterials.
// Lines are expected in position order. A line whose stored reference cannot
// be decoded keeps a nil component so validation reports it.
func (m *BOMModel) ToDomain() *bom.BillOfMaterials {
	b := &bom.BillOfMaterials{
		ID:        m.ID,
		AccountID: m.AccountID,
		Key:       bom.NewProductKey(m.ProductID, m.VariationID),
		Lines:     make([]bom.BOMLine, 0, len(m.Lines)),
	}
	for i := range m.Lines {
		b.Lines = append(b.Lines, m.Lines[i].ToDomain())
	}
	return b
}

// BOMModelFromDomain creates a new persistence model from a domain BillOfMaterials
func BOMModelFromDomain(b *bom.BillOfMaterials) *BOMModel {
	m := &BOMModel{
		ProductID:   b.Key.ProductID,
		VariationID: b.Key.VariationID,
		Lines:       make([]BOMLineModel, 0, len(b.Lines)),
	}
	m.ID = b.ID
	m.AccountID = b.AccountID
	for i := range b.Lines {
		line := BOMLineModelFromDomain(&b.Lines[i])
		line.BOMID = b.ID
		m.Lines = append(m.Lines, *line)
	}
	return m
}

// BOMLineModel stores a component reference in flattened form: component_kind
// selects which of component_product_id/component_variation_id or
// component_item_id is meaningful.
type BOMLineModel struct {
	BaseModel
	BOMID                uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index"`
	Position             int             `gorm:"not null;default:0"`
	ComponentKind        string          `gorm:"type:varchar(32);not null"`
	ComponentProductID   *uuid.UUID      `gorm:"type:uuid"`
	ComponentVariationID int64           `gorm:"not null;default:0"`
	ComponentItemID      *uuid.UUID      `gorm:"type:uuid"`
	QuantityPerUnit      decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	WasteFactor          decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (BOMLineModel) TableName() string {
	return "bom_lines"
}

// ToDomain converts the persistence model to a domain BOMLine
func (m *BOMLineModel) ToDomain() bom.BOMLine {
	ref, err := bom.NewComponentReference(bom.ComponentKind(m.ComponentKind), m.ComponentProductID, m.ComponentVariationID, m.ComponentItemID)
	if err != nil {
		ref = nil
	}
	return bom.BOMLine{
		ID:              m.ID,
		Position:        m.Position,
		QuantityPerUnit: m.QuantityPerUnit,
		WasteFactor:     m.WasteFactor,
		Component:       ref,
	}
}

// BOMLineModelFromDomain flattens a domain BOMLine
func BOMLineModelFromDomain(l *bom.BOMLine) *BOMLineModel {
	m := &BOMLineModel{
		Position:        l.Position,
		QuantityPerUnit: l.QuantityPerUnit,
		WasteFactor:     l.WasteFactor,
	}
	m.ID = l.ID
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	switch ref := l.Component.(type) {
	case bom.ExternalProduct:
		id := ref.ProductID
		m.ComponentKind = string(bom.ComponentKindExternalProduct)
		m.ComponentProductID = &id
		m.ComponentVariationID = ref.VariationID
	case bom.InternalStockItemRef:
		id := ref.ID
		m.ComponentKind = string(bom.ComponentKindInternalStockItem)
		m.ComponentItemID = &id
	case bom.SupplierItemRef:
		id := ref.ID
		m.ComponentKind = string(bom.ComponentKindSupplierItem)
		m.ComponentItemID = &id
	}
	return m
}
