package bom

import (
	"fmt"

	"github.com/google/uuid"
)

// ProductKey identifies a sellable unit: a product, or one variation of it.
// VariationID 0 means the product has no variation.
type ProductKey struct {
	ProductID   uuid.UUID
	VariationID int64
}

// NewProductKey creates a product key
func NewProductKey(productID uuid.UUID, variationID int64) ProductKey {
	return ProductKey{ProductID: productID, VariationID: variationID}
}

// IsZero returns true if the key has no product ID
func (k ProductKey) IsZero() bool {
	return k.ProductID == uuid.Nil
}

// String renders "<uuid>" or "<uuid>#<variation>"
func (k ProductKey) String() string {
	if k.VariationID == 0 {
		return k.ProductID.String()
	}
	return fmt.Sprintf("%s#%d", k.ProductID, k.VariationID)
}

// ExternalRef addresses a product or variation on the storefront
type ExternalRef struct {
	ExternalID  int64
	VariationID int64
}

// String returns the string representation of the reference
func (r ExternalRef) String() string {
	if r.VariationID == 0 {
		return fmt.Sprintf("%d", r.ExternalID)
	}
	return fmt.Sprintf("%d/%d", r.ExternalID, r.VariationID)
}

// Product is a storefront product (or variation) as mirrored in the catalog.
// ExternalStock is the quantity the storefront last reported; it stays
// authoritative until the next catalog refresh. nil means unknown.
type Product struct {
	ID            uuid.UUID
	VariationID   int64
	AccountID     uuid.UUID
	ExternalID    int64
	Name          string
	SKU           string
	ManagesStock  bool
	ExternalStock *int64
	SupplierID    *uuid.UUID
}

// Key returns the product key
func (p *Product) Key() ProductKey {
	return ProductKey{ProductID: p.ID, VariationID: p.VariationID}
}

// ExternalRef returns the storefront reference for the product
func (p *Product) ExternalRef() ExternalRef {
	return ExternalRef{ExternalID: p.ExternalID, VariationID: p.VariationID}
}

// CurrentStock returns the recorded external stock, treating unknown as zero
func (p *Product) CurrentStock() int64 {
	if p.ExternalStock == nil {
		return 0
	}
	return *p.ExternalStock
}

// InternalStockItem is stock owned entirely by this system (packaging, labels, ...)
type InternalStockItem struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	SKU       string
	Quantity  int64
}

// SupplierItem is a raw material bought from a supplier.
// It is unconstrained supply unless StockCap is set.
type SupplierItem struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	SupplierID uuid.UUID
	Name       string
	SKU        string
	StockCap   *int64
	// LeadTimeDays overrides the supplier's lead time when set
	LeadTimeDays *int
}

// Supplier is a vendor with a replenishment lead time
type Supplier struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Name         string
	LeadTimeDays int
}
