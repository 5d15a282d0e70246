package bom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProductRepository reads the mirrored storefront catalog
type ProductRepository interface {
	FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]Product, error)
}

// BOMRepository reads bills of materials with their lines
type BOMRepository interface {
	FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]BillOfMaterials, error)
}

// StockItemRepository reads internal stock items and supplier items
type StockItemRepository interface {
	FindInternalItems(ctx context.Context, accountID uuid.UUID) ([]InternalStockItem, error)
	FindSupplierItems(ctx context.Context, accountID uuid.UUID) ([]SupplierItem, error)
}

// SupplierRepository reads suppliers
type SupplierRepository interface {
	FindAllByAccount(ctx context.Context, accountID uuid.UUID) ([]Supplier, error)
}

// GraphProvider materializes an account's component graph
type GraphProvider interface {
	Load(ctx context.Context, accountID uuid.UUID) (*Graph, error)
}

// GraphLoader builds Graph snapshots from the repositories
type GraphLoader struct {
	products  ProductRepository
	boms      BOMRepository
	items     StockItemRepository
	suppliers SupplierRepository
}

// NewGraphLoader creates a new graph loader
func NewGraphLoader(products ProductRepository, boms BOMRepository, items StockItemRepository, suppliers SupplierRepository) *GraphLoader {
	return &GraphLoader{
		products:  products,
		boms:      boms,
		items:     items,
		suppliers: suppliers,
	}
}

// Load reads every record of the account and indexes them into a snapshot
func (l *GraphLoader) Load(ctx context.Context, accountID uuid.UUID) (*Graph, error) {
	products, err := l.products.FindAllByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	boms, err := l.boms.FindAllByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load bills of materials: %w", err)
	}
	internalItems, err := l.items.FindInternalItems(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load internal stock items: %w", err)
	}
	supplierItems, err := l.items.FindSupplierItems(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load supplier items: %w", err)
	}
	suppliers, err := l.suppliers.FindAllByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}

	return NewGraph(GraphData{
		Products:      products,
		BOMs:          boms,
		InternalItems: internalItems,
		SupplierItems: supplierItems,
		Suppliers:     suppliers,
	})
}

var _ GraphProvider = (*GraphLoader)(nil)
