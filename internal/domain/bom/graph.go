package bom

import (
	"fmt"

	"github.com/google/uuid"
)

// GraphData is the raw material a Graph snapshot is built from
type GraphData struct {
	Products      []Product
	BOMs          []BillOfMaterials
	InternalItems []InternalStockItem
	SupplierItems []SupplierItem
	Suppliers     []Supplier
}

// Graph is an immutable in-memory snapshot of an account's component graph.
// It is safe for concurrent reads.
type Graph struct {
	products      map[ProductKey]*Product
	productOrder  []ProductKey
	boms          map[ProductKey]*BillOfMaterials
	bomOrder      []ProductKey
	internalItems map[uuid.UUID]*InternalStockItem
	supplierItems map[uuid.UUID]*SupplierItem
	suppliers     map[uuid.UUID]*Supplier
}

// NewGraph indexes the given data into a snapshot
func NewGraph(data GraphData) (*Graph, error) {
	g := &Graph{
		products:      make(map[ProductKey]*Product, len(data.Products)),
		productOrder:  make([]ProductKey, 0, len(data.Products)),
		boms:          make(map[ProductKey]*BillOfMaterials, len(data.BOMs)),
		bomOrder:      make([]ProductKey, 0, len(data.BOMs)),
		internalItems: make(map[uuid.UUID]*InternalStockItem, len(data.InternalItems)),
		supplierItems: make(map[uuid.UUID]*SupplierItem, len(data.SupplierItems)),
		suppliers:     make(map[uuid.UUID]*Supplier, len(data.Suppliers)),
	}

	for i := range data.Products {
		p := data.Products[i]
		key := p.Key()
		if _, exists := g.products[key]; !exists {
			g.productOrder = append(g.productOrder, key)
		}
		g.products[key] = &p
	}
	for i := range data.BOMs {
		b := data.BOMs[i]
		if _, exists := g.boms[b.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBOM, b.Key)
		}
		g.boms[b.Key] = &b
		g.bomOrder = append(g.bomOrder, b.Key)
	}
	for i := range data.InternalItems {
		item := data.InternalItems[i]
		g.internalItems[item.ID] = &item
	}
	for i := range data.SupplierItems {
		item := data.SupplierItems[i]
		g.supplierItems[item.ID] = &item
	}
	for i := range data.Suppliers {
		s := data.Suppliers[i]
		g.suppliers[s.ID] = &s
	}

	return g, nil
}

// Product returns the product for a key
func (g *Graph) Product(key ProductKey) (*Product, bool) {
	p, ok := g.products[key]
	return p, ok
}

// BOM returns the bill of materials for a key
func (g *Graph) BOM(key ProductKey) (*BillOfMaterials, bool) {
	b, ok := g.boms[key]
	return b, ok
}

// InternalItem returns an internal stock item by ID
func (g *Graph) InternalItem(id uuid.UUID) (*InternalStockItem, bool) {
	item, ok := g.internalItems[id]
	return item, ok
}

// SupplierItem returns a supplier item by ID
func (g *Graph) SupplierItem(id uuid.UUID) (*SupplierItem, bool) {
	item, ok := g.supplierItems[id]
	return item, ok
}

// Supplier returns a supplier by ID
func (g *Graph) Supplier(id uuid.UUID) (*Supplier, bool) {
	s, ok := g.suppliers[id]
	return s, ok
}

// Products returns all products in insertion order
func (g *Graph) Products() []*Product {
	result := make([]*Product, 0, len(g.productOrder))
	for _, key := range g.productOrder {
		result = append(result, g.products[key])
	}
	return result
}

// BOMs returns all bills of materials in insertion order
func (g *Graph) BOMs() []*BillOfMaterials {
	result := make([]*BillOfMaterials, 0, len(g.bomOrder))
	for _, key := range g.bomOrder {
		result = append(result, g.boms[key])
	}
	return result
}

// SyncableBOMs returns the BOMs that reference at least one component
func (g *Graph) SyncableBOMs() []*BillOfMaterials {
	result := make([]*BillOfMaterials, 0, len(g.bomOrder))
	for _, key := range g.bomOrder {
		if b := g.boms[key]; !b.IsEmpty() {
			result = append(result, b)
		}
	}
	return result
}
