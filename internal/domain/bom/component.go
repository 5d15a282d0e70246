package bom

import (
	"fmt"

	"github.com/google/uuid"
)

// ComponentKind identifies the variant of a ComponentReference
type ComponentKind string

const (
	// ComponentKindExternalProduct is another storefront product, possibly with its own BOM
	ComponentKindExternalProduct ComponentKind = "EXTERNAL_PRODUCT"
	// ComponentKindInternalStockItem is stock tracked only inside this system
	ComponentKindInternalStockItem ComponentKind = "INTERNAL_STOCK_ITEM"
	// ComponentKindSupplierItem is a raw material from a supplier
	ComponentKindSupplierItem ComponentKind = "SUPPLIER_ITEM"
)

// IsValid returns true if the kind is known
func (k ComponentKind) IsValid() bool {
	switch k {
	case ComponentKindExternalProduct, ComponentKindInternalStockItem, ComponentKindSupplierItem:
		return true
	default:
		return false
	}
}

// String returns the string representation of ComponentKind
func (k ComponentKind) String() string {
	return string(k)
}

// ComponentReference is the tagged union of things a BOM line can consume.
// The set of implementations is closed: ExternalProduct, InternalStockItemRef
// and SupplierItemRef.
type ComponentReference interface {
	Kind() ComponentKind
	String() string
	isComponentReference()
}

// ExternalProduct references another storefront product or variation
type ExternalProduct struct {
	ProductID   uuid.UUID
	VariationID int64
}

// Key returns the product key of the referenced product
func (r ExternalProduct) Key() ProductKey {
	return ProductKey{ProductID: r.ProductID, VariationID: r.VariationID}
}

// Kind returns ComponentKindExternalProduct
func (r ExternalProduct) Kind() ComponentKind { return ComponentKindExternalProduct }

func (r ExternalProduct) String() string {
	return fmt.Sprintf("product:%s", r.Key())
}

func (ExternalProduct) isComponentReference() {}

// InternalStockItemRef references an InternalStockItem
type InternalStockItemRef struct {
	ID uuid.UUID
}

// Kind returns ComponentKindInternalStockItem
func (r InternalStockItemRef) Kind() ComponentKind { return ComponentKindInternalStockItem }

func (r InternalStockItemRef) String() string {
	return fmt.Sprintf("internal:%s", r.ID)
}

func (InternalStockItemRef) isComponentReference() {}

// SupplierItemRef references a SupplierItem
type SupplierItemRef struct {
	ID uuid.UUID
}

// Kind returns ComponentKindSupplierItem
func (r SupplierItemRef) Kind() ComponentKind { return ComponentKindSupplierItem }

func (r SupplierItemRef) String() string {
	return fmt.Sprintf("supplier:%s", r.ID)
}

func (SupplierItemRef) isComponentReference() {}

// NewComponentReference builds a reference from its flattened storage form.
// Exactly the fields belonging to kind must be set.
func NewComponentReference(kind ComponentKind, productID *uuid.UUID, variationID int64, itemID *uuid.UUID) (ComponentReference, error) {
	switch kind {
	case ComponentKindExternalProduct:
		if productID == nil || *productID == uuid.Nil {
			return nil, NewValidationError("component", "external product reference requires a product ID")
		}
		return ExternalProduct{ProductID: *productID, VariationID: variationID}, nil
	case ComponentKindInternalStockItem:
		if itemID == nil || *itemID == uuid.Nil {
			return nil, NewValidationError("component", "internal stock item reference requires an item ID")
		}
		return InternalStockItemRef{ID: *itemID}, nil
	case ComponentKindSupplierItem:
		if itemID == nil || *itemID == uuid.Nil {
			return nil, NewValidationError("component", "supplier item reference requires an item ID")
		}
		return SupplierItemRef{ID: *itemID}, nil
	default:
		return nil, NewValidationError("component", fmt.Sprintf("unknown component kind %q", kind))
	}
}
