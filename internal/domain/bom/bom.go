package bom

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMLine is one component requirement of a bill of materials
type BOMLine struct {
	ID              uuid.UUID
	Position        int
	QuantityPerUnit decimal.Decimal
	WasteFactor     decimal.Decimal
	Component       ComponentReference
}

// NewBOMLine creates a validated BOM line
func NewBOMLine(component ComponentReference, quantityPerUnit, wasteFactor decimal.Decimal) (*BOMLine, error) {
	line := &BOMLine{
		ID:              uuid.New(),
		QuantityPerUnit: quantityPerUnit,
		WasteFactor:     wasteFactor,
		Component:       component,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// Validate checks the per-line invariants
func (l *BOMLine) Validate() error {
	if l.Component == nil {
		return NewValidationError("component", "line must reference exactly one component")
	}
	if !l.Component.Kind().IsValid() {
		return NewValidationError("component", "unknown component kind")
	}
	if !l.QuantityPerUnit.IsPositive() {
		return NewValidationError("quantity_per_unit", "must be greater than zero")
	}
	if l.WasteFactor.IsNegative() {
		return NewValidationError("waste_factor", "cannot be negative")
	}
	return nil
}

// EffectiveQuantity returns the quantity consumed per parent unit including waste
func (l *BOMLine) EffectiveQuantity() decimal.Decimal {
	return l.QuantityPerUnit.Mul(decimal.NewFromInt(1).Add(l.WasteFactor))
}

// BillOfMaterials is the recipe for one sellable product or variation.
// Lines keep their declared order.
type BillOfMaterials struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Key       ProductKey
	Lines     []BOMLine
}

// NewBillOfMaterials creates an empty BOM for a product key
func NewBillOfMaterials(accountID uuid.UUID, key ProductKey) (*BillOfMaterials, error) {
	if accountID == uuid.Nil {
		return nil, NewValidationError("account_id", "cannot be empty")
	}
	if key.IsZero() {
		return nil, NewValidationError("product_id", "cannot be empty")
	}
	return &BillOfMaterials{
		ID:        uuid.New(),
		AccountID: accountID,
		Key:       key,
		Lines:     make([]BOMLine, 0),
	}, nil
}

// AddLine appends a line after validating it against the BOM
func (b *BillOfMaterials) AddLine(line BOMLine) error {
	line.Position = len(b.Lines)
	if err := b.validateLine(&line); err != nil {
		return err
	}
	b.Lines = append(b.Lines, line)
	return nil
}

// IsEmpty returns true if the BOM has no lines (an unconstrained product)
func (b *BillOfMaterials) IsEmpty() bool {
	return len(b.Lines) == 0
}

// Validate checks every line, including self-references
func (b *BillOfMaterials) Validate() error {
	for i := range b.Lines {
		if err := b.validateLine(&b.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *BillOfMaterials) validateLine(line *BOMLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if ref, ok := line.Component.(ExternalProduct); ok && ref.Key() == b.Key {
		return NewValidationError("component", "a bill of materials cannot reference its own product")
	}
	return nil
}
