package bom

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComponentBreakdown explains one line's contribution to an effective stock result
type ComponentBreakdown struct {
	LineID            uuid.UUID
	Component         ComponentReference
	Kind              ComponentKind
	QuantityPerUnit   decimal.Decimal
	WasteFactor       decimal.Decimal
	EffectiveQuantity decimal.Decimal
	// Available is nil when the component imposes no limit
	Available *int64
	// Contribution is the number of parent units this line alone allows; nil when unconstrained
	Contribution  *int64
	Unconstrained bool
	StockUnknown  bool
	Nested        bool
	Limiting      bool
}

// EffectiveStockResult is the derived sellable quantity of a composite product.
// It is recomputed on every call and never persisted.
type EffectiveStockResult struct {
	Key ProductKey
	// EffectiveStock is nil when the product is unconstrained
	EffectiveStock       *int64
	CurrentExternalStock *int64
	NeedsSync            bool
	Components           []ComponentBreakdown
}

// IsUnconstrained returns true if no line limits the product
func (r *EffectiveStockResult) IsUnconstrained() bool {
	return r.EffectiveStock == nil
}

// Contribution returns floor(available / (quantityPerUnit * (1 + wasteFactor))).
// Negative availability counts as zero.
func Contribution(available int64, quantityPerUnit, wasteFactor decimal.Decimal) int64 {
	perUnit := quantityPerUnit.Mul(decimal.NewFromInt(1).Add(wasteFactor))
	if !perUnit.IsPositive() || available <= 0 {
		return 0
	}
	quotient, _ := decimal.NewFromInt(available).QuoRem(perUnit, 0)
	return quotient.IntPart()
}

// NeedsSync reports whether the storefront value must be corrected.
// An unknown external value needs a sync unless the result is unconstrained:
// with nothing limiting the product there is no value to push, so
// NeedsSync(nil, nil) and NeedsSync(nil, x) are both false.
func NeedsSync(effective, external *int64) bool {
	if effective == nil {
		return false
	}
	if external == nil {
		return true
	}
	return *effective != *external
}

// Calculator computes effective stock over a Graph snapshot.
// It holds no state between calls and is safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a new calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute evaluates the BOM of key depth-first. Every call uses its own
// ancestor stack, so concurrent calls never share traversal state.
func (c *Calculator) Compute(g *Graph, key ProductKey) (*EffectiveStockResult, error) {
	product, ok := g.Product(key)
	if !ok {
		return nil, ErrProductNotFound
	}
	root, ok := g.BOM(key)
	if !ok {
		return nil, ErrBOMNotFound
	}

	ev := newEvaluation(g)
	stock, components, err := ev.evaluate(root)
	if err != nil {
		return nil, err
	}

	return &EffectiveStockResult{
		Key:                  key,
		EffectiveStock:       stock,
		CurrentExternalStock: product.ExternalStock,
		NeedsSync:            NeedsSync(stock, product.ExternalStock),
		Components:           components,
	}, nil
}

type memoEntry struct {
	stock *int64
}

// evaluation is the per-call traversal state
type evaluation struct {
	graph   *Graph
	stack   []ProductKey
	onStack map[ProductKey]bool
	done    map[ProductKey]memoEntry
}

func newEvaluation(g *Graph) *evaluation {
	return &evaluation{
		graph:   g,
		stack:   make([]ProductKey, 0, 8),
		onStack: make(map[ProductKey]bool),
		done:    make(map[ProductKey]memoEntry),
	}
}

func (e *evaluation) push(key ProductKey) error {
	if e.onStack[key] {
		start := 0
		for i, k := range e.stack {
			if k == key {
				start = i
				break
			}
		}
		path := make([]ProductKey, 0, len(e.stack)-start+1)
		path = append(path, e.stack[start:]...)
		path = append(path, key)
		return &CycleDetectedError{Path: path}
	}
	e.onStack[key] = true
	e.stack = append(e.stack, key)
	return nil
}

func (e *evaluation) pop() {
	last := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.onStack, last)
}

func (e *evaluation) evaluate(b *BillOfMaterials) (*int64, []ComponentBreakdown, error) {
	if err := e.push(b.Key); err != nil {
		return nil, nil, err
	}
	defer e.pop()

	if err := b.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		min      *int64
		limiting = -1
	)
	components := make([]ComponentBreakdown, 0, len(b.Lines))
	for i := range b.Lines {
		line := &b.Lines[i]
		entry := ComponentBreakdown{
			LineID:            line.ID,
			Component:         line.Component,
			Kind:              line.Component.Kind(),
			QuantityPerUnit:   line.QuantityPerUnit,
			WasteFactor:       line.WasteFactor,
			EffectiveQuantity: line.EffectiveQuantity(),
		}

		avail, err := e.available(line.Component)
		if err != nil {
			return nil, nil, err
		}
		entry.Nested = avail.nested
		entry.StockUnknown = avail.unknown
		if avail.quantity == nil {
			entry.Unconstrained = true
			components = append(components, entry)
			continue
		}

		quantity := *avail.quantity
		contribution := Contribution(quantity, line.QuantityPerUnit, line.WasteFactor)
		entry.Available = &quantity
		entry.Contribution = &contribution
		components = append(components, entry)

		if min == nil || contribution < *min {
			value := contribution
			min = &value
			limiting = len(components) - 1
		}
	}
	if limiting >= 0 {
		components[limiting].Limiting = true
	}

	return min, components, nil
}

type availability struct {
	quantity *int64
	unknown  bool
	nested   bool
}

func (e *evaluation) available(ref ComponentReference) (availability, error) {
	switch ref := ref.(type) {
	case ExternalProduct:
		key := ref.Key()
		if sub, ok := e.graph.BOM(key); ok {
			if memo, ok := e.done[key]; ok {
				return availability{quantity: memo.stock, nested: true}, nil
			}
			stock, _, err := e.evaluate(sub)
			if err != nil {
				return availability{}, err
			}
			e.done[key] = memoEntry{stock: stock}
			return availability{quantity: stock, nested: true}, nil
		}
		product, ok := e.graph.Product(key)
		if !ok {
			return availability{}, &ComponentUnavailableError{Component: ref}
		}
		if !product.ManagesStock {
			return availability{}, nil
		}
		if product.ExternalStock == nil {
			return availability{quantity: clamp(0), unknown: true}, nil
		}
		return availability{quantity: clamp(*product.ExternalStock)}, nil

	case InternalStockItemRef:
		item, ok := e.graph.InternalItem(ref.ID)
		if !ok {
			return availability{}, &ComponentUnavailableError{Component: ref}
		}
		return availability{quantity: clamp(item.Quantity)}, nil

	case SupplierItemRef:
		item, ok := e.graph.SupplierItem(ref.ID)
		if !ok {
			return availability{}, &ComponentUnavailableError{Component: ref}
		}
		if item.StockCap == nil {
			return availability{}, nil
		}
		return availability{quantity: clamp(*item.StockCap)}, nil

	default:
		return availability{}, NewValidationError("component", "unsupported component reference")
	}
}

func clamp(v int64) *int64 {
	if v < 0 {
		v = 0
	}
	return &v
}
