package stocksync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// Diagnose walks the same computation as SyncProduct and reports why a sync
// may be impossible. It has no side effects.
func (r *Reconciler) Diagnose(ctx context.Context, accountID uuid.UUID, key bom.ProductKey) (*stocksync.Diagnosis, error) {
	g, err := r.graphs.Load(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	d := &stocksync.Diagnosis{
		Key:       key,
		Issues:    make([]stocksync.DiagnosisIssue, 0),
		CheckedAt: r.now().UTC(),
	}

	product, ok := g.Product(key)
	if !ok {
		d.Issues = append(d.Issues, bomIssue(stocksync.DiagnosisProductNotFound, "product does not exist in the catalog", true))
		return d, nil
	}
	d.ProductName = product.Name

	if !product.ManagesStock {
		d.Issues = append(d.Issues, bomIssue(stocksync.DiagnosisStockNotManaged,
			"storefront does not manage stock for this product; a sync enables it", false))
	}

	b, ok := g.BOM(key)
	if !ok {
		d.Issues = append(d.Issues, bomIssue(stocksync.DiagnosisMissingBOM, "product has no bill of materials", true))
		return d, nil
	}
	if b.IsEmpty() {
		d.Issues = append(d.Issues, bomIssue(stocksync.DiagnosisEmptyBOM, "bill of materials has no lines", true))
		return d, nil
	}

	for i := range b.Lines {
		d.Issues = append(d.Issues, diagnoseLine(g, b, i)...)
	}

	result, err := r.calculator.Compute(g, key)
	if err != nil {
		if issue, ok := computeIssue(err); ok && !d.HasIssue(issue.Code) {
			d.Issues = append(d.Issues, issue)
		}
	} else {
		d.Result = result
		if result.IsUnconstrained() {
			d.Issues = append(d.Issues, bomIssue(stocksync.DiagnosisUnconstrained,
				"no line limits the product; storefront stock is left untouched", true))
		}
	}

	d.Syncable = true
	for _, issue := range d.Issues {
		if issue.Blocking {
			d.Syncable = false
			break
		}
	}
	return d, nil
}

func bomIssue(code stocksync.DiagnosisCode, message string, blocking bool) stocksync.DiagnosisIssue {
	return stocksync.DiagnosisIssue{
		Code:      code,
		Message:   message,
		LineIndex: -1,
		Blocking:  blocking,
	}
}

// diagnoseLine reports problems of one line that are visible without traversal
func diagnoseLine(g *bom.Graph, b *bom.BillOfMaterials, index int) []stocksync.DiagnosisIssue {
	line := &b.Lines[index]
	issue := func(code stocksync.DiagnosisCode, message string, blocking bool) stocksync.DiagnosisIssue {
		component := ""
		if line.Component != nil {
			component = line.Component.String()
		}
		return stocksync.DiagnosisIssue{
			Code:      code,
			Message:   message,
			LineIndex: index,
			Component: component,
			Blocking:  blocking,
		}
	}

	if err := line.Validate(); err != nil {
		return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisInvalidLine, err.Error(), true)}
	}

	switch ref := line.Component.(type) {
	case bom.ExternalProduct:
		if ref.Key() == b.Key {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisInvalidLine, "line references its own product", true)}
		}
		if _, nested := g.BOM(ref.Key()); nested {
			return nil
		}
		component, ok := g.Product(ref.Key())
		if !ok {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisComponentUnavailable, "component product no longer exists", true)}
		}
		if !component.ManagesStock {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisStockNotManaged, "component stock is not managed; treated as unconstrained", false)}
		}
		if component.ExternalStock == nil {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisStockUnknown, "component stock is unknown; counted as zero", false)}
		}
	case bom.InternalStockItemRef:
		if _, ok := g.InternalItem(ref.ID); !ok {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisComponentUnavailable, "internal stock item no longer exists", true)}
		}
	case bom.SupplierItemRef:
		item, ok := g.SupplierItem(ref.ID)
		if !ok {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisComponentUnavailable, "supplier item no longer exists", true)}
		}
		if item.StockCap == nil {
			return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisUnconstrained, "supplier item has no stock cap; treated as unconstrained", false)}
		}
	default:
		return []stocksync.DiagnosisIssue{issue(stocksync.DiagnosisInvalidLine, "unsupported component reference", true)}
	}
	return nil
}

// computeIssue maps a calculator error to a BOM-level issue
func computeIssue(err error) (stocksync.DiagnosisIssue, bool) {
	var cycleErr *bom.CycleDetectedError
	if errors.As(err, &cycleErr) {
		return bomIssue(stocksync.DiagnosisCycleDetected, cycleErr.Error(), true), true
	}
	if bom.IsComponentUnavailable(err) {
		return bomIssue(stocksync.DiagnosisComponentUnavailable, err.Error(), true), true
	}
	return bomIssue(stocksync.DiagnosisInvalidLine, err.Error(), true), true
}
