package stocksync

import (
	"context"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// StockProvider is the storefront holding the recorded stock of products.
// SetStock must have absolute-set semantics so that concurrent writers converge.
type StockProvider interface {
	// GetStock returns nil when the storefront does not track the product's stock
	GetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef) (*int64, error)
	SetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef, quantity int64) error
}
