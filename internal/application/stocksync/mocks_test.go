package stocksync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// MockGraphProvider is a mock implementation of bom.GraphProvider
type MockGraphProvider struct {
	mock.Mock
}

func (m *MockGraphProvider) Load(ctx context.Context, accountID uuid.UUID) (*bom.Graph, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bom.Graph), args.Error(1)
}

// MockStockProvider is a mock implementation of stocksync.StockProvider
type MockStockProvider struct {
	mock.Mock
}

func (m *MockStockProvider) GetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef) (*int64, error) {
	args := m.Called(ctx, accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockStockProvider) SetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef, quantity int64) error {
	args := m.Called(ctx, accountID, ref, quantity)
	return args.Error(0)
}

// MockAuditLogRepository is a mock implementation of stocksync.AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *stocksync.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) ListRecent(ctx context.Context, accountID uuid.UUID, limit int) ([]stocksync.AuditLogEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stocksync.AuditLogEntry), args.Error(1)
}

// MockWorkQueue is a mock implementation of stocksync.WorkQueue
type MockWorkQueue struct {
	mock.Mock
}

func (m *MockWorkQueue) Enqueue(ctx context.Context, key string, payload stocksync.BulkSyncPayload, opts stocksync.EnqueueOptions) (*stocksync.SyncJob, error) {
	args := m.Called(ctx, key, payload, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stocksync.SyncJob), args.Error(1)
}

func (m *MockWorkQueue) Get(ctx context.Context, key string) (*stocksync.SyncJob, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stocksync.SyncJob), args.Error(1)
}

func (m *MockWorkQueue) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockWorkQueue) ForceFail(ctx context.Context, key string, reason string) error {
	args := m.Called(ctx, key, reason)
	return args.Error(0)
}

func int64Ptr(v int64) *int64 { return &v }

// catalogFixture builds an account graph for service tests
type catalogFixture struct {
	accountID uuid.UUID
	data      bom.GraphData
}

func newCatalogFixture() *catalogFixture {
	return &catalogFixture{accountID: uuid.New()}
}

func (f *catalogFixture) product(name string, externalID int64, stock *int64) bom.ProductKey {
	p := bom.Product{
		ID:            uuid.New(),
		AccountID:     f.accountID,
		ExternalID:    externalID,
		Name:          name,
		SKU:           "SKU-" + name,
		ManagesStock:  true,
		ExternalStock: stock,
	}
	f.data.Products = append(f.data.Products, p)
	return p.Key()
}

func (f *catalogFixture) internalItem(quantity int64) bom.InternalStockItemRef {
	item := bom.InternalStockItem{ID: uuid.New(), AccountID: f.accountID, Name: "item", Quantity: quantity}
	f.data.InternalItems = append(f.data.InternalItems, item)
	return bom.InternalStockItemRef{ID: item.ID}
}

func (f *catalogFixture) bom(key bom.ProductKey, refs ...bom.ComponentReference) {
	b := bom.BillOfMaterials{ID: uuid.New(), AccountID: f.accountID, Key: key}
	for i, ref := range refs {
		b.Lines = append(b.Lines, bom.BOMLine{
			ID:              uuid.New(),
			Position:        i,
			QuantityPerUnit: decimal.NewFromInt(1),
			WasteFactor:     decimal.Zero,
			Component:       ref,
		})
	}
	f.data.BOMs = append(f.data.BOMs, b)
}

func (f *catalogFixture) graph(t *testing.T) *bom.Graph {
	t.Helper()
	g, err := bom.NewGraph(f.data)
	require.NoError(t, err)
	return g
}
