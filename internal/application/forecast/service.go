package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/forecast"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

// DefaultAlertRisk is the minimum risk reported by StockoutAlerts
const DefaultAlertRisk = forecast.RiskHigh

// Service forecasts demand and stock-out risk for stock-managed products
type Service struct {
	graphs  bom.GraphProvider
	history forecast.SalesHistorySource
	params  forecast.Params
	logger  *zap.Logger
	metrics *telemetry.SyncMetrics
	now     func() time.Time
}

// NewService creates a new forecast service
func NewService(graphs bom.GraphProvider, history forecast.SalesHistorySource, params forecast.Params, logger *zap.Logger) *Service {
	defaults := forecast.DefaultParams()
	if params.WindowDays <= 0 {
		params.WindowDays = defaults.WindowDays
	}
	if params.DefaultLeadTimeDays <= 0 {
		params.DefaultLeadTimeDays = defaults.DefaultLeadTimeDays
	}
	if params.ReviewDays < 0 {
		params.ReviewDays = defaults.ReviewDays
	}
	if params.ServiceZ <= 0 {
		params.ServiceZ = defaults.ServiceZ
	}
	return &Service{
		graphs:  graphs,
		history: history,
		params:  params,
		logger:  logger,
		now:     time.Now,
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *Service) SetMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// SetClock overrides the forecast reference time
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Params returns the effective forecasting parameters
func (s *Service) Params() forecast.Params {
	return s.params
}

// ForecastProduct forecasts a single stock-managed product
func (s *Service) ForecastProduct(ctx context.Context, accountID uuid.UUID, key bom.ProductKey) (*forecast.ForecastRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "forecast", "product",
		attribute.String("account_id", accountID.String()),
		attribute.String("product_key", key.String()),
	)
	defer span.End()

	g, err := s.graphs.Load(ctx, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	product, ok := g.Product(key)
	if !ok {
		return nil, bom.ErrProductNotFound
	}
	if !product.ManagesStock {
		return nil, forecast.ErrStockNotManaged
	}

	record := s.forecast(ctx, accountID, g, product, s.now())
	return &record, nil
}

// ForecastBatch forecasts every stock-managed product, most urgent first
func (s *Service) ForecastBatch(ctx context.Context, accountID uuid.UUID) ([]forecast.ForecastRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "forecast", "batch",
		attribute.String("account_id", accountID.String()),
	)
	defer span.End()

	g, err := s.graphs.Load(ctx, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load component graph: %w", err)
	}

	asOf := s.now()
	records := make([]forecast.ForecastRecord, 0)
	for _, product := range g.Products() {
		if !product.ManagesStock {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records = append(records, s.forecast(ctx, accountID, g, product, asOf))
	}
	forecast.SortBySeverity(records)

	counts := map[string]int64{
		forecast.RiskCritical.String(): 0,
		forecast.RiskHigh.String():     0,
		forecast.RiskMedium.String():   0,
		forecast.RiskLow.String():      0,
	}
	for _, r := range records {
		counts[r.Risk.String()]++
	}
	s.metrics.RecordRiskCounts(ctx, accountID, counts)

	s.logger.Debug("Batch forecast generated",
		zap.String("account_id", accountID.String()),
		zap.Int("products", len(records)),
		zap.Int64("critical", counts[forecast.RiskCritical.String()]),
	)
	return records, nil
}

// StockoutAlerts returns the batch forecast filtered to minRisk and above.
// An empty minRisk means DefaultAlertRisk.
func (s *Service) StockoutAlerts(ctx context.Context, accountID uuid.UUID, minRisk forecast.RiskLevel) ([]forecast.ForecastRecord, error) {
	if minRisk == "" {
		minRisk = DefaultAlertRisk
	}
	if !minRisk.IsValid() {
		return nil, forecast.ErrInvalidRiskLevel
	}

	records, err := s.ForecastBatch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return forecast.FilterByRisk(records, minRisk), nil
}

func (s *Service) forecast(ctx context.Context, accountID uuid.UUID, g *bom.Graph, product *bom.Product, asOf time.Time) forecast.ForecastRecord {
	from := asOf.AddDate(0, 0, -s.params.WindowDays)
	history, err := s.history.DailySales(ctx, accountID, product.Key(), from, asOf)
	if err != nil {
		s.logger.Warn("Sales history unavailable, forecasting without history",
			zap.String("account_id", accountID.String()),
			zap.String("product_key", product.Key().String()),
			zap.Error(err),
		)
		history = nil
	}

	return forecast.BuildRecord(forecast.Input{
		Product:      *product,
		History:      history,
		LeadTimeDays: leadTime(g, product),
		AsOf:         asOf,
	}, s.params)
}

// leadTime resolves the replenishment lead time of a product: its own
// supplier first, then the slowest supplier item of its BOM. Zero means unknown.
func leadTime(g *bom.Graph, product *bom.Product) int {
	if product.SupplierID != nil {
		if supplier, ok := g.Supplier(*product.SupplierID); ok && supplier.LeadTimeDays > 0 {
			return supplier.LeadTimeDays
		}
	}

	b, ok := g.BOM(product.Key())
	if !ok {
		return 0
	}
	longest := 0
	for _, line := range b.Lines {
		ref, ok := line.Component.(bom.SupplierItemRef)
		if !ok {
			continue
		}
		item, ok := g.SupplierItem(ref.ID)
		if !ok {
			continue
		}
		days := 0
		if item.LeadTimeDays != nil {
			days = *item.LeadTimeDays
		} else if supplier, ok := g.Supplier(item.SupplierID); ok {
			days = supplier.LeadTimeDays
		}
		if days > longest {
			longest = days
		}
	}
	return longest
}
