package forecast

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
)

// Planning defaults
const (
	DefaultLeadTimeDays = 14
	DefaultReviewDays   = 7
	DefaultServiceZ     = 1.65
)

// Params are the account-wide forecasting parameters
type Params struct {
	WindowDays          int
	DefaultLeadTimeDays int
	ReviewDays          int
	ServiceZ            float64
}

// DefaultParams returns the default forecasting parameters
func DefaultParams() Params {
	return Params{
		WindowDays:          DefaultWindowDays,
		DefaultLeadTimeDays: DefaultLeadTimeDays,
		ReviewDays:          DefaultReviewDays,
		ServiceZ:            DefaultServiceZ,
	}
}

// Input is everything BuildRecord needs for one product
type Input struct {
	Product bom.Product
	History []DailySales
	// LeadTimeDays is the supplier lead time; zero falls back to Params.DefaultLeadTimeDays
	LeadTimeDays int
	AsOf         time.Time
}

// BuildRecord forecasts one product
func BuildRecord(in Input, params Params) ForecastRecord {
	lead := in.LeadTimeDays
	if lead <= 0 {
		lead = params.DefaultLeadTimeDays
	}

	estimate := PredictDailyDemand(in.History, in.AsOf, params.WindowDays)
	stock := in.Product.CurrentStock()
	days := DaysUntilStockout(stock, estimate.DailyDemand)

	var daysPtr *float64
	if !math.IsInf(days, 1) {
		v := round(days, 1)
		daysPtr = &v
	}

	return ForecastRecord{
		ProductID:         in.Product.ID,
		VariationID:       in.Product.VariationID,
		Name:              in.Product.Name,
		SKU:               in.Product.SKU,
		CurrentStock:      stock,
		DailyDemand:       round(estimate.DailyDemand, 2),
		Confidence:        estimate.Confidence,
		SeasonalityFactor: estimate.SeasonalityFactor,
		Trend:             estimate.Trend,
		TrendPercent:      estimate.TrendPercent,
		DaysUntilStockout: daysPtr,
		LeadTimeDays:      lead,
		Risk:              ClassifyStockoutRisk(days, lead),
		ReorderQuantity: ReorderQuantity(ReorderInput{
			DailyDemand:  estimate.DailyDemand,
			StdDev:       estimate.StdDev,
			LeadTimeDays: lead,
			ReviewDays:   params.ReviewDays,
			ServiceZ:     params.ServiceZ,
			CurrentStock: stock,
		}),
		GeneratedAt: in.AsOf.UTC(),
	}
}

// SalesHistorySource provides per-day sold quantities of a product
type SalesHistorySource interface {
	// DailySales returns the sold quantity per day in [from, to]; days without sales may be omitted
	DailySales(ctx context.Context, accountID uuid.UUID, key bom.ProductKey, from, to time.Time) ([]DailySales, error)
}
