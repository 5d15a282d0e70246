package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies how soon a product runs out relative to its lead time
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity orders risk levels; higher is more urgent
func (r RiskLevel) Severity() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid returns true if the level is known
func (r RiskLevel) IsValid() bool {
	return r.Severity() > 0
}

// AtLeast returns true if r is as severe as min or more
func (r RiskLevel) AtLeast(min RiskLevel) bool {
	return r.Severity() >= min.Severity()
}

// ParseRiskLevel parses a case-insensitive risk level
func ParseRiskLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	return level, level.IsValid()
}

// DaysUntilStockout returns currentStock / dailyDemand.
// It is +Inf when there is no demand and 0 when nothing is in stock.
func DaysUntilStockout(currentStock int64, dailyDemand float64) float64 {
	if dailyDemand <= 0 {
		return math.Inf(1)
	}
	if currentStock <= 0 {
		return 0
	}
	return float64(currentStock) / dailyDemand
}

// ClassifyStockoutRisk compares days until stock-out with multiples of the lead time
func ClassifyStockoutRisk(daysUntilStockout float64, leadTimeDays int) RiskLevel {
	lead := float64(leadTimeDays)
	switch {
	case daysUntilStockout <= lead:
		return RiskCritical
	case daysUntilStockout <= 2*lead:
		return RiskHigh
	case daysUntilStockout <= 3*lead:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ReorderInput holds the parameters of ReorderQuantity
type ReorderInput struct {
	DailyDemand  float64
	StdDev       float64
	LeadTimeDays int
	ReviewDays   int
	// ServiceZ is the z-score of the target service level (1.65 for 95%)
	ServiceZ     float64
	CurrentStock int64
}

// ReorderQuantity suggests how much to order so stock covers demand over the
// lead time and review period plus a safety margin of z·σ·√leadTime.
func ReorderQuantity(in ReorderInput) int64 {
	if in.DailyDemand <= 0 {
		return 0
	}
	lead := math.Max(0, float64(in.LeadTimeDays))
	review := math.Max(0, float64(in.ReviewDays))

	cycleDemand := in.DailyDemand * (lead + review)
	safetyStock := math.Max(0, in.ServiceZ) * in.StdDev * math.Sqrt(lead)
	need := cycleDemand + safetyStock - float64(in.CurrentStock)
	if need <= 0 {
		return 0
	}
	return int64(math.Ceil(round(need, 6)))
}

// ForecastRecord is the stock-out forecast of one product. It is derived on
// every request and never persisted.
type ForecastRecord struct {
	ProductID         uuid.UUID      `json:"product_id"`
	VariationID       int64          `json:"variation_id,omitempty"`
	Name              string         `json:"name"`
	SKU               string         `json:"sku,omitempty"`
	CurrentStock      int64          `json:"current_stock"`
	DailyDemand       float64        `json:"daily_demand"`
	Confidence        float64        `json:"confidence"`
	SeasonalityFactor float64        `json:"seasonality_factor"`
	Trend             TrendDirection `json:"trend"`
	TrendPercent      float64        `json:"trend_percent"`
	// DaysUntilStockout is nil when the product never runs out at current demand
	DaysUntilStockout *float64  `json:"days_until_stockout"`
	LeadTimeDays      int       `json:"lead_time_days"`
	Risk              RiskLevel `json:"risk"`
	ReorderQuantity   int64     `json:"reorder_quantity"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// SortBySeverity orders records CRITICAL first, then by name
func SortBySeverity(records []ForecastRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := records[i].Risk.Severity(), records[j].Risk.Severity()
		if si != sj {
			return si > sj
		}
		ni, nj := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
		if ni != nj {
			return ni < nj
		}
		return records[i].ProductID.String() < records[j].ProductID.String()
	})
}

// FilterByRisk returns the records at least as severe as min, keeping order
func FilterByRisk(records []ForecastRecord, min RiskLevel) []ForecastRecord {
	result := make([]ForecastRecord, 0, len(records))
	for _, r := range records {
		if r.Risk.AtLeast(min) {
			result = append(result, r)
		}
	}
	return result
}
