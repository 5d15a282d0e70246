package forecast

import (
	"math"
	"time"
)

// Forecast defaults
const (
	DefaultWindowDays = 90
	SmoothingAlpha    = 0.3
	TrendWindowDays   = 7
	// TrendThresholdPercent is the change needed before a trend is reported as UP or DOWN
	TrendThresholdPercent = 10.0
	// FullConfidenceDays is the number of selling days needed for full sample confidence
	FullConfidenceDays   = 28
	MinSeasonalityFactor = 0.5
	MaxSeasonalityFactor = 2.0
	// minSeasonalityDays is the observed span needed before weekday factors are trusted
	minSeasonalityDays = 14
)

// DailySales is the quantity sold on one calendar day
type DailySales struct {
	Date     time.Time
	Quantity int64
}

// TrendDirection is the direction of recent demand
type TrendDirection string

const (
	TrendUp     TrendDirection = "UP"
	TrendDown   TrendDirection = "DOWN"
	TrendStable TrendDirection = "STABLE"
)

// DemandEstimate is the result of PredictDailyDemand
type DemandEstimate struct {
	DailyDemand       float64
	StdDev            float64
	SeasonalityFactor float64
	Trend             TrendDirection
	TrendPercent      float64
	Confidence        float64
	ActiveDays        int
	ObservedDays      int
}

// ZeroDemand is the estimate used when there is no usable history
func ZeroDemand() DemandEstimate {
	return DemandEstimate{
		SeasonalityFactor: 1,
		Trend:             TrendStable,
	}
}

// DailySeries returns one value per day of the window ending on asOf (inclusive),
// oldest first. Days without sales are zero; sales outside the window are ignored.
func DailySeries(history []DailySales, asOf time.Time, windowDays int) []float64 {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	end := truncateDay(asOf)
	start := end.AddDate(0, 0, -(windowDays - 1))

	series := make([]float64, windowDays)
	for _, s := range history {
		day := truncateDay(s.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		idx := int(day.Sub(start).Hours() / 24)
		if idx >= 0 && idx < windowDays {
			series[idx] += float64(s.Quantity)
		}
	}
	return series
}

// PredictDailyDemand estimates daily demand from a trailing window of sales.
// The series is considered from the first day with a sale, so the days before
// a product started selling do not dilute the estimate.
func PredictDailyDemand(history []DailySales, asOf time.Time, windowDays int) DemandEstimate {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	series := DailySeries(history, asOf, windowDays)

	first := -1
	for i, v := range series {
		if v > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return ZeroDemand()
	}

	observed := series[first:]
	start := truncateDay(asOf).AddDate(0, 0, -(windowDays - 1 - first))

	mean, stdDev := meanStdDev(observed)
	active := 0
	for _, v := range observed {
		if v > 0 {
			active++
		}
	}

	trend, trendPercent := trendOf(series)

	return DemandEstimate{
		DailyDemand:       round(ewma(observed, SmoothingAlpha), 4),
		StdDev:            round(stdDev, 4),
		SeasonalityFactor: round(seasonalityFactor(observed, start, truncateDay(asOf).AddDate(0, 0, 1), mean), 2),
		Trend:             trend,
		TrendPercent:      trendPercent,
		Confidence:        confidence(active, mean, stdDev),
		ActiveDays:        active,
		ObservedDays:      len(observed),
	}
}

func ewma(series []float64, alpha float64) float64 {
	if len(series) == 0 {
		return 0
	}
	level := series[0]
	for _, v := range series[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return level
}

func meanStdDev(series []float64) (float64, float64) {
	if len(series) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))

	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(series)))
}

// seasonalityFactor returns the weekday mean of the target day relative to the overall mean
func seasonalityFactor(series []float64, start, target time.Time, mean float64) float64 {
	if len(series) < minSeasonalityDays || mean <= 0 {
		return 1
	}
	var sums [7]float64
	var counts [7]int
	for i, v := range series {
		wd := start.AddDate(0, 0, i).Weekday()
		sums[wd] += v
		counts[wd]++
	}
	wd := target.Weekday()
	if counts[wd] == 0 {
		return 1
	}
	factor := (sums[wd] / float64(counts[wd])) / mean
	return math.Max(MinSeasonalityFactor, math.Min(MaxSeasonalityFactor, factor))
}

// trendOf compares the last TrendWindowDays with the TrendWindowDays before them
func trendOf(series []float64) (TrendDirection, float64) {
	if len(series) < 2*TrendWindowDays {
		return TrendStable, 0
	}
	n := len(series)
	var recent, prior float64
	for _, v := range series[n-TrendWindowDays:] {
		recent += v
	}
	for _, v := range series[n-2*TrendWindowDays : n-TrendWindowDays] {
		prior += v
	}

	if prior == 0 {
		if recent > 0 {
			return TrendUp, 100
		}
		return TrendStable, 0
	}

	percent := round((recent-prior)/prior*100, 1)
	switch {
	case percent > TrendThresholdPercent:
		return TrendUp, percent
	case percent < -TrendThresholdPercent:
		return TrendDown, percent
	default:
		return TrendStable, percent
	}
}

// confidence degrades with few selling days and with a high coefficient of variation
func confidence(activeDays int, mean, stdDev float64) float64 {
	if activeDays == 0 || mean <= 0 {
		return 0
	}
	sample := math.Min(1, float64(activeDays)/FullConfidenceDays)
	cv := stdDev / mean
	return round(sample/(1+cv), 2)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
