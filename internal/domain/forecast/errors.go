package forecast

import "errors"

var (
	// ErrStockNotManaged is returned when forecasting a product whose stock the storefront does not track
	ErrStockNotManaged = errors.New("forecast: product does not manage stock")
	// ErrInvalidRiskLevel is returned for an unknown risk level filter
	ErrInvalidRiskLevel = errors.New("forecast: invalid risk level")
)
