package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appforecast "github.com/MerlinStacks/woodash-dashboard-sub007/internal/application/forecast"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/forecast"
)

// ForecastService produces demand forecasts. Implemented by forecast.Service.
type ForecastService interface {
	ForecastProduct(ctx context.Context, accountID uuid.UUID, key bom.ProductKey) (*forecast.ForecastRecord, error)
	ForecastBatch(ctx context.Context, accountID uuid.UUID) ([]forecast.ForecastRecord, error)
	StockoutAlerts(ctx context.Context, accountID uuid.UUID, minRisk forecast.RiskLevel) ([]forecast.ForecastRecord, error)
}

// AlertsQuery is the query string of the stock-out alerts view
type AlertsQuery struct {
	MinRisk string `form:"min_risk" binding:"omitempty,max=16"`
}

// ForecastListResponse wraps a batch of forecasts
type ForecastListResponse struct {
	Records []forecast.ForecastRecord `json:"records"`
	Total   int                       `json:"total"`
}

// ForecastHandler exposes demand forecasts and stock-out risk
type ForecastHandler struct {
	BaseHandler
	forecasts ForecastService
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecasts ForecastService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts}
}

// RegisterRoutes registers the forecast routes
func (h *ForecastHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts/:account_id")
	accounts.GET("/forecast", h.ForecastBatch)
	accounts.GET("/forecast/alerts", h.StockoutAlerts)
	accounts.GET("/products/:product_id/forecast", h.ForecastProduct)
}

// ForecastProduct forecasts one stock-managed product
func (h *ForecastHandler) ForecastProduct(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid account ID")
		return
	}
	key, ok := productKeyParam(c)
	if !ok {
		h.BadRequest(c, "invalid product ID or variation ID")
		return
	}

	record, err := h.forecasts.ForecastProduct(c.Request.Context(), accountID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// ForecastBatch forecasts every stock-managed product, most severe first
func (h *ForecastHandler) ForecastBatch(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid account ID")
		return
	}

	records, err := h.forecasts.ForecastBatch(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ForecastListResponse{Records: nonNil(records), Total: len(records)})
}

// StockoutAlerts lists products at or above min_risk (default HIGH)
// GET /accounts/:account_id/forecast/alerts?min_risk=
func (h *ForecastHandler) StockoutAlerts(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid account ID")
		return
	}

	var query AlertsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	minRisk := appforecast.DefaultAlertRisk
	if query.MinRisk != "" {
		level, valid := forecast.ParseRiskLevel(query.MinRisk)
		if !valid {
			h.HandleError(c, forecast.ErrInvalidRiskLevel)
			return
		}
		minRisk = level
	}

	records, err := h.forecasts.StockoutAlerts(c.Request.Context(), accountID, minRisk)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ForecastListResponse{Records: nonNil(records), Total: len(records)})
}

func nonNil(records []forecast.ForecastRecord) []forecast.ForecastRecord {
	if records == nil {
		return []forecast.ForecastRecord{}
	}
	return records
}

var _ ForecastService = (*appforecast.Service)(nil)
