package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/forecast"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/shared"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by logger.RequestID
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// ValidationError sends a 400 response for request binding failures
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	var details []dto.ValidationDetail
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
	} else {
		details = append(details, dto.ValidationDetail{Message: err.Error()})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

// HandleError maps service errors to HTTP responses:
// validation 400, not found 404, cycle/component 422, storefront failure 502.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, bom.ErrProductNotFound),
		errors.Is(err, bom.ErrBOMNotFound),
		errors.Is(err, stocksync.ErrJobNotFound):
		h.NotFound(c, err.Error())
		return
	case errors.Is(err, stocksync.ErrInvalidAccountID),
		errors.Is(err, stocksync.ErrInvalidProduct),
		errors.Is(err, stocksync.ErrInvalidTrigger),
		errors.Is(err, forecast.ErrInvalidRiskLevel):
		h.BadRequest(c, err.Error())
		return
	case errors.Is(err, forecast.ErrStockNotManaged):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeStockNotManaged, err.Error())
		return
	}

	if code := shared.ErrorCode(err); code != "" {
		apiCode := dto.NormalizeErrorCode(code)
		status := dto.GetHTTPStatus(apiCode)
		switch status {
		case http.StatusInternalServerError:
			h.internalError(c, err)
			return
		case http.StatusBadGateway:
			logger.FromContext(c.Request.Context()).Warn("Storefront update failed", zap.Error(err))
		}
		h.Error(c, status, apiCode, err.Error())
		return
	}

	h.internalError(c, err)
}

func (h *BaseHandler) internalError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
	_ = c.Error(err)
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// accountIDParam parses the :account_id path parameter
func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("account_id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// productKeyParam parses :product_id and the optional variation_id query parameter
func productKeyParam(c *gin.Context) (bom.ProductKey, bool) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil || productID == uuid.Nil {
		return bom.ProductKey{}, false
	}
	var variationID int64
	if raw := c.Query("variation_id"); raw != "" {
		variationID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || variationID < 0 {
			return bom.ProductKey{}, false
		}
	}
	return bom.NewProductKey(productID, variationID), true
}
