package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

// ErrCodeRequestTooLarge is returned when a body exceeds the configured limit
const ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

// BodyLimit rejects requests whose declared length exceeds maxBytes and caps
// streamed bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString("request_id"),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
