package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(limit))
	handler := func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "body too large")
			return
		}
		c.String(http.StatusOK, "ok")
	}
	router.POST("/sync", handler)
	router.GET("/sync", handler)
	return router
}

func TestBodyLimit(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("small body"))
		w := httptest.NewRecorder()
		newBodyLimitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(strings.Repeat("x", 200)))
		w := httptest.NewRecorder()
		newBodyLimitRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeRequestTooLarge, resp.Error.Code)
	})

	t.Run("no body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sync", nil)
		w := httptest.NewRecorder()
		newBodyLimitRouter(10).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("streamed body is capped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newBodyLimitRouter(50).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
