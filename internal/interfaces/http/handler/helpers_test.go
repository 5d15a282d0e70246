package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestEngine(handlers ...routeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return engine
}

// decodeResponse decodes the envelope and, when out is non-nil, its data field
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if out != nil {
		require.NotEmpty(t, envelope.Data, "response has no data: %s", w.Body.String())
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}
