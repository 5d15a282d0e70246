package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFieldName(t *testing.T) {
	type sample struct {
		AccountID string `uri:"account_id"`
		Limit     int    `form:"limit"`
		MinRisk   string `json:"min_risk,omitempty" form:"risk"`
		Hidden    string `json:"-"`
		Plain     string
	}
	typ := reflect.TypeOf(sample{})

	tests := map[string]string{
		"AccountID": "account_id",
		"Limit":     "limit",
		"MinRisk":   "min_risk",
		"Hidden":    "",
		"Plain":     "Plain",
	}
	for field, want := range tests {
		f, ok := typ.FieldByName(field)
		require.True(t, ok)
		assert.Equal(t, want, requestFieldName(f), field)
	}
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	gin.SetMode(gin.TestMode)

	type activityQuery struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}

	var bindErr error
	router := gin.New()
	router.GET("/activity", func(c *gin.Context) {
		var q activityQuery
		bindErr = c.ShouldBindQuery(&q)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activity?limit=5000", nil))

	var fieldErrs validator.ValidationErrors
	require.True(t, errors.As(bindErr, &fieldErrs))
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "limit", fieldErrs[0].Field())
	assert.Equal(t, "max", fieldErrs[0].Tag())
}
