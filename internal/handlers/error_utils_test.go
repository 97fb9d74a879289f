package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "learnverse/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveError(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", handler)

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestStandardizeHTTPError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid input", "Field 'percent' is required")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid input", response["message"])
	assert.Equal(t, "Field 'percent' is required", response["details"])
	assert.Equal(t, "INVALID_INPUT", response["code"])
	assert.Equal(t, "warn", response["severity"])
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestStandardizeHTTPError_InternalServerError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusInternalServerError, "Store error", "Connection timeout")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", response["code"])
	assert.Equal(t, "error", response["severity"])
}

func TestHandleValidationError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleValidationError(c, "attemptNumber", "abc", "must be a positive integer")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid attemptNumber", response["message"])
	assert.Equal(t, "Value 'abc' is invalid: must be a positive integer", response["details"])
}

func TestHandleAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"invalid input", contextutils.InvalidInputf("score %d", 120), http.StatusBadRequest, "INVALID_INPUT", false},
		{"validation failed", contextutils.ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED", false},
		{"not found", contextutils.NotFoundf("badge %q", "x"), http.StatusNotFound, "RECORD_NOT_FOUND", false},
		{"conflict", contextutils.WrapErrorf(contextutils.ErrConflict, "already answered"), http.StatusConflict, "CONFLICT", false},
		{"session missing", contextutils.ErrSessionMissing, http.StatusUnauthorized, "SESSION_MISSING", false},
		{"storage", contextutils.StorageError(errors.New("connection refused"), "update profile"), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", true},
		{"corrupt record", contextutils.ErrCorruptRecord, http.StatusInternalServerError, "CORRUPT_RECORD", false},
		{"timeout", contextutils.ErrTimeout, http.StatusRequestTimeout, "REQUEST_TIMEOUT", true},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := serveError(t, func(c *gin.Context) {
				HandleAppError(c, tt.err)
			})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, response["code"])
			assert.Equal(t, tt.retryable, response["retryable"])
			assert.NotEmpty(t, response["error"])
		})
	}
}

func TestHandleAppError_RecordsGinError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var recorded int
	router.Use(func(c *gin.Context) {
		c.Next()
		recorded = len(c.Errors)
	})
	router.GET("/test", func(c *gin.Context) {
		HandleAppError(c, contextutils.NotFoundf("skill tree %q", "astrology"))
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, recorded)
}
