package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnverse/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *observability.Logger {
	return observability.NewLoggerFromZap(zap.NewNop())
}

func TestDefaultErrorRecoveryConfig(t *testing.T) {
	config := DefaultErrorRecoveryConfig()

	assert.True(t, config.EnableCircuitBreaker)
	assert.Equal(t, 5, config.CircuitBreakerThreshold)
	assert.Equal(t, 30*time.Second, config.CircuitBreakerTimeout)
}

func TestErrorRecoveryMiddleware_PanicRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(testLogger(), nil))
	router.GET("/panic", func(_ *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	assert.Equal(t, "fatal", body["severity"])
}

func TestErrorRecoveryMiddleware_NormalRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil, nil))
	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/normal", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorRecoveryMiddleware_OpensOnUnavailableStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	calls := 0
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(testLogger(), &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 2,
		CircuitBreakerTimeout:   time.Hour,
	}))
	router.GET("/down", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORAGE_UNAVAILABLE"})
	})

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("GET", "/down", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	}
	assert.Equal(t, 2, calls, "third request must be rejected without reaching the handler")

	req, _ := http.NewRequest("GET", "/down", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
	assert.Equal(t, true, body["retryable"])
}

func TestCircuitBreaker_CanExecute(t *testing.T) {
	config := &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 2,
		CircuitBreakerTimeout:   time.Minute,
	}

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(config)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitClosed, cb.currentState())

	assert.False(t, cb.recordFailure())
	assert.True(t, cb.recordFailure())

	assert.False(t, cb.canExecute())
	assert.Equal(t, circuitOpen, cb.currentState())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitHalfOpen, cb.currentState())

	// one failure while half open reopens the circuit
	assert.True(t, cb.recordFailure())
	assert.False(t, cb.canExecute())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.canExecute())
	cb.recordSuccess()
	assert.True(t, cb.canExecute())
	assert.Equal(t, circuitClosed, cb.currentState())
	assert.Equal(t, "closed", cb.currentState().String())
}

func TestCircuitBreaker_HalfOpenAdmitsOneRequest(t *testing.T) {
	config := &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 1,
		CircuitBreakerTimeout:   time.Minute,
	}

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(config)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.recordFailure())
	now = now.Add(2 * time.Minute)

	assert.True(t, cb.canExecute())
	assert.False(t, cb.canExecute(), "a second request must wait for the first")
	assert.False(t, cb.canExecute())

	// a 500 unrelated to storage frees the slot but keeps the circuit half open
	cb.endProbe()
	assert.Equal(t, circuitHalfOpen, cb.currentState())
	assert.True(t, cb.canExecute())
	assert.False(t, cb.canExecute())

	cb.recordSuccess()
	assert.True(t, cb.canExecute())
	assert.True(t, cb.canExecute())
}

func TestErrorRecoveryMiddleware_HalfOpenPanicFreesSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	mw := ErrorRecoveryMiddleware(testLogger(), &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 1,
		CircuitBreakerTimeout:   time.Nanosecond,
	})
	router.Use(mw)
	fail := true
	router.GET("/flaky", func(c *gin.Context) {
		if fail {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORAGE_UNAVAILABLE"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/panic", func(_ *gin.Context) {
		panic("boom")
	})

	serve := func(path string) int {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusServiceUnavailable, serve("/flaky"))
	time.Sleep(time.Millisecond)
	assert.Equal(t, http.StatusInternalServerError, serve("/panic"))

	fail = false
	assert.Equal(t, http.StatusOK, serve("/flaky"))
	assert.Equal(t, http.StatusOK, serve("/flaky"))
}
