// Package middleware holds gin middleware shared by the HTTP API.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"learnverse/internal/observability"
	contextutils "learnverse/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryConfig configures error recovery behavior
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker fails requests fast while the store keeps reporting itself unavailable
	EnableCircuitBreaker bool
	// CircuitBreakerThreshold is the number of consecutive 503 responses that opens the circuit
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long the circuit stays open before one request is let through
	CircuitBreakerTimeout time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// circuitBreakerState represents the state of a circuit breaker
type circuitBreakerState int

const (
	circuitClosed circuitBreakerState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitBreakerState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// circuitBreaker tracks consecutive unavailability and manages circuit state
type circuitBreaker struct {
	mu          sync.Mutex
	state       circuitBreakerState
	failures    int
	probing     bool
	lastFailure time.Time
	config      *ErrorRecoveryConfig
	now         func() time.Time
}

// newCircuitBreaker creates a new circuit breaker
func newCircuitBreaker(config *ErrorRecoveryConfig) *circuitBreaker {
	return &circuitBreaker{
		state:  circuitClosed,
		config: config,
		now:    time.Now,
	}
}

// canExecute checks if the circuit breaker allows execution
func (cb *circuitBreaker) canExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitHalfOpen:
		// one request at a time probes the store
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	case circuitOpen:
		if cb.now().Sub(cb.lastFailure) > cb.config.CircuitBreakerTimeout {
			cb.state = circuitHalfOpen
			cb.probing = true
			return true
		}
		return false
	default:
		return false
	}
}

// recordSuccess records a response from a reachable store
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	cb.state = circuitClosed
}

// recordFailure records an unavailable response and reports whether the circuit just opened
func (cb *circuitBreaker) recordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false
	cb.lastFailure = cb.now()
	if cb.state != circuitOpen && (cb.state == circuitHalfOpen || cb.failures >= cb.config.CircuitBreakerThreshold) {
		cb.state = circuitOpen
		return true
	}
	return false
}

// endProbe frees the half-open slot without changing state
func (cb *circuitBreaker) endProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

func (cb *circuitBreaker) currentState() circuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ErrorRecoveryMiddleware turns panics into the JSON error envelope and, when enabled,
// short-circuits requests while the store is unavailable.
func ErrorRecoveryMiddleware(logger *observability.Logger, config *ErrorRecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultErrorRecoveryConfig()
	}

	var cb *circuitBreaker
	if config.EnableCircuitBreaker {
		cb = newCircuitBreaker(config)
	}

	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				stackTrace := string(debug.Stack())
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("%v", recovered), map[string]interface{}{
						"http.method": c.Request.Method,
						"http.path":   c.Request.URL.Path,
						"stack":       stackTrace,
					})
				}

				appErr := contextutils.NewAppError(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
				)
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}
				writeAppError(c, http.StatusInternalServerError, appErr)
				if cb != nil {
					cb.endProbe()
				}
			}
		}()

		if cb != nil && !cb.canExecute() {
			writeAppError(c, http.StatusServiceUnavailable, contextutils.ServiceUnavailablef(
				"storage has been unavailable for %d consecutive requests", config.CircuitBreakerThreshold))
			return
		}

		c.Next()

		if cb == nil {
			return
		}
		if c.Writer.Status() == http.StatusServiceUnavailable {
			if cb.recordFailure() && logger != nil {
				logger.Warn(c.Request.Context(), "Storage circuit opened", map[string]interface{}{
					"threshold": config.CircuitBreakerThreshold,
					"timeout":   config.CircuitBreakerTimeout.String(),
				})
			}
		} else if c.Writer.Status() < http.StatusInternalServerError {
			cb.recordSuccess()
		} else {
			cb.endProbe()
		}
	}
}

// writeAppError aborts the request with the standard error envelope
func writeAppError(c *gin.Context, status int, err *contextutils.AppError) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, err.ToJSON())
}
