package handlers

import (
	"net/http"
	"strconv"

	"learnverse/internal/models"
	"learnverse/internal/observability"
	"learnverse/internal/services"
	contextutils "learnverse/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultAttemptPageSize = 50
	maxAttemptPageSize     = 200
)

// AttemptHandler serves the quiz attempt log
type AttemptHandler struct {
	attemptService services.AttemptServiceInterface
	logger         *observability.Logger
}

// NewAttemptHandler creates a new AttemptHandler instance
func NewAttemptHandler(attemptService services.AttemptServiceInterface, logger *observability.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		logger:         logger,
	}
}

// RecordAttempt handles POST /v1/modules/:moduleId/attempts.
// The path module id wins over the body and the attempt number is always assigned by the server.
func (h *AttemptHandler) RecordAttempt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_attempt")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	moduleID := c.Param("moduleId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeModuleID(moduleID))

	var attempt models.QuizAttempt
	if err := c.ShouldBindJSON(&attempt); err != nil {
		h.logger.Warn(ctx, "Invalid attempt request format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "attempt", moduleID, err.Error())
		return
	}
	attempt.ModuleID = moduleID

	stored, err := h.attemptService.RecordAttempt(ctx, profileID, attempt)
	if err != nil {
		h.logger.Warn(ctx, "Failed to record attempt", map[string]interface{}{
			"profile_id": profileID,
			"module_id":  moduleID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeAttemptNumber(stored.AttemptNumber))
	c.JSON(http.StatusCreated, stored)
}

// GetAttempts handles GET /v1/modules/:moduleId/attempts
func (h *AttemptHandler) GetAttempts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_attempts")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	moduleID := c.Param("moduleId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeModuleID(moduleID))

	attempts, err := h.attemptService.GetAttempts(ctx, profileID, moduleID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("attempts.count", len(attempts)))
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt handles GET /v1/modules/:moduleId/attempts/:attemptNumber
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_attempt")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	moduleID := c.Param("moduleId")
	numberStr := c.Param("attemptNumber")
	number, err := strconv.Atoi(numberStr)
	if err != nil || number < 1 {
		HandleValidationError(c, "attemptNumber", numberStr, "must be a positive integer")
		return
	}
	span.SetAttributes(
		observability.AttributeProfileID(profileID),
		observability.AttributeModuleID(moduleID),
		observability.AttributeAttemptNumber(number),
	)

	attempt, found, err := h.attemptService.GetAttempt(ctx, profileID, moduleID, number)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if !found {
		HandleAppError(c, contextutils.NotFoundf("attempt %d of module %s", number, moduleID))
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// GetAllAttempts handles GET /v1/attempts.
// Attempts are newest first; ?subject= filters and page/page_size paginate.
func (h *AttemptHandler) GetAllAttempts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_all_attempts")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	attempts, err := h.attemptService.GetAllAttempts(ctx, profileID)
	if err != nil {
		h.logger.Error(ctx, "Failed to list attempts", err, map[string]interface{}{"profile_id": profileID})
		HandleAppError(c, err)
		return
	}

	filters := ParseFilters(c, "subject")
	if subject, ok := filters["subject"]; ok {
		kept := make([]models.QuizAttempt, 0, len(attempts))
		for _, a := range attempts {
			if models.SubjectOf(a.ModuleID) == subject {
				kept = append(kept, a)
			}
		}
		attempts = kept
	}

	page, size := ParsePagination(c, 1, defaultAttemptPageSize, maxAttemptPageSize)
	items, pagination := Paginate(attempts, page, size)
	span.SetAttributes(attribute.Int("attempts.count", pagination.Total))
	WritePaginated(c, "attempts", items, pagination, gin.H{"filters": filters})
}
