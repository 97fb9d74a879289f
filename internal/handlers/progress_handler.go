package handlers

import (
	"net/http"

	"learnverse/internal/config"
	"learnverse/internal/observability"
	"learnverse/internal/services"
	contextutils "learnverse/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ScoreRequest is the body of PUT /v1/modules/:moduleId/score.
// Either percent or correct and total must be given.
type ScoreRequest struct {
	Percent *int `json:"percent" binding:"omitempty,gte=0,lte=100"`
	Correct *int `json:"correct" binding:"omitempty,gte=0"`
	Total   *int `json:"total" binding:"omitempty,gt=0"`
}

// ProgressHandler serves the progress ledger and streak endpoints
type ProgressHandler struct {
	progressService services.ProgressServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewProgressHandler creates a new ProgressHandler instance
func NewProgressHandler(progressService services.ProgressServiceInterface, cfg *config.Config, logger *observability.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		cfg:             cfg,
		logger:          logger,
	}
}

// requireProfileID resolves the session profile or answers 401
func requireProfileID(c *gin.Context, logger *observability.Logger) (string, bool) {
	profileID, ok := GetProfileIDFromSession(c)
	if !ok {
		logger.Warn(c.Request.Context(), "Profile id not found in session")
		HandleAppError(c, contextutils.ErrSessionMissing)
		return "", false
	}
	return profileID, true
}

// GetProgress handles GET /v1/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_progress")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	snapshot, err := h.progressService.Snapshot(ctx, profileID)
	if err != nil {
		h.logger.Error(ctx, "Failed to load progress", err, map[string]interface{}{"profile_id": profileID})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// CompleteModule handles POST /v1/modules/:moduleId/complete
func (h *ProgressHandler) CompleteModule(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_module")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	moduleID := c.Param("moduleId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeModuleID(moduleID))

	result, err := h.progressService.RecordCompletion(ctx, profileID, moduleID)
	if err != nil {
		h.logger.Warn(ctx, "Failed to record completion", map[string]interface{}{
			"profile_id": profileID,
			"module_id":  moduleID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("module.newly_completed", result.NewlyCompleted))
	c.JSON(http.StatusOK, result)
}

// RecordScore handles PUT /v1/modules/:moduleId/score
func (h *ProgressHandler) RecordScore(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_score")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	moduleID := c.Param("moduleId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeModuleID(moduleID))

	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid score request format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "score", moduleID, err.Error())
		return
	}

	var percent int
	switch {
	case req.Percent != nil:
		percent = *req.Percent
	case req.Correct != nil && req.Total != nil:
		p, err := services.ScorePercent(*req.Correct, *req.Total)
		if err != nil {
			HandleAppError(c, err)
			return
		}
		percent = p
	default:
		HandleValidationError(c, "score", "", "percent or correct and total are required")
		return
	}

	result, err := h.progressService.RecordQuizScore(ctx, profileID, moduleID, percent)
	if err != nil {
		h.logger.Warn(ctx, "Failed to record quiz score", map[string]interface{}{
			"profile_id": profileID,
			"module_id":  moduleID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("quiz.percent", result.Percent), attribute.Bool("quiz.perfect", result.Perfect))
	c.JSON(http.StatusOK, result)
}

// RecordVisit handles POST /v1/visits
func (h *ProgressHandler) RecordVisit(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_visit")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	summary, err := h.progressService.RecordVisit(ctx, profileID)
	if err != nil {
		h.logger.Error(ctx, "Failed to record visit", err, map[string]interface{}{"profile_id": profileID})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetStreaks handles GET /v1/streaks
func (h *ProgressHandler) GetStreaks(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_streaks")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	summary, err := h.progressService.Streaks(ctx, profileID)
	if err != nil {
		h.logger.Error(ctx, "Failed to load streaks", err, map[string]interface{}{"profile_id": profileID})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
