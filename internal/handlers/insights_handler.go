package handlers

import (
	"net/http"

	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/gin-gonic/gin"
)

// InsightsHandler serves the leaderboard and performance views
type InsightsHandler struct {
	insightsService services.InsightsServiceInterface
	logger          *observability.Logger
}

// NewInsightsHandler creates a new InsightsHandler instance
func NewInsightsHandler(insightsService services.InsightsServiceInterface, logger *observability.Logger) *InsightsHandler {
	return &InsightsHandler{
		insightsService: insightsService,
		logger:          logger,
	}
}

// GetLeaderboard handles GET /v1/leaderboard
func (h *InsightsHandler) GetLeaderboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_leaderboard")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	entries, err := h.insightsService.Leaderboard(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetPerformance handles GET /v1/performance
func (h *InsightsHandler) GetPerformance(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_performance")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	summary, err := h.insightsService.Performance(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetBadgeChallenges handles GET /v1/badge-challenges
func (h *InsightsHandler) GetBadgeChallenges(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_badge_challenges")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	challenges, err := h.insightsService.WeeklyBadgeChallenges(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}
