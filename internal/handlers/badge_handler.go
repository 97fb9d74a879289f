package handlers

import (
	"net/http"

	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/gin-gonic/gin"
)

// BadgeHandler serves badges and skill trees
type BadgeHandler struct {
	badgeService services.BadgeServiceInterface
	logger       *observability.Logger
}

// NewBadgeHandler creates a new BadgeHandler instance
func NewBadgeHandler(badgeService services.BadgeServiceInterface, logger *observability.Logger) *BadgeHandler {
	return &BadgeHandler{
		badgeService: badgeService,
		logger:       logger,
	}
}

// GetBadges handles GET /v1/badges with an optional ?subject= filter
func (h *BadgeHandler) GetBadges(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_badges")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	subject := c.Query("subject")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeSubject(subject))

	badges, err := h.badgeService.BadgeProgress(ctx, profileID, subject)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

// GetBadge handles GET /v1/badges/:badgeId
func (h *BadgeHandler) GetBadge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_badge")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	badgeID := c.Param("badgeId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeBadgeID(badgeID))

	badge, err := h.badgeService.GetBadge(ctx, profileID, badgeID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, badge)
}

// AwardBadge handles POST /v1/badges/:badgeId/award
func (h *BadgeHandler) AwardBadge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "award_badge")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	badgeID := c.Param("badgeId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeBadgeID(badgeID))

	awarded, err := h.badgeService.AwardBadge(ctx, profileID, badgeID)
	if err != nil {
		h.logger.Warn(ctx, "Failed to award badge", map[string]interface{}{
			"profile_id": profileID,
			"badge_id":   badgeID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badgeId": badgeID, "awarded": awarded})
}

// GetSkillTree handles GET /v1/skills/:subjectId
func (h *BadgeHandler) GetSkillTree(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_skill_tree")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	subject := c.Param("subjectId")
	span.SetAttributes(observability.AttributeProfileID(profileID), observability.AttributeSubject(subject))

	tree, err := h.badgeService.SkillTree(ctx, profileID, subject)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}
