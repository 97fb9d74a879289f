package handlers

import (
	"net/http"

	"learnverse/internal/models"
	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ChallengeAnswerRequest is the body of POST /v1/challenge
type ChallengeAnswerRequest struct {
	AnswerIndex *int `json:"answerIndex" binding:"required"`
}

// ProfileHandler serves profile settings, the daily challenge and quotes
type ProfileHandler struct {
	profileService   services.ProfileServiceInterface
	challengeService services.ChallengeServiceInterface
	quoteService     services.QuoteServiceInterface
	logger           *observability.Logger
}

// NewProfileHandler creates a new ProfileHandler instance
func NewProfileHandler(
	profileService services.ProfileServiceInterface,
	challengeService services.ChallengeServiceInterface,
	quoteService services.QuoteServiceInterface,
	logger *observability.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profileService:   profileService,
		challengeService: challengeService,
		quoteService:     quoteService,
		logger:           logger,
	}
}

// GetProfile handles GET /v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_profile")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	profile, err := h.profileService.GetProfile(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /v1/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_profile")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn(ctx, "Invalid profile update format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "profile", "", err.Error())
		return
	}

	profile, err := h.profileService.UpdateProfile(ctx, profileID, update)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// IncrementStudyCycles handles POST /v1/profile/study-cycles
func (h *ProfileHandler) IncrementStudyCycles(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "increment_study_cycles")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	cycles, err := h.profileService.IncrementStudyCycles(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"studyTimerCycles": cycles})
}

// GetChallenge handles GET /v1/challenge
func (h *ProfileHandler) GetChallenge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_challenge")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	status, err := h.challengeService.TodayChallenge(ctx, profileID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SubmitChallenge handles POST /v1/challenge
func (h *ProfileHandler) SubmitChallenge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_challenge")
	defer observability.FinishSpan(span, nil)

	profileID, ok := requireProfileID(c, h.logger)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeProfileID(profileID))

	var req ChallengeAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "answerIndex", "", err.Error())
		return
	}

	result, err := h.challengeService.SubmitChallenge(ctx, profileID, *req.AnswerIndex)
	if err != nil {
		h.logger.Warn(ctx, "Failed to submit challenge answer", map[string]interface{}{
			"profile_id": profileID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("challenge.correct", result.Correct))
	c.JSON(http.StatusOK, result)
}

// GetQuote handles GET /v1/quote
func (h *ProfileHandler) GetQuote(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_quote")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, h.quoteService.RandomQuote(ctx))
}
