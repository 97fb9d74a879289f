package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"learnverse/internal/config"
	"learnverse/internal/middleware"
	"learnverse/internal/observability"
	"learnverse/internal/services"
	"learnverse/internal/version"
)

// serviceName is reported by /health and /v1/version
const serviceName = "learnverse-server"

// NewRouter creates a new router factory with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	progressService services.ProgressServiceInterface,
	attemptService services.AttemptServiceInterface,
	badgeService services.BadgeServiceInterface,
	insightsService services.InsightsServiceInterface,
	challengeService services.ChallengeServiceInterface,
	profileService services.ProfileServiceInterface,
	quoteService services.QuoteServiceInterface,
	transferService services.TransferServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Server.Debug {
			gin.SetMode(gin.DebugMode)
		}
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.DefaultErrorRecoveryConfig()))

	// HTTP request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			if c.Writer.Size() > 0 {
				fields["http.response_size"] = c.Writer.Size()
			}
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before tracing and sessions)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName, "version": version.Version})
	})

	// OpenTelemetry middleware with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling(serviceName)...)

	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	// credentials need explicit origins
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   cfg.Server.SecureCookies,
	}
	if cfg.Server.SecureCookies {
		sessionOpts.SameSite = http.SameSiteNoneMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	progressHandler := NewProgressHandler(progressService, cfg, logger)
	attemptHandler := NewAttemptHandler(attemptService, logger)
	badgeHandler := NewBadgeHandler(badgeService, logger)
	insightsHandler := NewInsightsHandler(insightsService, logger)
	profileHandler := NewProfileHandler(profileService, challengeService, quoteService, logger)
	transferHandler := NewTransferHandler(transferService, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get(serviceName))
		})

		api := v1.Group("")
		api.Use(ProfileSessionMiddleware(logger))
		{
			api.GET("/progress", progressHandler.GetProgress)
			api.POST("/visits", progressHandler.RecordVisit)
			api.GET("/streaks", progressHandler.GetStreaks)

			modules := api.Group("/modules/:moduleId")
			{
				modules.POST("/complete", progressHandler.CompleteModule)
				modules.PUT("/score", progressHandler.RecordScore)
				modules.POST("/attempts", attemptHandler.RecordAttempt)
				modules.GET("/attempts", attemptHandler.GetAttempts)
				modules.GET("/attempts/:attemptNumber", attemptHandler.GetAttempt)
			}
			api.GET("/attempts", attemptHandler.GetAllAttempts)

			api.GET("/badges", badgeHandler.GetBadges)
			api.GET("/badges/:badgeId", badgeHandler.GetBadge)
			api.POST("/badges/:badgeId/award", badgeHandler.AwardBadge)
			api.GET("/skills/:subjectId", badgeHandler.GetSkillTree)

			api.GET("/leaderboard", insightsHandler.GetLeaderboard)
			api.GET("/performance", insightsHandler.GetPerformance)
			api.GET("/badge-challenges", insightsHandler.GetBadgeChallenges)

			api.GET("/challenge", profileHandler.GetChallenge)
			api.POST("/challenge", profileHandler.SubmitChallenge)
			api.GET("/profile", profileHandler.GetProfile)
			api.PUT("/profile", profileHandler.UpdateProfile)
			api.POST("/profile/study-cycles", profileHandler.IncrementStudyCycles)
			api.GET("/quote", profileHandler.GetQuote)

			api.GET("/export", transferHandler.Export)
			api.POST("/import", transferHandler.Import)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusNotFound, "Not found", c.Request.URL.Path)
	})

	routeListing := NewRouteListingHandler(serviceName)
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListing)

	return router
}
