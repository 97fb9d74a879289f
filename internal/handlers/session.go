package handlers

import (
	"learnverse/internal/observability"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// profileContextKey is where ProfileSessionMiddleware leaves the profile id for handlers
const profileContextKey = "learnverse.profile_id"

// ProfileSessionMiddleware gives every visitor an anonymous profile.
// The id is created on the first request and kept in the session cookie afterwards.
func ProfileSessionMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(observability.ProfileSessionKey).(string)
		if !ok || id == "" {
			id = uuid.NewString()
			session.Set(observability.ProfileSessionKey, id)
			if err := session.Save(); err != nil {
				logger.Error(c.Request.Context(), "Failed to save profile session", err, map[string]interface{}{
					"profile_id": id,
				})
			} else {
				logger.Info(c.Request.Context(), "Created anonymous profile", map[string]interface{}{
					"profile_id": id,
				})
			}
		}
		c.Set(profileContextKey, id)
		c.Next()
	}
}

// GetProfileIDFromSession retrieves the current profile id.
// Returns ("", false) when the session middleware did not run or stored an invalid value.
func GetProfileIDFromSession(c *gin.Context) (string, bool) {
	if id, ok := c.Get(profileContextKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s, true
		}
	}
	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return "", false
	}
	id, ok := sessions.Default(c).Get(observability.ProfileSessionKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
