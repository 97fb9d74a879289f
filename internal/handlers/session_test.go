package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"learnverse/internal/config"
	"learnverse/internal/observability"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions(config.SessionName, store))
	return r
}

func profileIDResponse(t *testing.T, w *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ID string `json:"id"`
		OK bool   `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID, resp.OK
}

func TestGetProfileIDFromSession_NoProfile(t *testing.T) {
	router := setupSessionTestRouter()
	router.GET("/check", func(c *gin.Context) {
		id, ok := GetProfileIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	id, ok := profileIDResponse(t, w)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestGetProfileIDFromSession_NoSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/check", func(c *gin.Context) {
		id, ok := GetProfileIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	_, ok := profileIDResponse(t, w)
	assert.False(t, ok)
}

func TestGetProfileIDFromSession_InvalidType(t *testing.T) {
	router := setupSessionTestRouter()
	router.GET("/check", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(observability.ProfileSessionKey, 42)
		_ = session.Save()
		id, ok := GetProfileIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	_, ok := profileIDResponse(t, w)
	assert.False(t, ok)
}

func TestProfileSessionMiddleware_AssignsStableID(t *testing.T) {
	router := setupSessionTestRouter()
	router.Use(ProfileSessionMiddleware(testLogger()))
	router.GET("/check", func(c *gin.Context) {
		id, ok := GetProfileIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	first, ok := profileIDResponse(t, w)
	require.True(t, ok)
	_, err := uuid.Parse(first)
	require.NoError(t, err)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, config.SessionName, cookies[0].Name)

	req, _ = http.NewRequest("GET", "/check", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	second, ok := profileIDResponse(t, w)
	assert.True(t, ok)
	assert.Equal(t, first, second)
	assert.Empty(t, w.Result().Cookies(), "an existing profile is not re-saved")
}

func TestRequireProfileID_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/progress", NewProgressHandler(nil, config.Default(), testLogger()).GetProgress)

	req, _ := http.NewRequest("GET", "/v1/progress", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SESSION_MISSING", resp["code"])
}
