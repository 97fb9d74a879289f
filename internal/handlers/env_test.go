package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnverse/internal/catalog"
	"learnverse/internal/config"
	"learnverse/internal/kvstore"
	"learnverse/internal/observability"
	"learnverse/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *observability.Logger {
	return observability.NewLoggerFromZap(zap.NewNop())
}

// newTestRouter wires the real services over a memory store.
// The clock is fixed at 2024-03-15 10:00 UTC.
func newTestRouter(t *testing.T) (*gin.Engine, *catalog.Catalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Default()
	require.NoError(t, err)
	schemas, err := services.LoadProfileKeySchemas()
	require.NoError(t, err)

	cfg := config.Default()
	logger := testLogger()
	backend := kvstore.NewMemoryBackend(logger, nil)
	calendar := services.NewCalendar(services.FixedClock{T: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}, "UTC")

	badges := services.NewBadgeService(backend, cat, calendar, cfg, logger, nil)
	progress := services.NewProgressService(backend, cat, badges, calendar, cfg, logger, nil)
	attempts := services.NewAttemptService(backend, progress, logger, nil)
	insights := services.NewInsightsService(backend, cat, calendar, cfg, logger)
	challenges := services.NewChallengeService(backend, cat, badges, calendar, logger, nil)
	profiles := services.NewProfileService(backend, cfg, logger)
	quotes := services.NewQuoteService(cfg, logger)
	transfer := services.NewTransferService(backend, badges, schemas, calendar, cfg, logger)

	router := NewRouter(cfg, progress, attempts, badges, insights, challenges, profiles, quotes, transfer, logger)
	return router, cat
}

// apiClient replays the session cookie like a browser would
type apiClient struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
}

func newClient(t *testing.T, router *gin.Engine) *apiClient {
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range a.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		a.cookies = cookies
	}
	return w
}

// decode unmarshals a response body into a generic map
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// decodeInto unmarshals a response body into v
func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
