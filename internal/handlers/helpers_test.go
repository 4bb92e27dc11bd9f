package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hospital-booking-server/internal/config"
	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		JWTSecret:            "test-secret",
		JWTExpirationMinutes: 60,
	}
}

// newTestRouter returns a bare engine plus an /api group guarded by the
// authentication middleware, mirroring the production route layout.
func newTestRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *gin.RouterGroup) {
	router := gin.New()
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(db, cfg))
	return router, private
}

func tokenFor(t *testing.T, user *models.User, cfg *config.Config) string {
	t.Helper()
	token, err := utils.GenerateToken(user, cfg)
	require.NoError(t, err)
	return token
}

func performRequest(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// envelope mirrors the response wrapper used by every handler.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, w.Code, env.Status)
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, out))
}
