package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"seatwise/internal/config"
	"seatwise/internal/metrics"
	"seatwise/internal/middleware"
	"seatwise/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		GinMode:        gin.TestMode,
		StoreDriver:    "memory",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
		Auth:           config.AuthConfig{Secret: "s3cret", Issuer: "seatwise"},
	}
}

func TestOpenBackendsMemory(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.Enabled = true

	b, err := OpenBackends(context.Background(), cfg, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.DB)
	assert.NotNil(t, b.Store)
	assert.NotNil(t, b.KV, "memory mode keeps an in-process cache")
	assert.Nil(t, b.NATS)
	assert.Nil(t, b.Search)
}

func TestOpenBackendsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "mysql"

	_, err := OpenBackends(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := memoryConfig()

	b, err := OpenBackends(context.Background(), cfg, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	server := NewServerWithBackends(cfg, b)
	defer server.Cleanup()

	admin := &models.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, b.Store.CreateUser(context.Background(), admin))
	token, err := middleware.IssueToken(cfg.Auth.Secret, cfg.Auth.Issuer, admin.ID, admin.Role, time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body := `{"name":"Launch","eventDate":"2031-01-01T10:00:00Z","maxCapacity":3,"onlineLink":"https://example.com/live"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
