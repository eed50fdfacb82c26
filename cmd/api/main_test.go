package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"rental-platform-api/config"
	"rental-platform-api/predictive"
	"rental-platform-api/services"
	"rental-platform-api/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CORS:       config.CORSConfig{AllowedOrigins: "*"},
		JWT:        config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: "rental-platform-api"},
		Prediction: config.PredictionConfig{DefaultPropertyAge: 20, DefaultMonthsAhead: 6, MaxMonthsAhead: 24, AlertHorizonMonths: 3},
	}
	s := store.NewMemoryStore()
	s.AddProperty(predictive.PropertySummary{ID: 1, Title: "Old Mill", ConstructionYear: intPtr(1960), OwnerID: 7})

	auth := services.NewAuthService(cfg.JWT)
	svc := services.NewPredictiveService(predictive.NewEngine(nil), s, s, nil, cfg.Prediction)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return newRouter(cfg, nil, nil, auth, svc, logger, prometheus.NewRegistry()), auth
}

func intPtr(v int) *int { return &v }

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":false`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPredictiveRoutesRequireToken(t *testing.T) {
	r, auth := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/predictive-maintenance/portfolio", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateToken(7, "owner@test.com", "owner")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/predictive-maintenance/portfolio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_properties":1`)
}

func TestNotificationsSocketRejectsMissingToken(t *testing.T) {
	r, _ := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
