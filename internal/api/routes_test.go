package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/database"
	"github.com/irfndi/arbscan/internal/models"
	"github.com/irfndi/arbscan/internal/services"
)

type stubScanner struct {
	status services.ScannerStatus
	result models.CycleResult
	ok     bool
}

func (s stubScanner) Status() services.ScannerStatus { return s.status }

func (s stubScanner) LatestResult() (models.CycleResult, bool) { return s.result, s.ok }

func mustPort(t *testing.T, raw string) int {
	t.Helper()
	port, err := strconv.Atoi(raw)
	require.NoError(t, err)
	return port
}

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	mr := miniredis.RunT(t)
	redisClient, err := database.NewRedisConnection(context.Background(), config.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    mustPort(t, mr.Port()),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	scanner := stubScanner{
		status: services.ScannerStatus{Running: true, Cycles: 3},
		result: models.CycleResult{Ranked: []models.Hit{{Pair: "SOL_USDT", Buy: "Binance", Sell: "OKX"}}},
		ok:     true,
	}

	router := NewRouter("arbscan-test", logger)
	SetupRoutes(router, scanner, redisClient)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"redis":"healthy"`},
		{"/api/v1/opportunities", http.StatusOK, `"pair":"SOL_USDT"`},
		{"/api/v1/cycle", http.StatusOK, `"tickers":0`},
		{"/api/v1/status", http.StatusOK, `"cycles":3`},
		{"/api/v1/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "/api/v1/unknown", hook.LastEntry().Data["path"])
}

func TestSetupRoutes_WithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	router := NewRouter("arbscan-test", logger)
	SetupRoutes(router, stubScanner{status: services.ScannerStatus{Running: true}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"redis"`)
}
