package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"asset-ledger/internal/config"
	"asset-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitoringServiceAggregatesRequests(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{Audit: config.AuditConfig{Sink: "database"}}
	svc := NewMonitoringService(zap.NewNop(), cfg, nil, f.store, f.cache, f.audit)

	now := time.Now()
	record := func(method, path string, d time.Duration, status int) {
		svc.RecordRequest(models.RequestData{Endpoint: path, Method: method, Duration: d, StatusCode: status, Timestamp: now})
	}
	record(http.MethodPost, "/api/v1/transfers", 20*time.Millisecond, http.StatusCreated)
	record(http.MethodPost, "/api/v1/transfers", 40*time.Millisecond, http.StatusBadRequest)
	record(http.MethodGet, "/api/v1/dashboard/metrics", 2*time.Second, http.StatusOK)

	metrics := svc.GetMetrics(context.Background())

	assert.Equal(t, 3, metrics.Requests.TotalRequests)
	assert.Equal(t, 2, metrics.Requests.Total)
	require.Len(t, metrics.Requests.TopEndpoints, 2)
	assert.Equal(t, "POST /api/v1/transfers", metrics.Requests.TopEndpoints[0].Endpoint)
	assert.Equal(t, "30.00ms", metrics.Requests.TopEndpoints[0].AvgTimeMs)
	assert.Equal(t, 1, metrics.Requests.ErrorsCount)
	assert.Equal(t, 1, metrics.Requests.SlowRequestsCount)

	assert.Equal(t, "online", metrics.Database.Status)
	assert.Equal(t, "sqlite", metrics.Database.Driver)
	assert.Equal(t, "disabled", metrics.Redis.Status)
	assert.False(t, metrics.Cache.Connected)
	assert.Equal(t, "database", metrics.Audit.Sink)
	assert.Equal(t, "asset-ledger", metrics.GeneratedBy)
}

func TestMonitoringServiceKeepsRecentEventsBounded(t *testing.T) {
	f := newFixture(t)
	svc := NewMonitoringService(zap.NewNop(), &config.Config{}, nil, f.store, f.cache, nil)

	for i := 0; i < recentEventsLimit+25; i++ {
		svc.RecordRequest(models.RequestData{
			Endpoint: "/api/v1/purchases", Method: http.MethodPost,
			StatusCode: http.StatusInternalServerError, Timestamp: time.Now(),
		})
	}

	metrics := svc.GetMetrics(context.Background())
	assert.Equal(t, recentEventsLimit+25, metrics.Requests.TotalRequests)
	assert.Equal(t, recentEventsLimit, metrics.Requests.ErrorsCount)
	assert.Equal(t, int64(0), metrics.Audit.Dropped)
}
