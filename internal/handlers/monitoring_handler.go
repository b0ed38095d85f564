package handlers

import (
	"net/http"
	"time"

	"asset-ledger/internal/models"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	pushInterval      time.Duration
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, pushInterval time.Duration, logger *zap.Logger) *MonitoringHandler {
	if pushInterval <= 0 {
		pushInterval = 10 * time.Second
	}
	return &MonitoringHandler{
		monitoringService: monitoringService,
		pushInterval:      pushInterval,
		logger:            logger,
	}
}

// GetMetrics maneja la petición HTTP para obtener métricas
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Debug("🔍 [DEBUG] Métricas obtenidas",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int("total_endpoints", metrics.Requests.Total),
		zap.Int64("audit_dropped", metrics.Audit.Dropped))

	c.JSON(http.StatusOK, metrics)
}

// GetMetricsSummary endpoint para métricas resumidas
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"requests": gin.H{
			"total":         metrics.Requests.TotalRequests,
			"endpoints":     metrics.Requests.Total,
			"errors":        metrics.Requests.ErrorsCount,
			"slow_requests": metrics.Requests.SlowRequestsCount,
		},
		"performance": gin.H{
			"avg_response_time": metrics.Performance.AvgResponseTimeMs,
			"max_response_time": metrics.Performance.MaxResponseTimeMs,
		},
		"cache": gin.H{
			"hit_rate":   metrics.Cache.HitRatePercentage,
			"total_keys": metrics.Cache.TotalKeys,
		},
		"database": gin.H{
			"driver":           metrics.Database.Driver,
			"open_connections": metrics.Database.OpenConnections,
			"in_use":           metrics.Database.InUse,
			"status":           metrics.Database.Status,
		},
		"redis": gin.H{
			"status": metrics.Redis.Status,
			"keys":   metrics.Redis.Keys,
		},
		"audit":     metrics.Audit,
		"uptime":    metrics.System.UptimeHours,
		"timestamp": metrics.Timestamp,
	})
}

// WebSocketMetrics envía las métricas del proceso en cada intervalo
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("❌ Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics := h.monitoringService.GetMetrics(c.Request.Context())
			if err := conn.WriteJSON(metrics); err != nil {
				logger.Warn("⚠️ Error enviando métricas por WebSocket", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// RecordRequestMiddleware registra cada request agrupado por la ruta registrada en gin
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if shouldSkipMonitoring(path) {
			return
		}

		var lastErr error
		if len(c.Errors) > 0 {
			lastErr = c.Errors.Last()
		}

		h.monitoringService.RecordRequest(models.RequestData{
			Endpoint:   path,
			Method:     c.Request.Method,
			Duration:   time.Since(start),
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now(),
			Error:      lastErr,
		})
	}
}

var excludedMonitoringPaths = map[string]struct{}{
	"/api/v1/monitoring/metrics":         {},
	"/api/v1/monitoring/metrics/summary": {},
	"/api/v1/monitoring/ws":              {},
	"/metrics":                           {},
	"/health":                            {},
	"/":                                  {},
}

func shouldSkipMonitoring(path string) bool {
	_, skip := excludedMonitoringPaths[path]
	return skip
}
