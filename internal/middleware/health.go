package middleware

import (
	"context"
	"net/http"
	"time"

	"asset-ledger/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker verifica la base de datos y, si está configurado, Redis.
// Redis es opcional: su caída degrada el caché pero no el servicio.
type HealthChecker struct {
	store   *database.Store
	redisDB *database.RedisDB
	logger  *zap.Logger
}

func NewHealthChecker(store *database.Store, redisDB *database.RedisDB, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		store:   store,
		redisDB: redisDB,
		logger:  logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	overall := "healthy"
	services := gin.H{}

	dbStatus := "healthy"
	if err := h.store.DB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
		overall = "unhealthy"
		h.logger.Error("❌ Database health check failed", zap.Error(err))
	}
	stats := h.store.GetStats()
	services["database"] = gin.H{
		"status": dbStatus,
		"driver": string(h.store.Dialect),
		"stats": gin.H{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
		},
	}

	if h.redisDB == nil {
		services["redis"] = gin.H{"status": "disabled"}
	} else {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			if overall == "healthy" {
				overall = "degraded"
			}
			h.logger.Warn("⚠️ Redis health check failed", zap.Error(err))
		}

		redisStats, err := h.redisDB.GetStats(ctx)
		if err != nil {
			redisStats = "unavailable"
		}
		services["redis"] = gin.H{
			"status": redisStatus,
			"stats":  redisStats,
		}
	}

	httpStatus := http.StatusOK
	if overall == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}
