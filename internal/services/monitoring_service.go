package services

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"asset-ledger/internal/cache"
	"asset-ledger/internal/config"
	"asset-ledger/internal/database"
	"asset-ledger/internal/models"

	"go.uber.org/zap"
)

type MonitoringService interface {
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats(ctx context.Context) models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
}

type monitoringService struct {
	logger      *zap.Logger
	config      *config.Config
	redis       *database.RedisDB
	store       *database.Store
	reportCache *cache.ReportCache
	audit       AuditService

	// Métricas de requests
	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError

	// Contadores
	totalRequests int64

	// Timestamps
	startTime time.Time
}

// NewMonitoringService redis puede ser nil cuando el caché L2 está deshabilitado
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redis *database.RedisDB,
	store *database.Store,
	reportCache *cache.ReportCache,
	audit AuditService,
) MonitoringService {
	return &monitoringService{
		logger:      logger,
		config:      config,
		redis:       redis,
		store:       store,
		reportCache: reportCache,
		audit:       audit,
		requests:    make(map[string]*models.EndpointMetrics),
		startTime:   time.Now(),
	}
}

const (
	slowRequestThreshold = time.Second
	recentEventsLimit    = 100
	topEndpointsLimit    = 10
)

// RecordRequest acumula conteo y latencia por "MÉTODO ruta"
func (s *monitoringService) RecordRequest(data models.RequestData) {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	key := data.Method + " " + data.Endpoint
	endpoint, ok := s.requests[key]
	if !ok {
		endpoint = &models.EndpointMetrics{}
		s.requests[key] = endpoint
	}

	durationMs := data.Duration.Milliseconds()
	endpoint.Count++
	endpoint.TotalTime += durationMs
	endpoint.AvgTime = float64(endpoint.TotalTime) / float64(endpoint.Count)
	s.totalRequests++

	if data.Duration > slowRequestThreshold {
		s.slowRequests = appendRecent(s.slowRequests, models.SlowRequest{
			Endpoint:  key,
			Duration:  durationMs,
			Timestamp: data.Timestamp,
		})
	}

	if data.Error != nil || data.StatusCode >= 400 {
		s.errors = appendRecent(s.errors, models.RequestError{
			Endpoint:   key,
			StatusCode: data.StatusCode,
			Timestamp:  data.Timestamp,
		})
	}
}

// appendRecent conserva solo los últimos recentEventsLimit elementos
func appendRecent[T any](items []T, item T) []T {
	items = append(items, item)
	if len(items) > recentEventsLimit {
		items = items[len(items)-recentEventsLimit:]
	}
	return items
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	defer s.requestsMutex.RUnlock()

	requestMetrics := s.calculateRequestMetrics()
	cacheMetrics := s.GetCacheStats()
	databaseMetrics := s.GetDatabaseStats(ctx)
	systemMetrics := s.GetSystemStats()
	redisMetrics := s.GetRedisStats(ctx)

	auditMetrics := models.AuditMetrics{Sink: s.config.Audit.Sink}
	if s.audit != nil {
		auditMetrics.Dropped = s.audit.Dropped()
	}

	performanceMetrics := s.calculatePerformanceMetrics()

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Cache:       cacheMetrics,
		Database:    databaseMetrics,
		System:      systemMetrics,
		Redis:       redisMetrics,
		Audit:       auditMetrics,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "asset-ledger",
	}
}

func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	keys := make([]string, 0, len(s.requests))
	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, m := range s.requests {
		keys = append(keys, key)
		byEndpoint[key] = *m
	}

	// Más usados primero; a igual conteo, orden alfabético
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := s.requests[keys[i]].Count, s.requests[keys[j]].Count
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > topEndpointsLimit {
		keys = keys[:topEndpointsLimit]
	}

	topEndpoints := make([]models.TopEndpoint, 0, len(keys))
	for _, key := range keys {
		m := s.requests[key]
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  key,
			Count:     m.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", m.AvgTime),
		})
	}

	return models.RequestMetrics{
		Total:             len(s.requests),
		ByEndpoint:        byEndpoint,
		SlowRequests:      s.slowRequests,
		Errors:            s.errors,
		TotalRequests:     int(s.totalRequests),
		SlowRequestsCount: len(s.slowRequests),
		ErrorsCount:       len(s.errors),
		TopEndpoints:      topEndpoints,
	}
}

// calculatePerformanceMetrics max y min se toman sobre la latencia promedio de cada endpoint
func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var totalTime, maxTime int64
	minTime := int64(math.MaxInt64)
	count := 0

	for _, m := range s.requests {
		totalTime += m.TotalTime
		count += m.Count
		avg := int64(m.AvgTime)
		if avg > maxTime {
			maxTime = avg
		}
		if avg < minTime {
			minTime = avg
		}
	}
	if count == 0 {
		minTime = 0
	}

	var avgTime float64
	if count > 0 {
		avgTime = float64(totalTime) / float64(count)
	}

	return models.PerformanceMetrics{
		AvgResponseTime:   avgTime,
		MaxResponseTime:   maxTime,
		MinResponseTime:   minTime,
		AvgResponseTimeMs: fmt.Sprintf("%.2fms", avgTime),
		MaxResponseTimeMs: fmt.Sprintf("%dms", maxTime),
		MinResponseTimeMs: fmt.Sprintf("%dms", minTime),
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	cacheStats := s.reportCache.GetStats()

	var hitRate float64
	if cacheStats.TotalRequests > 0 {
		hitRate = float64(cacheStats.Hits) / float64(cacheStats.TotalRequests)
	}

	return models.CacheMetrics{
		Connected:         s.redis != nil,
		TotalKeys:         cacheStats.TotalKeys,
		HitRate:           hitRate,
		Status:            "online",
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         cacheStats.Hits,
		TotalMisses:       cacheStats.Misses,
		TotalRequests:     cacheStats.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats(ctx context.Context) models.DatabaseMetrics {
	stats := s.store.GetStats()

	status := "online"
	if err := s.store.DB.PingContext(ctx); err != nil {
		status = "offline"
	}

	return models.DatabaseMetrics{
		Driver:          string(s.store.Dialect),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		Status:          status,
	}
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()
	uptimeHours := uptime / 3600

	environment := "production"
	if s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Uptime:      uptime,
		Memory: models.MemoryMetrics{
			HeapUsed:  fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
			HeapTotal: fmt.Sprintf("%.2f MB", float64(m.HeapSys)/1024/1024),
			Sys:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
			NumGC:     m.NumGC,
		},
		Goroutines:  runtime.NumGoroutine(),
		UptimeHours: fmt.Sprintf("%.2fh", uptimeHours),
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redis == nil {
		return models.RedisMetrics{Status: "disabled"}
	}

	connected := s.redis.Ping(ctx) == nil

	var keys int
	var memory, memoryMB string
	if connected {
		if n, err := s.redis.KeyCount(ctx); err == nil {
			keys = n
		}
		if used, err := s.redis.UsedMemory(ctx); err == nil && used > 0 {
			memory = fmt.Sprintf("%d", used)
			memoryMB = fmt.Sprintf("%.2f MB", float64(used)/1024/1024)
		}
	}

	status := "offline"
	if connected {
		status = "online"
	}

	return models.RedisMetrics{
		Connected: connected,
		Keys:      keys,
		Memory:    memory,
		Status:    status,
		MemoryMB:  memoryMB,
	}
}
