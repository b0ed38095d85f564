package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"asset-ledger/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	keyPrefix = "report:"
	genPrefix = keyPrefix + "gen:"

	// globalScope agrupa los reportes sin base; toda invalidación lo incrementa
	globalScope = "*"
)

var errStaleReport = errors.New("report generation changed")

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

type l1Entry struct {
	data      []byte
	expiresAt time.Time
}

// Generation versión de un ámbito leída antes de calcular un reporte.
// SetIfCurrent solo guarda el reporte si la versión no cambió.
type Generation struct {
	scope    string
	local    uint64
	remote   int64
	remoteOK bool
}

// ReportCache caché de dos niveles para reportes de movimiento y dashboard.
// L1 en memoria; L2 en Redis cuando hay cliente (puede ser nil).
type ReportCache struct {
	l1Cache     map[string]l1Entry
	generations map[string]uint64
	l1Mutex     sync.RWMutex

	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReportCache crea el caché e inicia la limpieza periódica de L1
func NewReportCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ReportCache {
	if maxL1Size <= 0 {
		maxL1Size = 500
	}
	rc := &ReportCache{
		l1Cache:     make(map[string]l1Entry),
		generations: make(map[string]uint64),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		stop:        make(chan struct{}),
	}

	go rc.cleanupL1Cache()

	return rc
}

// NetMovementKey clave del reporte de movimiento neto de una base
func NetMovementKey(baseID string) string {
	return fmt.Sprintf("%snetmovement:%s", keyPrefix, baseID)
}

// DashboardKey clave de las métricas del dashboard para un filtro
func DashboardKey(filter models.MovementFilter) string {
	base := filter.BaseID
	if base == "" {
		base = "all"
	}
	return fmt.Sprintf("%sdashboard:%s:%s:%s", keyPrefix, base, formatBound(filter.StartDate), formatBound(filter.EndDate))
}

// Scope ámbito de invalidación de los reportes de una base; sin base es el global
func Scope(baseID string) string {
	if baseID == "" {
		return globalScope
	}
	return baseID
}

func generationKey(scope string) string {
	return genPrefix + scope
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("20060102T150405.999999999")
}

// Get deserializa en dest el valor cacheado; devuelve false si no existe
func (rc *ReportCache) Get(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()

	if data := rc.getFromL1(key); data != nil {
		if err := json.Unmarshal(data, dest); err == nil {
			rc.recordHit()
			rc.logger.Debug("L1 cache hit", zap.String("key", key), zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	if data, err := rc.getFromL2(ctx, key); err == nil && data != nil {
		if err := json.Unmarshal(data, dest); err == nil {
			rc.setToL1(key, data)
			rc.recordHit()
			rc.logger.Debug("L2 cache hit", zap.String("key", key), zap.Duration("latency", time.Since(start)))
			return true
		}
	}

	rc.recordMiss()
	rc.logger.Debug("Cache miss", zap.String("key", key), zap.Duration("latency", time.Since(start)))
	return false
}

// Set almacena el valor en ambos niveles
func (rc *ReportCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	rc.setToL1(key, data)
	return rc.setToL2(ctx, key, data)
}

// Generation lee la versión actual del ámbito; se toma antes de consultar la base de datos
func (rc *ReportCache) Generation(ctx context.Context, scope string) Generation {
	rc.l1Mutex.RLock()
	gen := Generation{scope: scope, local: rc.generations[scope]}
	rc.l1Mutex.RUnlock()

	if rc.redisClient == nil {
		return gen
	}
	remote, err := rc.redisClient.Get(ctx, generationKey(scope)).Int64()
	switch {
	case err == nil:
		gen.remote, gen.remoteOK = remote, true
	case errors.Is(err, redis.Nil):
		gen.remoteOK = true
	default:
		rc.logger.Warn("⚠️ No se pudo leer la generación del caché", zap.String("scope", scope), zap.Error(err))
	}
	return gen
}

// SetIfCurrent guarda el valor solo si ninguna invalidación del ámbito ocurrió
// desde que se leyó gen. Devuelve false si el valor quedó descartado.
func (rc *ReportCache) SetIfCurrent(ctx context.Context, key string, value interface{}, gen Generation) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if rc.redisClient != nil && gen.remoteOK {
		stored, err := rc.setToL2IfCurrent(ctx, key, data, gen)
		if err != nil || !stored {
			return false, err
		}
	}

	rc.l1Mutex.Lock()
	defer rc.l1Mutex.Unlock()
	if rc.generations[gen.scope] != gen.local {
		return false, nil
	}
	rc.storeL1(key, data)
	return true, nil
}

// setToL2IfCurrent usa WATCH sobre la generación para que un INCR concurrente aborte el SET
func (rc *ReportCache) setToL2IfCurrent(ctx context.Context, key string, data []byte, gen Generation) (bool, error) {
	genKey := generationKey(gen.scope)
	err := rc.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen.remote {
			return errStaleReport
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, rc.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleReport), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("failed to store cache value: %w", err)
	}
}

// InvalidateBases elimina los reportes de las bases afectadas y los globales,
// y sube la generación de cada ámbito para descartar cálculos en curso.
func (rc *ReportCache) InvalidateBases(ctx context.Context, baseIDs ...string) error {
	var exact []string
	scopes := []string{globalScope}
	prefixes := []string{keyPrefix + "dashboard:all:"}
	for _, base := range baseIDs {
		if base == "" {
			continue
		}
		exact = append(exact, NetMovementKey(base))
		scopes = append(scopes, base)
		prefixes = append(prefixes, keyPrefix+"dashboard:"+base+":")
	}

	rc.l1Mutex.Lock()
	for _, scope := range scopes {
		rc.generations[scope]++
	}
	for _, key := range exact {
		delete(rc.l1Cache, key)
	}
	for key := range rc.l1Cache {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				delete(rc.l1Cache, key)
				break
			}
		}
	}
	rc.l1Mutex.Unlock()

	if rc.redisClient == nil {
		return nil
	}

	for _, scope := range scopes {
		if err := rc.redisClient.Incr(ctx, generationKey(scope)).Err(); err != nil {
			return fmt.Errorf("failed to bump cache generation: %w", err)
		}
	}

	keys := exact
	for _, p := range prefixes {
		iter := rc.redisClient.Scan(ctx, 0, p+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
	}
	if len(keys) > 0 {
		if err := rc.redisClient.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}
	return nil
}

// GetStats retorna estadísticas del caché
func (rc *ReportCache) GetStats() CacheStats {
	rc.statsMutex.RLock()
	defer rc.statsMutex.RUnlock()

	rc.l1Mutex.RLock()
	totalKeys := len(rc.l1Cache)
	rc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          rc.hits,
		Misses:        rc.misses,
		TotalRequests: rc.hits + rc.misses,
		TotalKeys:     totalKeys,
	}
}

// Close detiene la limpieza periódica
func (rc *ReportCache) Close() {
	rc.stopOnce.Do(func() { close(rc.stop) })
}

func (rc *ReportCache) recordHit() {
	rc.statsMutex.Lock()
	rc.hits++
	rc.statsMutex.Unlock()
}

func (rc *ReportCache) recordMiss() {
	rc.statsMutex.Lock()
	rc.misses++
	rc.statsMutex.Unlock()
}

func (rc *ReportCache) getFromL1(key string) []byte {
	rc.l1Mutex.RLock()
	defer rc.l1Mutex.RUnlock()

	entry, ok := rc.l1Cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.data
}

func (rc *ReportCache) setToL1(key string, data []byte) {
	rc.l1Mutex.Lock()
	defer rc.l1Mutex.Unlock()
	rc.storeL1(key, data)
}

// storeL1 requiere l1Mutex tomado
func (rc *ReportCache) storeL1(key string, data []byte) {
	if _, exists := rc.l1Cache[key]; !exists && len(rc.l1Cache) >= rc.maxL1Size {
		rc.evictOne()
	}

	rc.l1Cache[key] = l1Entry{data: data, expiresAt: time.Now().Add(rc.ttl)}
}

// evictOne descarta la entrada que vence primero
func (rc *ReportCache) evictOne() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range rc.l1Cache {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(rc.l1Cache, oldestKey)
}

func (rc *ReportCache) getFromL2(ctx context.Context, key string) ([]byte, error) {
	if rc.redisClient == nil {
		return nil, nil
	}
	return rc.redisClient.Get(ctx, key).Bytes()
}

func (rc *ReportCache) setToL2(ctx context.Context, key string, data []byte) error {
	if rc.redisClient == nil {
		return nil
	}
	return rc.redisClient.Set(ctx, key, data, rc.ttl).Err()
}

// cleanupL1Cache elimina periódicamente las entradas vencidas
func (rc *ReportCache) cleanupL1Cache() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.removeExpired(time.Now())
		case <-rc.stop:
			return
		}
	}
}

func (rc *ReportCache) removeExpired(now time.Time) int {
	rc.l1Mutex.Lock()
	defer rc.l1Mutex.Unlock()

	removed := 0
	for key, entry := range rc.l1Cache {
		if now.After(entry.expiresAt) {
			delete(rc.l1Cache, key)
			removed++
		}
	}
	if removed > 0 {
		rc.logger.Debug("L1 cache cleanup", zap.Int("removed", removed), zap.Int("items", len(rc.l1Cache)))
	}
	return removed
}
