package services

import (
	"context"
	"fmt"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/cache"
	"asset-ledger/internal/metrics"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"

	"go.uber.org/zap"
)

// MovementService reportes de solo lectura sobre compras, transferencias,
// asignaciones y consumos. Nunca modifica activos.
type MovementService interface {
	GetNetMovement(ctx context.Context, baseID string) (*models.NetMovement, error)
	GetNetMovementDetail(ctx context.Context, filter models.MovementFilter) (*models.NetMovementDetail, error)
	GetDashboardMetrics(ctx context.Context, filter models.MovementFilter) (*models.DashboardMetrics, error)
}

type movementService struct {
	reports repository.ReportRepository
	cache   *cache.ReportCache
	metrics *metrics.Ledger
	logger  *zap.Logger
}

// NewMovementService el caché es opcional
func NewMovementService(reports repository.ReportRepository, rc *cache.ReportCache, m *metrics.Ledger, logger *zap.Logger) MovementService {
	return &movementService{
		reports: reports,
		cache:   rc,
		metrics: m,
		logger:  logger,
	}
}

// GetNetMovement calcula compras entregadas + transferencias entrantes completadas
// - transferencias salientes completadas. Sin base devuelve ceros.
func (s *movementService) GetNetMovement(ctx context.Context, baseID string) (result *models.NetMovement, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("get_net_movement", start, err) }()

	if baseID == "" {
		return &models.NetMovement{}, nil
	}

	logger := s.logger.With(
		zap.String("operation", "get_net_movement"),
		zap.String("base_id", baseID),
	)

	key := cache.NetMovementKey(baseID)
	var cached models.NetMovement
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	gen := s.generation(ctx, baseID)

	filter := models.MovementFilter{BaseID: baseID}
	inOut, purchases, transfersIn, err := s.movementTotals(ctx, filter)
	if err != nil {
		logger.Error("❌ Error calculando movimiento neto", zap.Error(err))
		return nil, err
	}

	result = &models.NetMovement{
		BaseID:       baseID,
		Purchases:    purchases,
		TransfersIn:  transfersIn,
		TransfersOut: inOut.Out,
		NetMovement:  inOut.In - inOut.Out,
	}

	logger.Debug("Movimiento neto calculado",
		zap.Int("purchases", result.Purchases),
		zap.Int("transfers_in", result.TransfersIn),
		zap.Int("transfers_out", result.TransfersOut),
		zap.Int("net_movement", result.NetMovement))

	s.store(ctx, logger, key, gen, result)
	return result, nil
}

// GetNetMovementDetail devuelve además las compras y transferencias que suman
// cada total, con nombre y tipo del activo. No pasa por el caché.
func (s *movementService) GetNetMovementDetail(ctx context.Context, filter models.MovementFilter) (result *models.NetMovementDetail, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("get_net_movement_detail", start, err) }()

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, apperrors.NewValidationError("start_date", "start_date must not be after end_date")
	}

	result = &models.NetMovementDetail{
		NetMovement:         models.NetMovement{BaseID: filter.BaseID},
		StartDate:           filter.StartDate,
		EndDate:             filter.EndDate,
		PurchaseRecords:     []models.MovementRecord{},
		TransfersInRecords:  []models.MovementRecord{},
		TransfersOutRecords: []models.MovementRecord{},
	}
	if filter.BaseID == "" {
		return result, nil
	}

	logger := s.logger.With(
		zap.String("operation", "get_net_movement_detail"),
		zap.String("base_id", filter.BaseID),
	)

	lists := []struct {
		name string
		dest *[]models.MovementRecord
		list func(context.Context, models.MovementFilter) ([]models.MovementRecord, error)
	}{
		{"purchases", &result.PurchaseRecords, s.reports.ListDeliveredPurchases},
		{"transfers_in", &result.TransfersInRecords, s.reports.ListCompletedTransfersIn},
		{"transfers_out", &result.TransfersOutRecords, s.reports.ListCompletedTransfersOut},
	}
	for _, l := range lists {
		records, err := l.list(ctx, filter)
		if err != nil {
			logger.Error("❌ Error listando movimientos", zap.String("list", l.name), zap.Error(err))
			return nil, fmt.Errorf("failed to list %s: %w", l.name, err)
		}
		*l.dest = records
	}

	result.Purchases = sumRecords(result.PurchaseRecords)
	result.TransfersIn = sumRecords(result.TransfersInRecords)
	result.TransfersOut = sumRecords(result.TransfersOutRecords)
	result.NetMovement.NetMovement = result.Purchases + result.TransfersIn - result.TransfersOut

	logger.Debug("Detalle de movimiento neto calculado",
		zap.Int("purchase_records", len(result.PurchaseRecords)),
		zap.Int("transfers_in_records", len(result.TransfersInRecords)),
		zap.Int("transfers_out_records", len(result.TransfersOutRecords)))

	return result, nil
}

func sumRecords(records []models.MovementRecord) int {
	total := 0
	for _, r := range records {
		total += r.Quantity
	}
	return total
}

// GetDashboardMetrics contadores por base y rango de fechas opcionales.
// El par in/out solo se incluye cuando hay base.
func (s *movementService) GetDashboardMetrics(ctx context.Context, filter models.MovementFilter) (result *models.DashboardMetrics, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("get_dashboard_metrics", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "get_dashboard_metrics"),
		zap.String("base_id", filter.BaseID),
	)

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, apperrors.NewValidationError("start_date", "start_date must not be after end_date")
	}

	key := cache.DashboardKey(filter)
	var cached models.DashboardMetrics
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	gen := s.generation(ctx, filter.BaseID)

	result = &models.DashboardMetrics{BaseID: filter.BaseID}
	counters := []struct {
		name  string
		dest  *int
		count func(context.Context, models.MovementFilter) (int, error)
	}{
		{"assets", &result.TotalAssets, s.reports.CountAssets},
		{"purchases", &result.TotalPurchases, s.reports.CountPurchases},
		{"pending_transfers", &result.ActiveTransfers, s.reports.CountPendingTransfers},
		{"assignments", &result.AssignedAssets, s.reports.CountAssignments},
		{"expenditures", &result.TotalExpenditures, s.reports.CountExpenditures},
	}
	for _, c := range counters {
		value, err := c.count(ctx, filter)
		if err != nil {
			logger.Error("❌ Error calculando métricas del dashboard", zap.String("counter", c.name), zap.Error(err))
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
		*c.dest = value
	}

	if filter.BaseID != "" {
		inOut, _, _, err := s.movementTotals(ctx, filter)
		if err != nil {
			logger.Error("❌ Error calculando movimiento del dashboard", zap.Error(err))
			return nil, err
		}
		result.NetMovement = inOut
	}
	result.GeneratedAt = time.Now().UTC()

	s.store(ctx, logger, key, gen, result)
	return result, nil
}

// movementTotals suma compras entregadas y transferencias completadas de la base
func (s *movementService) movementTotals(ctx context.Context, filter models.MovementFilter) (*models.MovementInOut, int, int, error) {
	purchases, err := s.reports.SumDeliveredPurchases(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	transfersIn, err := s.reports.SumCompletedTransfersIn(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	transfersOut, err := s.reports.SumCompletedTransfersOut(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	return &models.MovementInOut{In: purchases + transfersIn, Out: transfersOut}, purchases, transfersIn, nil
}

func (s *movementService) generation(ctx context.Context, baseID string) cache.Generation {
	if s.cache == nil {
		return cache.Generation{}
	}
	return s.cache.Generation(ctx, cache.Scope(baseID))
}

// store descarta el reporte si una escritura invalidó la base mientras se calculaba
func (s *movementService) store(ctx context.Context, logger *zap.Logger, key string, gen cache.Generation, value interface{}) {
	if s.cache == nil {
		return
	}
	stored, err := s.cache.SetIfCurrent(ctx, key, value, gen)
	if err != nil {
		logger.Warn("⚠️ No se pudo cachear el reporte", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		logger.Debug("Reporte no cacheado: la base cambió durante el cálculo", zap.String("key", key))
	}
}
