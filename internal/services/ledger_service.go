package services

import (
	"context"
	"errors"
	"strings"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/cache"
	"asset-ledger/internal/metrics"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"

	"go.uber.org/zap"
)

// LedgerService define las operaciones que mueven saldos de activos.
// Todas reciben explícitamente el actor que las ejecuta.
type LedgerService interface {
	// Compras
	CreatePurchase(ctx context.Context, actor models.Actor, req *models.CreatePurchaseRequest) (*models.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*models.Purchase, error)
	UpdatePurchase(ctx context.Context, actor models.Actor, id string, req *models.UpdatePurchaseRequest) (*models.Purchase, error)
	DeletePurchase(ctx context.Context, actor models.Actor, id string) error

	// Consumos
	CreateExpenditure(ctx context.Context, actor models.Actor, req *models.CreateExpenditureRequest) (*models.ExpenditureResult, error)
	GetExpenditure(ctx context.Context, id string) (*models.Expenditure, error)

	// Asignaciones
	CreateAssignment(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (*models.AssignmentResult, error)
	GetAssignment(ctx context.Context, id string) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, actor models.Actor, id string, req *models.UpdateAssignmentRequest) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, actor models.Actor, id string) error

	// Transferencias
	CreateTransfer(ctx context.Context, actor models.Actor, req *models.CreateTransferRequest) (*models.TransferResult, error)
	UpdateTransferStatus(ctx context.Context, actor models.Actor, id string, status models.TransferStatus) (*models.TransferResult, error)
	GetTransfer(ctx context.Context, id string) (*models.Transfer, error)
}

// LedgerDeps dependencias del servicio. Cache y Metrics pueden ser nil.
type LedgerDeps struct {
	Assets       repository.AssetRepository
	Purchases    repository.PurchaseRepository
	Transfers    repository.TransferRepository
	Assignments  repository.AssignmentRepository
	Expenditures repository.ExpenditureRepository
	Ledger       repository.LedgerRepository
	Audit        AuditService
	Cache        *cache.ReportCache
	Metrics      *metrics.Ledger
	Logger       *zap.Logger
	MaxRetries   int
}

type ledgerService struct {
	assets       repository.AssetRepository
	purchases    repository.PurchaseRepository
	transfers    repository.TransferRepository
	assignments  repository.AssignmentRepository
	expenditures repository.ExpenditureRepository
	ledger       repository.LedgerRepository
	audit        AuditService
	cache        *cache.ReportCache
	metrics      *metrics.Ledger
	logger       *zap.Logger
	maxRetries   int
}

// NewLedgerService crea una nueva instancia del servicio
func NewLedgerService(deps LedgerDeps) LedgerService {
	maxRetries := deps.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ledgerService{
		assets:       deps.Assets,
		purchases:    deps.Purchases,
		transfers:    deps.Transfers,
		assignments:  deps.Assignments,
		expenditures: deps.Expenditures,
		ledger:       deps.Ledger,
		audit:        deps.Audit,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		maxRetries:   maxRetries,
	}
}

// withRetry repite lectura, verificación y escritura mientras la guarda de
// versión detecte una escritura concurrente.
func withRetry(ctx context.Context, maxRetries int, m *metrics.Ledger, logger *zap.Logger,
	operation, resource, resourceID string, fn func() error) error {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := fn()
		if !errors.Is(err, apperrors.ErrConcurrentModification) {
			return err
		}

		m.Retry(operation)
		logger.Warn("🔁 Escritura concurrente detectada, reintentando",
			zap.String("resource_id", resourceID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return &apperrors.ConflictError{Resource: resource, ID: resourceID, Attempts: maxRetries}
}

func (s *ledgerService) retry(ctx context.Context, logger *zap.Logger, operation, resource, resourceID string, fn func() error) error {
	return withRetry(ctx, s.maxRetries, s.metrics, logger, operation, resource, resourceID, fn)
}

// loadAsset devuelve NotFoundError si el activo no existe
func loadAsset(ctx context.Context, repo repository.AssetRepository, assetID string) (*models.Asset, error) {
	asset, err := repo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, &apperrors.NotFoundError{Resource: "Asset", ID: assetID}
	}
	return asset, nil
}

// invalidateReports descarta los reportes cacheados de las bases afectadas
func invalidateReports(ctx context.Context, rc *cache.ReportCache, logger *zap.Logger, baseIDs ...string) {
	if rc == nil {
		return
	}
	if err := rc.InvalidateBases(ctx, baseIDs...); err != nil {
		logger.Warn("⚠️ No se pudo invalidar el caché de reportes",
			zap.Error(err),
			zap.Strings("base_ids", baseIDs))
	}
}

func (s *ledgerService) invalidate(ctx context.Context, logger *zap.Logger, baseIDs ...string) {
	invalidateReports(ctx, s.cache, logger, baseIDs...)
}

func requireText(v *apperrors.ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, field+" is required")
	}
}

func requirePositive(v *apperrors.ValidationError, field string, value int) {
	if value < 1 {
		v.Add(field, field+" must be a positive integer")
	}
}
