package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"asset-ledger/internal/cache"
	"asset-ledger/internal/database"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	officer = models.Actor{UserID: "officer-1", Role: models.RoleLogisticsOfficer, BaseID: "BASE-A"}
	admin   = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

// recordingAudit guarda las entradas de forma síncrona para inspeccionarlas
type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entry *models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) Close(context.Context) error { return nil }
func (r *recordingAudit) Dropped() int64              { return 0 }

func (r *recordingAudit) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingAudit) last() *models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[len(r.entries)-1]
}

type fixture struct {
	store    *database.Store
	assets   repository.AssetRepository
	deps     LedgerDeps
	ledger   LedgerService
	assetSvc AssetService
	movement MovementService
	audit    *recordingAudit
	cache    *cache.ReportCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewTestDB(t)
	logger := zap.NewNop()

	assets, err := repository.NewAssetRepository(store.DB)
	require.NoError(t, err)
	purchases, err := repository.NewPurchaseRepository(store.DB)
	require.NoError(t, err)
	transfers, err := repository.NewTransferRepository(store.DB)
	require.NoError(t, err)
	assignments, err := repository.NewAssignmentRepository(store.DB)
	require.NoError(t, err)
	expenditures, err := repository.NewExpenditureRepository(store.DB)
	require.NoError(t, err)

	audit := &recordingAudit{}
	rc := cache.NewReportCache(nil, 100, time.Minute, logger)
	t.Cleanup(rc.Close)

	deps := LedgerDeps{
		Assets:       assets,
		Purchases:    purchases,
		Transfers:    transfers,
		Assignments:  assignments,
		Expenditures: expenditures,
		Ledger:       repository.NewLedgerRepository(store.DB),
		Audit:        audit,
		Cache:        rc,
		Logger:       logger,
		MaxRetries:   3,
	}

	return &fixture{
		store:    store,
		assets:   assets,
		deps:     deps,
		ledger:   NewLedgerService(deps),
		assetSvc: NewAssetService(assets, audit, rc, nil, logger, 3),
		movement: NewMovementService(repository.NewReportRepository(store.DB), rc, nil, logger),
		audit:    audit,
		cache:    rc,
	}
}

func (f *fixture) seedAsset(t *testing.T, id, base string, qty int) *models.Asset {
	t.Helper()
	asset, err := f.assetSvc.CreateAsset(context.Background(), admin, &models.CreateAssetRequest{
		AssetID:   id,
		Name:      "Asset " + id,
		Type:      models.AssetTypeAmmunition,
		Quantity:  qty,
		BaseID:    base,
		UnitPrice: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	return asset
}

func (f *fixture) reload(t *testing.T, id string) *models.Asset {
	t.Helper()
	asset, err := f.assets.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, asset)
	return asset
}
