package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/database"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepos struct {
	assets      AssetRepository
	purchases   PurchaseRepository
	transfers   TransferRepository
	assignments AssignmentRepository
	expends     ExpenditureRepository
	ledger      LedgerRepository
	reports     ReportRepository
	audit       AuditRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	store := database.NewTestDB(t)

	assets, err := NewAssetRepository(store.DB)
	require.NoError(t, err)
	purchases, err := NewPurchaseRepository(store.DB)
	require.NoError(t, err)
	transfers, err := NewTransferRepository(store.DB)
	require.NoError(t, err)
	assignments, err := NewAssignmentRepository(store.DB)
	require.NoError(t, err)
	expends, err := NewExpenditureRepository(store.DB)
	require.NoError(t, err)
	audit, err := NewAuditRepository(store.DB)
	require.NoError(t, err)

	return testRepos{
		assets:      assets,
		purchases:   purchases,
		transfers:   transfers,
		assignments: assignments,
		expends:     expends,
		ledger:      NewLedgerRepository(store.DB),
		reports:     NewReportRepository(store.DB),
		audit:       audit,
	}
}

func seedAsset(t *testing.T, repos testRepos, id, base string, qty int) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		AssetID:        id,
		Name:           "Rifle " + id,
		Type:           models.AssetTypeWeapon,
		Quantity:       qty,
		OpeningBalance: qty,
		ClosingBalance: qty,
		UnitPrice:      decimal.RequireFromString("1200.00"),
		BaseID:         base,
		Status:         models.AssetStatusAvailable,
	}
	require.NoError(t, repos.assets.Create(context.Background(), asset))
	return asset
}

func TestAssetCreateAndGet(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedAsset(t, repos, "RIFLE-01", "BASE-A", 100)

	got, err := repos.assets.GetByID(ctx, "RIFLE-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100, got.ClosingBalance)
	assert.Equal(t, 1, got.Version)
	assert.True(t, decimal.RequireFromString("1200").Equal(got.UnitPrice))

	missing, err := repos.assets.GetByID(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAssetCreateDuplicateKey(t *testing.T) {
	repos := newTestRepos(t)
	seedAsset(t, repos, "RIFLE-01", "BASE-A", 10)

	err := repos.assets.Create(context.Background(), &models.Asset{
		AssetID: "RIFLE-01", Name: "dup", Type: models.AssetTypeWeapon, BaseID: "BASE-B",
		Status: models.AssetStatusAvailable,
	})

	var dup *apperrors.DuplicateKeyError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "asset_id", dup.Field)
	assert.Equal(t, "RIFLE-01", dup.Value)
}

func TestUpdateBalancesRejectsStaleVersion(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	asset := seedAsset(t, repos, "A-1", "BASE-A", 50)

	// GIVEN two readers holding version 1
	first := *asset
	second := *asset

	// WHEN the first write succeeds
	first.ClosingBalance = 40
	require.NoError(t, repos.assets.UpdateBalances(ctx, &first, 1))
	assert.Equal(t, 2, first.Version)

	// THEN the second write with the stale version is rejected
	second.ClosingBalance = 30
	err := repos.assets.UpdateBalances(ctx, &second, 1)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

	got, err := repos.assets.GetByID(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.ClosingBalance)
}

func TestApplyExpenditureRollsBackOnConflict(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	asset := seedAsset(t, repos, "A-1", "BASE-A", 50)

	stale := *asset
	stale.ClosingBalance = 45
	exp := &models.Expenditure{
		ID: uuid.NewString(), AssetID: "A-1", BaseID: "BASE-A", Quantity: 5,
		ExpendedBy: "u1", Reason: "training",
	}

	err := repos.ledger.ApplyExpenditure(ctx, &stale, 7, exp)
	require.ErrorIs(t, err, apperrors.ErrConcurrentModification)
	assert.Equal(t, 1, stale.Version, "asset must be untouched after rollback")

	got, err := repos.expends.GetByID(ctx, exp.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expenditure must not be persisted when the asset write fails")
}

func TestApplyTransferCompletionGuardsStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	asset := seedAsset(t, repos, "A-1", "BASE-A", 100)

	asset.Quantity -= 30
	asset.NetMovement -= 30
	transfer := &models.Transfer{
		ID: uuid.NewString(), AssetID: "A-1", FromBaseID: "BASE-A", ToBaseID: "BASE-B",
		Quantity: 30, TransferredBy: "u1", Status: models.TransferStatusPending,
	}
	require.NoError(t, repos.ledger.ApplyTransferOut(ctx, asset, 1, transfer))

	asset.Quantity += 30
	asset.NetMovement += 30
	asset.BaseID = "BASE-B"
	transfer.Status = models.TransferStatusCompleted
	require.NoError(t, repos.ledger.ApplyTransferCompletion(ctx, asset, 2, transfer, models.TransferStatusPending))

	// A second completion from the stale "pending" status finds no row
	again := *transfer
	err := repos.ledger.ApplyTransferCompletion(ctx, asset, asset.Version, &again, models.TransferStatusPending)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

	got, err := repos.assets.GetByID(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Quantity)
	assert.Equal(t, 0, got.NetMovement)
	assert.Equal(t, "BASE-B", got.BaseID)
}

func TestReportSumsAndCounts(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedAsset(t, repos, "A-1", "BASE-A", 100)

	for _, p := range []struct {
		qty    int
		status models.PurchaseStatus
	}{{10, models.PurchaseStatusDelivered}, {5, models.PurchaseStatusDelivered}, {7, models.PurchaseStatusPending}} {
		require.NoError(t, repos.purchases.Create(ctx, &models.Purchase{
			ID: uuid.NewString(), AssetID: "A-1", BaseID: "BASE-A", Quantity: p.qty,
			UnitPrice: decimal.NewFromInt(1), TotalCost: decimal.NewFromInt(int64(p.qty)), Status: p.status,
		}))
	}

	filter := models.MovementFilter{BaseID: "BASE-A"}
	sum, err := repos.reports.SumDeliveredPurchases(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 15, sum)

	count, err := repos.reports.CountPurchases(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	future := time.Now().Add(24 * time.Hour)
	count, err = repos.reports.CountPurchases(ctx, models.MovementFilter{BaseID: "BASE-A", StartDate: &future})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	empty, err := repos.reports.SumCompletedTransfersIn(ctx, models.MovementFilter{BaseID: "BASE-Z"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty)
}

func TestAuditInsertAndList(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	entry := &models.AuditLog{
		ID: uuid.NewString(), UserID: "u1", Action: models.AuditActionPurchase,
		ResourceType: models.ResourcePurchase, ResourceID: "P-1",
		NewValues: []byte(`{"quantity":25}`), BaseID: "BASE-A", Timestamp: time.Now().UTC(),
	}
	require.NoError(t, repos.audit.Insert(ctx, entry))

	entries, err := repos.audit.ListByResource(ctx, models.ResourcePurchase, "P-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"quantity":25}`, string(entries[0].NewValues))
	assert.Empty(t, entries[0].OldValues)
}

func TestSQLiteUniqueField(t *testing.T) {
	assert.Equal(t, "asset_id", sqliteUniqueField("constraint failed: UNIQUE constraint failed: assets.asset_id (1555)"))
	assert.Equal(t, "id", constraintField("purchases_pkey"))
	assert.Equal(t, "asset_id", constraintField("assets_asset_id_key"))
}

func TestCompletedTransfersCountWhenCompleted(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	asset := seedAsset(t, repos, "A-1", "BASE-A", 100)

	created := time.Now().UTC().Add(-72 * time.Hour)
	asset.Quantity -= 30
	transfer := &models.Transfer{
		ID: uuid.NewString(), AssetID: "A-1", FromBaseID: "BASE-A", ToBaseID: "BASE-B",
		Quantity: 30, TransferredBy: "u1", Status: models.TransferStatusPending, TransferDate: created,
	}
	require.NoError(t, repos.ledger.ApplyTransferOut(ctx, asset, 1, transfer))

	pending, err := repos.transfers.GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Nil(t, pending.CompletedAt)

	asset.Quantity += 30
	asset.BaseID = "BASE-B"
	transfer.Status = models.TransferStatusCompleted
	require.NoError(t, repos.ledger.ApplyTransferCompletion(ctx, asset, 2, transfer, models.TransferStatusPending))

	done, err := repos.transfers.GetByID(ctx, transfer.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.WithinDuration(t, time.Now(), *done.CompletedAt, time.Minute)
	assert.WithinDuration(t, created, done.TransferDate, time.Second)

	lastHour := time.Now().Add(-time.Hour)
	nextHour := time.Now().Add(time.Hour)
	window := models.MovementFilter{BaseID: "BASE-B", StartDate: &lastHour, EndDate: &nextHour}
	in, err := repos.reports.SumCompletedTransfersIn(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 30, in)

	window.BaseID = "BASE-A"
	out, err := repos.reports.SumCompletedTransfersOut(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 30, out)

	// The day the transfer was requested it had not moved yet
	dayStart, dayEnd := created.Add(-time.Hour), created.Add(time.Hour)
	in, err = repos.reports.SumCompletedTransfersIn(ctx, models.MovementFilter{BaseID: "BASE-B", StartDate: &dayStart, EndDate: &dayEnd})
	require.NoError(t, err)
	assert.Equal(t, 0, in)

	// Pending counts still use the request date
	pendingCount, err := repos.reports.CountPendingTransfers(ctx, models.MovementFilter{BaseID: "BASE-A"})
	require.NoError(t, err)
	assert.Equal(t, 0, pendingCount)
}

func TestListMovementRecordsJoinsAsset(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedAsset(t, repos, "A-1", "BASE-A", 100)

	for _, p := range []struct {
		qty    int
		status models.PurchaseStatus
	}{{10, models.PurchaseStatusDelivered}, {7, models.PurchaseStatusPending}} {
		require.NoError(t, repos.purchases.Create(ctx, &models.Purchase{
			ID: uuid.NewString(), AssetID: "A-1", BaseID: "BASE-A", Quantity: p.qty,
			UnitPrice: decimal.NewFromInt(1), TotalCost: decimal.NewFromInt(int64(p.qty)), Status: p.status,
		}))
	}

	records, err := repos.reports.ListDeliveredPurchases(ctx, models.MovementFilter{BaseID: "BASE-A"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Rifle A-1", records[0].AssetName)
	assert.Equal(t, models.AssetTypeWeapon, records[0].AssetType)
	assert.Equal(t, "BASE-A", records[0].ToBaseID)
	assert.Empty(t, records[0].FromBaseID)
	assert.Equal(t, 10, records[0].Quantity)
	assert.Equal(t, string(models.PurchaseStatusDelivered), records[0].Status)

	none, err := repos.reports.ListCompletedTransfersIn(ctx, models.MovementFilter{BaseID: "BASE-A"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
