package services

import (
	"context"
	"errors"
	"testing"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePurchaseComputesExactTotalCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "RIFLE-01", "BASE-A", 40)

	purchase, err := f.ledger.CreatePurchase(ctx, officer, &models.CreatePurchaseRequest{
		AssetID:   "RIFLE-01",
		BaseID:    "BASE-A",
		Quantity:  25,
		UnitPrice: decimal.RequireFromString("1200.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "30000.00", purchase.TotalCost.StringFixed(2))
	assert.True(t, purchase.TotalCost.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, models.PurchaseStatusDelivered, purchase.Status)
	assert.Equal(t, officer.UserID, purchase.CreatedBy)

	// Purchases never touch the asset balances
	asset := f.reload(t, "RIFLE-01")
	assert.Equal(t, 40, asset.ClosingBalance)
	assert.Equal(t, 0, asset.NetMovement)

	entry := f.audit.last()
	require.NotNil(t, entry)
	assert.Equal(t, models.AuditActionPurchase, entry.Action)
	assert.Nil(t, entry.OldValues)
	assert.NotEmpty(t, entry.NewValues)
}

func TestCreatePurchaseReportsEveryInvalidField(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreatePurchase(context.Background(), officer, &models.CreatePurchaseRequest{
		UnitPrice: decimal.NewFromInt(-1),
	})

	require.ErrorIs(t, err, apperrors.ErrValidation)
	fields := map[string]bool{}
	for _, fe := range apperrors.Fields(err) {
		fields[fe.Field] = true
	}
	assert.Equal(t, map[string]bool{"asset_id": true, "base_id": true, "quantity": true, "unit_price": true}, fields)
	assert.Empty(t, f.audit.actions())
}

func TestCreatePurchaseUnknownAsset(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreatePurchase(context.Background(), officer, &models.CreatePurchaseRequest{
		AssetID: "GHOST", BaseID: "BASE-A", Quantity: 1,
	})

	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdatePurchaseKeepsTotalCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "A-1", "BASE-A", 10)

	purchase, err := f.ledger.CreatePurchase(ctx, officer, &models.CreatePurchaseRequest{
		AssetID: "A-1", BaseID: "BASE-A", Quantity: 4, UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	qty := 8
	status := models.PurchaseStatusApproved
	updated, err := f.ledger.UpdatePurchase(ctx, officer, purchase.ID, &models.UpdatePurchaseRequest{
		Quantity: &qty, Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Quantity)
	assert.True(t, updated.TotalCost.Equal(decimal.NewFromInt(40)), "total cost is fixed at creation")

	stored, err := f.ledger.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusApproved, stored.Status)

	require.NoError(t, f.ledger.DeletePurchase(ctx, officer, purchase.ID))
	_, err = f.ledger.GetPurchase(ctx, purchase.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, []models.AuditAction{
		models.AuditActionAssetCreate, models.AuditActionPurchase, models.AuditActionUpdate, models.AuditActionDelete,
	}, f.audit.actions())
}

func TestCreateExpenditureCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "AMMO-9", "BASE-A", 5)

	// Missing asset wins over an invalid quantity
	_, err := f.ledger.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "GHOST", Quantity: 0, Reason: "training",
	})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	// Existing asset, invalid quantity
	_, err = f.ledger.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 0, Reason: "training",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Existing asset, quantity above balance
	_, err = f.ledger.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 8, Reason: "training",
	})
	var insufficient *apperrors.InsufficientStockError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, "Insufficient asset quantity. Available: 5, Requested: 8", err.Error())

	asset := f.reload(t, "AMMO-9")
	assert.Equal(t, 5, asset.ClosingBalance)
	assert.Equal(t, 1, asset.Version)
}

func TestCreateExpenditureRequiresReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateExpenditure(context.Background(), officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 1, Reason: "  ",
	})

	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Len(t, apperrors.Fields(err), 1)
	assert.Equal(t, "reason", apperrors.Fields(err)[0].Field)
}

func TestCreateExpenditureDeductsClosingBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "AMMO-9", "BASE-A", 100)

	result, err := f.ledger.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 10, Reason: "live fire exercise", Notes: "range 3",
	})
	require.NoError(t, err)

	assert.Equal(t, 90, result.Asset.ClosingBalance)
	assert.Equal(t, -10, result.Asset.NetMovement)
	assert.Equal(t, "BASE-A", result.Expenditure.BaseID)
	assert.Equal(t, officer.UserID, result.Expenditure.ExpendedBy)

	asset := f.reload(t, "AMMO-9")
	assert.Equal(t, 90, asset.ClosingBalance)
	assert.Equal(t, 100, asset.Quantity, "expenditures move closing balance only")
	assert.Equal(t, 100, asset.OpeningBalance)

	stored, err := f.ledger.GetExpenditure(ctx, result.Expenditure.ID)
	require.NoError(t, err)
	assert.Equal(t, "live fire exercise", stored.Reason)

	entry := f.audit.last()
	assert.Equal(t, models.AuditActionExpenditure, entry.Action)
	assert.Equal(t, "BASE-A", entry.BaseID)
}

func TestCreateAssignmentInsufficientLeavesAssetUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "RADIO-1", "BASE-A", 3)

	_, err := f.ledger.CreateAssignment(ctx, officer, &models.CreateAssignmentRequest{
		AssetID: "RADIO-1", PersonnelName: "Sgt. Rivera", Quantity: 4, BaseID: "BASE-A",
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	asset := f.reload(t, "RADIO-1")
	assert.Equal(t, 3, asset.ClosingBalance)
	assert.Equal(t, 0, asset.NetMovement)
}

func TestAssignmentEditsDoNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "RADIO-1", "BASE-A", 10)

	result, err := f.ledger.CreateAssignment(ctx, officer, &models.CreateAssignmentRequest{
		AssetID: "RADIO-1", PersonnelName: "Sgt. Rivera", Quantity: 4, BaseID: "BASE-A",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Asset.ClosingBalance)
	assert.Equal(t, -4, result.Asset.NetMovement)

	qty := 1
	updated, err := f.ledger.UpdateAssignment(ctx, officer, result.Assignment.ID, &models.UpdateAssignmentRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)

	require.NoError(t, f.ledger.DeleteAssignment(ctx, officer, result.Assignment.ID))
	_, err = f.ledger.GetAssignment(ctx, result.Assignment.ID)
	assert.True(t, apperrors.IsNotFound(err))

	asset := f.reload(t, "RADIO-1")
	assert.Equal(t, 6, asset.ClosingBalance)
	assert.Equal(t, -4, asset.NetMovement)
}

func TestTransferLifecycleMovesAssetToDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "TRUCK-7", "BASE-A", 100)

	created, err := f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "TRUCK-7", FromBaseID: "BASE-A", ToBaseID: "BASE-B", Quantity: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, created.Transfer.Status)
	assert.Equal(t, officer.UserID, created.Transfer.TransferredBy)

	asset := f.reload(t, "TRUCK-7")
	assert.Equal(t, 70, asset.Quantity)
	assert.Equal(t, -30, asset.NetMovement)
	assert.Equal(t, "BASE-A", asset.BaseID)

	completed, err := f.ledger.UpdateTransferStatus(ctx, officer, created.Transfer.ID, models.TransferStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.Asset)
	assert.Equal(t, models.TransferStatusCompleted, completed.Transfer.Status)

	asset = f.reload(t, "TRUCK-7")
	assert.Equal(t, 100, asset.Quantity)
	assert.Equal(t, 0, asset.NetMovement)
	assert.Equal(t, "BASE-B", asset.BaseID)

	entry := f.audit.last()
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.JSONEq(t, `{"status":"pending"}`, string(entry.OldValues))
	assert.JSONEq(t, `{"status":"completed"}`, string(entry.NewValues))
}

func TestCompletingTwiceAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "TRUCK-7", "BASE-A", 100)

	created, err := f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "TRUCK-7", FromBaseID: "BASE-A", ToBaseID: "BASE-B", Quantity: 30,
	})
	require.NoError(t, err)

	_, err = f.ledger.UpdateTransferStatus(ctx, officer, created.Transfer.ID, models.TransferStatusCompleted)
	require.NoError(t, err)
	again, err := f.ledger.UpdateTransferStatus(ctx, officer, created.Transfer.ID, models.TransferStatusCompleted)
	require.NoError(t, err)
	assert.Nil(t, again.Asset)

	asset := f.reload(t, "TRUCK-7")
	assert.Equal(t, 100, asset.Quantity)
	assert.Equal(t, 0, asset.NetMovement)
}

func TestCancelledTransferKeepsDeduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "TRUCK-7", "BASE-A", 100)

	created, err := f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "TRUCK-7", FromBaseID: "BASE-A", ToBaseID: "BASE-B", Quantity: 30,
	})
	require.NoError(t, err)

	for _, status := range []models.TransferStatus{models.TransferStatusApproved, models.TransferStatusInTransit, models.TransferStatusCancelled} {
		result, err := f.ledger.UpdateTransferStatus(ctx, officer, created.Transfer.ID, status)
		require.NoError(t, err)
		assert.Nil(t, result.Asset)
	}

	stored, err := f.ledger.GetTransfer(ctx, created.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCancelled, stored.Status)

	asset := f.reload(t, "TRUCK-7")
	assert.Equal(t, 70, asset.Quantity)
	assert.Equal(t, -30, asset.NetMovement)
	assert.Equal(t, "BASE-A", asset.BaseID)
}

func TestCreateTransferRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "TRUCK-7", "BASE-A", 10)

	_, err := f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "TRUCK-7", FromBaseID: "BASE-C", ToBaseID: "BASE-B", Quantity: 1,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "asset doesn't belong to the specified source base", apperrors.Fields(err)[0].Message)

	_, err = f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "TRUCK-7", FromBaseID: "BASE-A", ToBaseID: "BASE-B", Quantity: 11,
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	_, err = f.ledger.CreateTransfer(ctx, officer, &models.CreateTransferRequest{
		AssetID: "GHOST", FromBaseID: "BASE-A", ToBaseID: "BASE-B", Quantity: 1,
	})
	assert.True(t, apperrors.IsNotFound(err))

	asset := f.reload(t, "TRUCK-7")
	assert.Equal(t, 10, asset.Quantity)
	assert.Equal(t, 0, asset.NetMovement)
}

func TestUpdateTransferStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.UpdateTransferStatus(ctx, officer, "missing", models.TransferStatusCompleted)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.ledger.UpdateTransferStatus(ctx, officer, "missing", models.TransferStatus("lost"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestClosingBalanceNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "AMMO-9", "BASE-A", 12)

	for i := 0; i < 6; i++ {
		_, _ = f.ledger.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
			AssetID: "AMMO-9", Quantity: 5, Reason: "drill",
		})
		_, _ = f.ledger.CreateAssignment(ctx, officer, &models.CreateAssignmentRequest{
			AssetID: "AMMO-9", PersonnelName: "Cpl. Diaz", Quantity: 1, BaseID: "BASE-A",
		})
		assert.GreaterOrEqual(t, f.reload(t, "AMMO-9").ClosingBalance, 0)
	}
	assert.Equal(t, 0, f.reload(t, "AMMO-9").ClosingBalance)
}

// conflictingLedger simula escritores concurrentes que ganan las primeras n escrituras
type conflictingLedger struct {
	repository.LedgerRepository
	conflicts int
	calls     int
}

func (c *conflictingLedger) ApplyExpenditure(ctx context.Context, asset *models.Asset, expectedVersion int, e *models.Expenditure) error {
	c.calls++
	if c.calls <= c.conflicts {
		return apperrors.ErrConcurrentModification
	}
	return c.LedgerRepository.ApplyExpenditure(ctx, asset, expectedVersion, e)
}

func TestExpenditureRetriesOnConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "AMMO-9", "BASE-A", 20)

	fake := &conflictingLedger{LedgerRepository: f.deps.Ledger, conflicts: 2}
	deps := f.deps
	deps.Ledger = fake
	svc := NewLedgerService(deps)

	result, err := svc.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 5, Reason: "drill",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, 15, result.Asset.ClosingBalance)
}

func TestExpenditureGivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAsset(t, "AMMO-9", "BASE-A", 20)

	fake := &conflictingLedger{LedgerRepository: f.deps.Ledger, conflicts: 100}
	deps := f.deps
	deps.Ledger = fake
	svc := NewLedgerService(deps)

	_, err := svc.CreateExpenditure(ctx, officer, &models.CreateExpenditureRequest{
		AssetID: "AMMO-9", Quantity: 5, Reason: "drill",
	})

	var conflict *apperrors.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, 3, conflict.Attempts)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	assert.Equal(t, 20, f.reload(t, "AMMO-9").ClosingBalance)
}
