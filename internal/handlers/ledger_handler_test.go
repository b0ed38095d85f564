package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"asset-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePurchaseHandler(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "RIFLE-01", "BASE-A", 10)
	r := s.router(officer)

	code, env := do(t, r, http.MethodPost, "/api/v1/purchases", gin.H{
		"asset_id": "RIFLE-01", "base_id": "BASE-A", "quantity": 25, "unit_price": "1200.00",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.True(t, env.Success)

	var purchase models.Purchase
	require.NoError(t, json.Unmarshal(env.Data, &purchase))
	assert.True(t, decimal.RequireFromString("30000").Equal(purchase.TotalCost), purchase.TotalCost.String())
	assert.Equal(t, models.PurchaseStatusDelivered, purchase.Status)
	assert.Equal(t, officer.UserID, purchase.CreatedBy)

	code, env = do(t, r, http.MethodGet, "/api/v1/purchases/"+purchase.ID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodDelete, "/api/v1/purchases/"+purchase.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, "/api/v1/purchases/"+purchase.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatePurchaseHandlerEnumeratesInvalidFields(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s.router(officer), http.MethodPost, "/api/v1/purchases", gin.H{"quantity": 0})

	require.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.ElementsMatch(t, []string{"asset_id", "base_id", "quantity"}, fieldNames(env.Errors))
}

func TestMalformedBodyIsRejected(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s.router(officer), http.MethodPost, "/api/v1/transfers", `{"asset_id": `)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "❌ Error en el formato de datos", env.Message)
}

func TestMissingActorIsUnauthorized(t *testing.T) {
	s := newTestServer(t)

	code, _ := do(t, s.router(models.Actor{}), http.MethodPost, "/api/v1/purchases", gin.H{
		"asset_id": "X", "base_id": "BASE-A", "quantity": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestExpenditureInsufficientStockHandler(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "AMMO-9", "BASE-A", 5)

	code, env := do(t, s.router(officer), http.MethodPost, "/api/v1/expenditures", gin.H{
		"asset_id": "AMMO-9", "quantity": 8, "reason": "training",
	})

	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Insufficient asset quantity. Available: 5, Requested: 8", env.Error)
	require.NotNil(t, env.Available)
	assert.Equal(t, 5, *env.Available)
	assert.Equal(t, 8, *env.Requested)
}

func TestExpenditureUsesActorAsExpender(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "AMMO-9", "BASE-A", 5)

	code, env := do(t, s.router(officer), http.MethodPost, "/api/v1/expenditures", gin.H{
		"asset_id": "AMMO-9", "quantity": 2, "reason": "training", "expended_by": "someone-else",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	var result models.ExpenditureResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, officer.UserID, result.Expenditure.ExpendedBy)
	assert.Equal(t, 3, result.Asset.ClosingBalance)
}

func TestTransferLifecycleHandler(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "TRUCK-1", "BASE-A", 100)
	r := s.router(officer)

	code, env := do(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"asset_id": "TRUCK-1", "from_base_id": "BASE-A", "to_base_id": "BASE-B", "quantity": 30,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created models.TransferResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.TransferStatusPending, created.Transfer.Status)
	require.NotNil(t, created.Asset)
	assert.Equal(t, 70, created.Asset.Quantity)

	statusPath := "/api/v1/transfers/" + created.Transfer.ID + "/status"

	code, env = do(t, r, http.MethodPatch, statusPath, gin.H{"status": "lost"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"status"}, fieldNames(env.Errors))

	code, env = do(t, r, http.MethodPatch, statusPath, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, code, env.Error)

	var completed models.TransferResult
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.Equal(t, models.TransferStatusCompleted, completed.Transfer.Status)
	require.NotNil(t, completed.Asset)
	assert.Equal(t, 100, completed.Asset.Quantity)
	assert.Equal(t, "BASE-B", completed.Asset.BaseID)

	code, _ = do(t, r, http.MethodGet, "/api/v1/transfers/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTransferFromWrongBaseHandler(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "TRUCK-1", "BASE-A", 100)

	code, env := do(t, s.router(officer), http.MethodPost, "/api/v1/transfers", gin.H{
		"asset_id": "TRUCK-1", "from_base_id": "BASE-C", "to_base_id": "BASE-B", "quantity": 1,
	})

	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []string{"from_base_id"}, fieldNames(env.Errors))
}

func TestResourceHistoryHandler(t *testing.T) {
	s := newTestServer(t)
	s.seedAsset(t, "RADIO-1", "BASE-A", 9)
	r := s.router(officer)

	code, env := do(t, r, http.MethodPatch, "/api/v1/assets/RADIO-1", gin.H{"name": "Field radio"})
	require.Equal(t, http.StatusOK, code, env.Error)

	// Close vacía el buffer de auditoría antes de consultar la bitácora
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.auditSvc.Close(ctx))

	code, env = do(t, r, http.MethodGet, "/api/v1/audit/asset/RADIO-1", nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	var history struct {
		Entries []models.AuditLog `json:"entries"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Equal(t, 2, history.Total)
	actions := []models.AuditAction{history.Entries[0].Action, history.Entries[1].Action}
	assert.ElementsMatch(t, []models.AuditAction{models.AuditActionAssetCreate, models.AuditActionUpdate}, actions)

	code, _ = do(t, r, http.MethodGet, "/api/v1/audit/tank/RADIO-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
