package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-ledger/internal/audit"
	"asset-ledger/internal/cache"
	"asset-ledger/internal/database"
	"asset-ledger/internal/middleware"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	officer = models.Actor{UserID: "officer-1", Role: models.RoleLogisticsOfficer, BaseID: "BASE-A"}
	admin   = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	Errors    []fieldError    `json:"errors"`
	Data      json.RawMessage `json:"data"`
	Available *int            `json:"available"`
	Requested *int            `json:"requested"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type testServer struct {
	store    *database.Store
	auditSvc services.AuditService
	cache    *cache.ReportCache
	ledger   *LedgerHandler
	assets   *AssetHandler
	reports  *ReportHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := database.NewTestDB(t)
	logger := zap.NewNop()

	assetRepo, err := repository.NewAssetRepository(store.DB)
	require.NoError(t, err)
	purchases, err := repository.NewPurchaseRepository(store.DB)
	require.NoError(t, err)
	transfers, err := repository.NewTransferRepository(store.DB)
	require.NoError(t, err)
	assignments, err := repository.NewAssignmentRepository(store.DB)
	require.NoError(t, err)
	expenditures, err := repository.NewExpenditureRepository(store.DB)
	require.NoError(t, err)
	auditRepo, err := repository.NewAuditRepository(store.DB)
	require.NoError(t, err)

	auditSvc := services.NewAuditService(audit.NewDatabaseSink(auditRepo), 64, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = auditSvc.Close(ctx)
	})

	rc := cache.NewReportCache(nil, 100, time.Minute, logger)
	t.Cleanup(rc.Close)

	ledger := services.NewLedgerService(services.LedgerDeps{
		Assets:       assetRepo,
		Purchases:    purchases,
		Transfers:    transfers,
		Assignments:  assignments,
		Expenditures: expenditures,
		Ledger:       repository.NewLedgerRepository(store.DB),
		Audit:        auditSvc,
		Cache:        rc,
		Logger:       logger,
		MaxRetries:   3,
	})

	movement := services.NewMovementService(repository.NewReportRepository(store.DB), rc, nil, logger)
	assets := services.NewAssetService(assetRepo, auditSvc, rc, nil, logger, 3)

	return &testServer{
		store:    store,
		auditSvc: auditSvc,
		cache:    rc,
		ledger:   NewLedgerHandler(ledger, logger),
		assets:   NewAssetHandler(assets, logger),
		reports:  NewReportHandler(movement, auditRepo, time.Second, logger),
	}
}

// router registra las rutas con el actor dado; un actor vacío simula un request sin autenticar
func (s *testServer) router(actor models.Actor) *gin.Engine {
	r := gin.New()
	if actor.UserID != "" {
		r.Use(func(c *gin.Context) {
			middleware.SetActor(c, actor)
			c.Next()
		})
	}

	v1 := r.Group("/api/v1")
	v1.POST("/assets", s.assets.CreateAsset)
	v1.GET("/assets/:id", s.assets.GetAsset)
	v1.PATCH("/assets/:id", s.assets.UpdateAssetDetails)
	v1.POST("/assets/:id/corrections", s.assets.CorrectAssetBalance)
	v1.POST("/purchases", s.ledger.CreatePurchase)
	v1.GET("/purchases/:id", s.ledger.GetPurchase)
	v1.PUT("/purchases/:id", s.ledger.UpdatePurchase)
	v1.DELETE("/purchases/:id", s.ledger.DeletePurchase)
	v1.POST("/expenditures", s.ledger.CreateExpenditure)
	v1.POST("/assignments", s.ledger.CreateAssignment)
	v1.POST("/transfers", s.ledger.CreateTransfer)
	v1.GET("/transfers/:id", s.ledger.GetTransfer)
	v1.PATCH("/transfers/:id/status", s.ledger.UpdateTransferStatus)
	v1.GET("/dashboard/net-movement", s.reports.GetNetMovement)
	v1.GET("/dashboard/metrics", s.reports.GetDashboardMetrics)
	v1.GET("/dashboard/ws", s.reports.DashboardStream)
	v1.GET("/audit/:resource_type/:id", s.reports.GetResourceHistory)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) seedAsset(t *testing.T, id, base string, qty int) {
	t.Helper()
	code, env := do(t, s.router(admin), http.MethodPost, "/api/v1/assets", gin.H{
		"asset_id": id, "name": "Asset " + id, "type": "ammunition",
		"quantity": qty, "base_id": base, "unit_price": "12.50",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
}

func fieldNames(errs []fieldError) []string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}
