package routes

import (
	"net/http"

	"asset-ledger/internal/handlers"
	"asset-ledger/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configura todas las rutas de la aplicación. auth protege todo /api/v1.
func SetupRoutes(
	router *gin.Engine,
	auth gin.HandlerFunc,
	assetHandler *handlers.AssetHandler,
	ledgerHandler *handlers.LedgerHandler,
	reportHandler *handlers.ReportHandler,
	monitoringHandler *handlers.MonitoringHandler,
	healthChecker *middleware.HealthChecker,
	prometheusHandler http.Handler,
) {
	v1 := router.Group("/api/v1", auth)
	{
		assets := v1.Group("/assets")
		{
			assets.POST("", assetHandler.CreateAsset)
			assets.GET("/:id", assetHandler.GetAsset)
			assets.PATCH("/:id", assetHandler.UpdateAssetDetails)
			assets.POST("/:id/corrections", assetHandler.CorrectAssetBalance)
		}

		purchases := v1.Group("/purchases")
		{
			purchases.POST("", ledgerHandler.CreatePurchase)
			purchases.GET("/:id", ledgerHandler.GetPurchase)
			purchases.PUT("/:id", ledgerHandler.UpdatePurchase)
			purchases.DELETE("/:id", ledgerHandler.DeletePurchase)
		}

		expenditures := v1.Group("/expenditures")
		{
			expenditures.POST("", ledgerHandler.CreateExpenditure)
			expenditures.GET("/:id", ledgerHandler.GetExpenditure)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.POST("", ledgerHandler.CreateAssignment)
			assignments.GET("/:id", ledgerHandler.GetAssignment)
			assignments.PUT("/:id", ledgerHandler.UpdateAssignment)
			assignments.DELETE("/:id", ledgerHandler.DeleteAssignment)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", ledgerHandler.CreateTransfer)
			transfers.GET("/:id", ledgerHandler.GetTransfer)
			transfers.PATCH("/:id/status", ledgerHandler.UpdateTransferStatus)
		}

		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/net-movement", reportHandler.GetNetMovement)
			dashboard.GET("/metrics", reportHandler.GetDashboardMetrics)
			dashboard.GET("/ws", reportHandler.DashboardStream)
		}

		v1.GET("/audit/:resource_type/:id", reportHandler.GetResourceHistory)

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", monitoringHandler.GetMetrics)
			monitoring.GET("/metrics/summary", monitoringHandler.GetMetricsSummary)
			monitoring.GET("/ws", monitoringHandler.WebSocketMetrics)
		}
	}

	router.GET("/health", healthChecker.HealthCheck)
	router.GET("/metrics", gin.WrapH(prometheusHandler))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Asset Ledger API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health":  "/health",
				"metrics": "/metrics",
				"api":     "/api/v1",
				"ledger": gin.H{
					"purchases":       "POST /api/v1/purchases",
					"expenditures":    "POST /api/v1/expenditures",
					"assignments":     "POST /api/v1/assignments",
					"transfers":       "POST /api/v1/transfers",
					"transfer_status": "PATCH /api/v1/transfers/:id/status",
				},
				"dashboard": gin.H{
					"net_movement": "GET /api/v1/dashboard/net-movement",
					"metrics":      "GET /api/v1/dashboard/metrics",
					"stream":       "GET /api/v1/dashboard/ws",
				},
			},
		})
	})
}
