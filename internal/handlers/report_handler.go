package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	dateOnlyLayout = "2006-01-02"
	pongWait       = 60 * time.Second
)

// ReportHandler movimiento neto, dashboard y bitácora por recurso
type ReportHandler struct {
	movement     services.MovementService
	history      repository.AuditRepository
	pushInterval time.Duration
	logger       *zap.Logger
}

// NewReportHandler history puede ser nil si la auditoría no se guarda en base de datos
func NewReportHandler(movement services.MovementService, history repository.AuditRepository, pushInterval time.Duration, logger *zap.Logger) *ReportHandler {
	if pushInterval <= 0 {
		pushInterval = 10 * time.Second
	}
	return &ReportHandler{
		movement:     movement,
		history:      history,
		pushInterval: pushInterval,
		logger:       logger,
	}
}

// GetNetMovement usa ?base_id= o, si no viene, la base del actor.
// Con ?detail=true incluye las compras y transferencias que componen cada total.
func (h *ReportHandler) GetNetMovement(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_net_movement")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	detail, err := strconv.ParseBool(c.DefaultQuery("detail", "false"))
	if err != nil {
		respondError(c, logger, "Parámetro detail inválido",
			apperrors.NewValidationError("detail", "detail must be true or false"))
		return
	}

	baseID := c.DefaultQuery("base_id", actor.BaseID)
	if detail {
		h.getNetMovementDetail(c, logger, baseID)
		return
	}

	result, err := h.movement.GetNetMovement(c.Request.Context(), baseID)
	if err != nil {
		respondError(c, logger, "Error calculando el movimiento neto", err)
		return
	}

	logger.Debug("🔍 [DEBUG] Movimiento neto calculado",
		zap.String("base_id", baseID),
		zap.Int("net_movement", result.NetMovement))

	respondSuccess(c, http.StatusOK, "Movimiento neto obtenido", result)
}

func (h *ReportHandler) getNetMovementDetail(c *gin.Context, logger *zap.Logger, baseID string) {
	filter, err := parseMovementFilter(c)
	if err != nil {
		respondError(c, logger, "Parámetros de fecha inválidos", err)
		return
	}
	filter.BaseID = baseID

	result, err := h.movement.GetNetMovementDetail(c.Request.Context(), filter)
	if err != nil {
		respondError(c, logger, "Error obteniendo el detalle del movimiento neto", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Detalle del movimiento neto obtenido", result)
}

func (h *ReportHandler) GetDashboardMetrics(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_dashboard_metrics")

	filter, err := parseMovementFilter(c)
	if err != nil {
		respondError(c, logger, "Parámetros de fecha inválidos", err)
		return
	}

	metrics, err := h.movement.GetDashboardMetrics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, logger, "Error obteniendo métricas del dashboard", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Métricas del dashboard obtenidas", metrics)
}

// GetResourceHistory devuelve la bitácora de un recurso en orden cronológico
func (h *ReportHandler) GetResourceHistory(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_resource_history")

	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"success": false,
			"message": "❌ La bitácora no se almacena en base de datos",
			"error":   "audit history unavailable",
		})
		return
	}

	resourceType := models.ResourceType(c.Param("resource_type"))
	if !resourceType.IsValid() {
		respondError(c, logger, "Tipo de recurso inválido",
			apperrors.NewValidationError("resource_type", "unknown resource type: "+string(resourceType)))
		return
	}

	entries, err := h.history.ListByResource(c.Request.Context(), resourceType, c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo la bitácora", err)
		return
	}
	if entries == nil {
		entries = []*models.AuditLog{}
	}

	respondSuccess(c, http.StatusOK, "Bitácora obtenida", gin.H{
		"resource_type": resourceType,
		"resource_id":   c.Param("id"),
		"entries":       entries,
		"total":         len(entries),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // El origen lo controla el middleware CORS
	},
}

// DashboardStream envía las métricas del dashboard por WebSocket en cada intervalo
func (h *ReportHandler) DashboardStream(c *gin.Context) {
	logger := requestLogger(h.logger, c, "dashboard_stream")

	filter, err := parseMovementFilter(c)
	if err != nil {
		respondError(c, logger, "Parámetros de fecha inválidos", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("❌ Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("ℹ️ Conexión WebSocket establecida", zap.String("base_id", filter.BaseID))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// El cliente no envía datos; leer es necesario para procesar pong y close
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	send := func() bool {
		metrics, err := h.movement.GetDashboardMetrics(ctx, filter)
		if err != nil {
			logger.Error("❌ Error calculando métricas para WebSocket", zap.Error(err))
			return conn.WriteJSON(gin.H{"success": false, "error": err.Error()}) == nil
		}
		if err := conn.WriteJSON(metrics); err != nil {
			logger.Warn("⚠️ Error enviando métricas por WebSocket", zap.Error(err))
			return false
		}
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)) == nil
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !send() {
				return
			}
		case <-ctx.Done():
			logger.Info("ℹ️ Conexión WebSocket cerrada")
			return
		}
	}
}

// parseMovementFilter lee base_id, start_date y end_date. Las fechas aceptan
// RFC3339 o YYYY-MM-DD; end_date sin hora cubre el día completo.
func parseMovementFilter(c *gin.Context) (models.MovementFilter, error) {
	filter := models.MovementFilter{BaseID: c.Query("base_id")}
	v := &apperrors.ValidationError{}

	start, err := parseDateParam(c.Query("start_date"), false)
	if err != nil {
		v.Add("start_date", "start_date must be RFC3339 or YYYY-MM-DD")
	}
	end, err := parseDateParam(c.Query("end_date"), true)
	if err != nil {
		v.Add("end_date", "end_date must be RFC3339 or YYYY-MM-DD")
	}
	if err := v.OrNil(); err != nil {
		return filter, err
	}

	filter.StartDate = start
	filter.EndDate = end
	return filter, nil
}

func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
