package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// AlertQueries 报警查询/处理接口（由 repository.AlertsRepository 实现）
type AlertQueries interface {
	GetActiveAlerts(ctx context.Context, subjectID int64) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, subjectID int64, alertID int64) (int64, error)
}

// AlertsHandler 报警 Handler
type AlertsHandler struct {
	alerts    AlertQueries
	gate      Gate
	subjectID int64
	logger    *zap.Logger
}

// NewAlertsHandler 创建报警 Handler
func NewAlertsHandler(alerts AlertQueries, gate Gate, subjectID int64, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		alerts:    alerts,
		gate:      gate,
		subjectID: subjectID,
		logger:    logger,
	}
}

// GetActive 未解决报警列表（按时间降序）
func (h *AlertsHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	alerts, err := h.alerts.GetActiveAlerts(r.Context(), h.subjectID)
	if err != nil {
		h.logger.Error("Failed to fetch active alerts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch active alerts")
		return
	}

	writeJSON(w, http.StatusOK, alerts)
}

// Resolve 将报警标记为已解决
// 路径格式：/api/v1/alerts/{id}/resolve
// 0行受影响（不存在或已解决）→ 404；重复resolve不会产生第二次状态转换
func (h *AlertsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/"), "/resolve")
	alertID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || alertID <= 0 {
		writeMessage(w, http.StatusNotFound, "Alert not found")
		return
	}

	rows, err := h.alerts.ResolveAlert(r.Context(), h.subjectID, alertID)
	if err != nil {
		h.logger.Error("Failed to resolve alert",
			zap.Int64("alert_id", alertID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to resolve alert")
		return
	}

	if rows == 0 {
		writeMessage(w, http.StatusNotFound, "Alert not found")
		return
	}

	writeMessage(w, http.StatusOK, "Alert resolved successfully")
}
