package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// ThresholdQueries 阈值查询/更新接口（由 repository.ThresholdsRepository 实现）
type ThresholdQueries interface {
	ListThresholds(ctx context.Context, subjectID int64) ([]models.Threshold, error)
	UpdateThreshold(ctx context.Context, subjectID int64, name string, value float64) (int64, error)
}

// ThresholdsHandler 阈值 Handler
type ThresholdsHandler struct {
	thresholds ThresholdQueries
	gate       Gate
	subjectID  int64
	logger     *zap.Logger
}

// NewThresholdsHandler 创建阈值 Handler
func NewThresholdsHandler(thresholds ThresholdQueries, gate Gate, subjectID int64, logger *zap.Logger) *ThresholdsHandler {
	return &ThresholdsHandler{
		thresholds: thresholds,
		gate:       gate,
		subjectID:  subjectID,
		logger:     logger,
	}
}

// List 当前所有阈值
func (h *ThresholdsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	thresholds, err := h.thresholds.ListThresholds(r.Context(), h.subjectID)
	if err != nil {
		h.logger.Error("Failed to fetch thresholds", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch thresholds")
		return
	}

	writeJSON(w, http.StatusOK, thresholds)
}

// Update 更新命名阈值的值
// 路径格式：/api/v1/thresholds/{name}；body：{"value": number|string}
// 非数值 → 400；未知名称（0行受影响）→ 404
func (h *ThresholdsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/thresholds/")
	if name == "" || strings.Contains(name, "/") {
		writeMessage(w, http.StatusNotFound, "Threshold not found")
		return
	}

	var body struct {
		Value any `json:"value"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid threshold value provided")
		return
	}

	value, ok := parseThresholdValue(body.Value)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid threshold value provided")
		return
	}

	rows, err := h.thresholds.UpdateThreshold(r.Context(), h.subjectID, name, value)
	if err != nil {
		h.logger.Error("Failed to update threshold",
			zap.String("threshold_name", name),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to update threshold")
		return
	}

	if rows == 0 {
		// 阈值行预置，未知名称不会新增
		writeMessage(w, http.StatusNotFound, "Threshold not found")
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Threshold '%s' updated successfully", name))
}

// parseThresholdValue 解析阈值；前端可能提交数字或数字字符串
func parseThresholdValue(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
