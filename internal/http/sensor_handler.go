package httpapi

import (
	"context"
	"net/http"
	"time"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// ReadingQueries 读数查询接口（由 repository.ReadingsRepository 实现）
type ReadingQueries interface {
	GetLatestReading(ctx context.Context, subjectID int64) (*models.Reading, error)
	ListReadings(ctx context.Context, subjectID int64, filters models.ReadingFilters) ([]models.Reading, error)
}

// Gate 后端存储就绪状态（由 store.Gate 实现）
type Gate interface {
	Ready() bool
}

// SensorDataHandler 遥测读数查询 Handler
type SensorDataHandler struct {
	readings  ReadingQueries
	gate      Gate
	subjectID int64
	logger    *zap.Logger
}

// NewSensorDataHandler 创建读数查询 Handler
func NewSensorDataHandler(readings ReadingQueries, gate Gate, subjectID int64, logger *zap.Logger) *SensorDataHandler {
	return &SensorDataHandler{
		readings:  readings,
		gate:      gate,
		subjectID: subjectID,
		logger:    logger,
	}
}

// GetLatest 查询最新读数；无数据时返回 {}
func (h *SensorDataHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	reading, err := h.readings.GetLatestReading(r.Context(), h.subjectID)
	if err != nil {
		h.logger.Error("Failed to fetch latest reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch latest sensor data")
		return
	}

	if reading == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// GetHistory 历史读数查询
// query 参数：limit（默认100）、start_date、end_date（RFC3339 或 2006-01-02）
func (h *SensorDataHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !h.gate.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
		return
	}

	filters := models.ReadingFilters{
		Limit: parseInt(r.URL.Query().Get("limit"), 0),
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		start, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date")
			return
		}
		filters.StartTime = &start
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		end, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date")
			return
		}
		filters.EndTime = &end
	}

	readings, err := h.readings.ListReadings(r.Context(), h.subjectID, filters)
	if err != nil {
		h.logger.Error("Failed to fetch reading history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch historical sensor data")
		return
	}

	writeJSON(w, http.StatusOK, readings)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
