package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"wisefido-vitals/internal/models"
)

// ---- 测试替身 ----

type fakeGate struct {
	ready bool
}

func (g *fakeGate) Ready() bool { return g.ready }

type fakeReadings struct {
	latest  *models.Reading
	list    []models.Reading
	filters models.ReadingFilters
	err     error
}

func (f *fakeReadings) GetLatestReading(ctx context.Context, subjectID int64) (*models.Reading, error) {
	return f.latest, f.err
}

func (f *fakeReadings) ListReadings(ctx context.Context, subjectID int64, filters models.ReadingFilters) ([]models.Reading, error) {
	f.filters = filters
	return f.list, f.err
}

type fakeAlerts struct {
	active       []models.Alert
	resolvedRows int64
	resolvedID   int64
	err          error
}

func (f *fakeAlerts) GetActiveAlerts(ctx context.Context, subjectID int64) ([]models.Alert, error) {
	return f.active, f.err
}

func (f *fakeAlerts) ResolveAlert(ctx context.Context, subjectID int64, alertID int64) (int64, error) {
	f.resolvedID = alertID
	return f.resolvedRows, f.err
}

type fakeThresholds struct {
	list        []models.Threshold
	updatedName string
	updatedVal  float64
	updateRows  int64
	err         error
}

func (f *fakeThresholds) ListThresholds(ctx context.Context, subjectID int64) ([]models.Threshold, error) {
	return f.list, f.err
}

func (f *fakeThresholds) UpdateThreshold(ctx context.Context, subjectID int64, name string, value float64) (int64, error) {
	f.updatedName = name
	f.updatedVal = value
	return f.updateRows, f.err
}

func newTestRouter(gate Gate, readings *fakeReadings, alerts *fakeAlerts, thresholds *fakeThresholds) *Router {
	logger := zap.NewNop()
	router := NewRouter(logger)
	router.RegisterSensorDataRoutes(NewSensorDataHandler(readings, gate, 1, logger))
	router.RegisterAlertRoutes(NewAlertsHandler(alerts, gate, 1, logger))
	router.RegisterThresholdRoutes(NewThresholdsHandler(thresholds, gate, 1, logger))
	router.RegisterHealthRoute(gate)
	return router
}

func doRequest(router *Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ---- sensor_data ----

func TestGetLatest_Success(t *testing.T) {
	readings := &fakeReadings{latest: &models.Reading{
		BodyTemp:     36.8,
		AmbientTemp:  21.5,
		FallDetected: false,
		Timestamp:    time.Now(),
	}}
	router := newTestRouter(&fakeGate{ready: true}, readings, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sensor_data/latest", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 36.8, got["body_temp"])
	assert.Equal(t, 21.5, got["ambient_temp"])
}

func TestGetLatest_Empty(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sensor_data/latest", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestGetLatest_DatabaseNotReady(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: false}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sensor_data/latest", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database not connected")
}

func TestGetHistory_PassesFilters(t *testing.T) {
	readings := &fakeReadings{list: []models.Reading{}}
	router := newTestRouter(&fakeGate{ready: true}, readings, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet,
		"/api/v1/sensor_data/history?limit=50&start_date=2026-08-01&end_date=2026-08-29", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, readings.filters.Limit)
	require.NotNil(t, readings.filters.StartTime)
	require.NotNil(t, readings.filters.EndTime)
	assert.Equal(t, 2026, readings.filters.StartTime.Year())
}

func TestGetHistory_InvalidDate(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sensor_data/history?start_date=yesterday", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistory_ServiceUnavailable(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: false}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sensor_data/history", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ---- alerts ----

func TestGetActiveAlerts_Success(t *testing.T) {
	value := 39.2
	alerts := &fakeAlerts{active: []models.Alert{
		{AlertID: 2, Type: models.AlertTypeFallDetected, Message: "User fall detected!", Timestamp: time.Now()},
		{AlertID: 1, Type: models.AlertTypeHighBodyTemp, Value: &value, Timestamp: time.Now().Add(-time.Minute)},
	}}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, alerts, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/api/v1/alerts/active", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, float64(2), got[0]["alert_id"])
	assert.Nil(t, got[0]["alert_value"])
	assert.Equal(t, 39.2, got[1]["alert_value"])
}

func TestResolveAlert_Success(t *testing.T) {
	alerts := &fakeAlerts{resolvedRows: 1}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, alerts, &fakeThresholds{})

	rec := doRequest(router, http.MethodPut, "/api/v1/alerts/11/resolve", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alert resolved successfully")
	assert.Equal(t, int64(11), alerts.resolvedID)
}

func TestResolveAlert_NotFound(t *testing.T) {
	// 不存在或已解决：0行受影响 → 404
	alerts := &fakeAlerts{resolvedRows: 0}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, alerts, &fakeThresholds{})

	rec := doRequest(router, http.MethodPut, "/api/v1/alerts/999/resolve", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alert not found")
}

func TestResolveAlert_NonNumericID(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodPut, "/api/v1/alerts/abc/resolve", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveAlert_ServerError(t *testing.T) {
	alerts := &fakeAlerts{err: errors.New("connection lost")}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, alerts, &fakeThresholds{})

	rec := doRequest(router, http.MethodPut, "/api/v1/alerts/11/resolve", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- thresholds ----

func TestListThresholds_Success(t *testing.T) {
	thresholds := &fakeThresholds{list: []models.Threshold{
		{Name: models.ThresholdNameMaxBodyTemp, Value: 38.0, Unit: "°C"},
	}}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, thresholds)

	rec := doRequest(router, http.MethodGet, "/api/v1/thresholds", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Max Body Temp", got[0]["threshold_name"])
	assert.Equal(t, 38.0, got[0]["threshold_value"])
}

func TestUpdateThreshold_Success(t *testing.T) {
	thresholds := &fakeThresholds{updateRows: 1}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, thresholds)

	rec := doRequest(router, http.MethodPut, "/api/v1/thresholds/Max%20Body%20Temp", `{"value": 37.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Max Body Temp", thresholds.updatedName)
	assert.Equal(t, 37.5, thresholds.updatedVal)
}

func TestUpdateThreshold_StringValueAccepted(t *testing.T) {
	thresholds := &fakeThresholds{updateRows: 1}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, thresholds)

	rec := doRequest(router, http.MethodPut, "/api/v1/thresholds/Max%20Body%20Temp", `{"value": "37.5"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 37.5, thresholds.updatedVal)
}

func TestUpdateThreshold_InvalidValue(t *testing.T) {
	thresholds := &fakeThresholds{updateRows: 1}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, thresholds)

	rec := doRequest(router, http.MethodPut, "/api/v1/thresholds/Max%20Body%20Temp", `{"value": "abc"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid threshold value provided")
	// 没有触发更新
	assert.Equal(t, "", thresholds.updatedName)
}

func TestUpdateThreshold_MissingValue(t *testing.T) {
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodPut, "/api/v1/thresholds/Max%20Body%20Temp", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateThreshold_UnknownName(t *testing.T) {
	thresholds := &fakeThresholds{updateRows: 0}
	router := newTestRouter(&fakeGate{ready: true}, &fakeReadings{}, &fakeAlerts{}, thresholds)

	rec := doRequest(router, http.MethodPut, "/api/v1/thresholds/No%20Such%20Threshold", `{"value": 37.5}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Threshold not found")
}

// ---- healthz ----

func TestHealthz_ReflectsGateState(t *testing.T) {
	gate := &fakeGate{ready: true}
	router := newTestRouter(gate, &fakeReadings{}, &fakeAlerts{}, &fakeThresholds{})

	rec := doRequest(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	gate.ready = false
	rec = doRequest(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
