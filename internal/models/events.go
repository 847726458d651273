package models

import "time"

// WebSocket 推送事件类型
const (
	EventSensorUpdate = "sensor_update"
	EventNewAlert     = "new_alert"
)

// SensorUpdateEvent 实时读数推送
// is_alert 反映本次评估是否触发报警（与报警是否成功落库无关）
type SensorUpdateEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	BodyTemp     float64   `json:"body_temp"`
	AmbientTemp  float64   `json:"ambient_temp"`
	FallDetected bool      `json:"fall_detected"`
	IsAlert      bool      `json:"is_alert"`
}

// NewAlertEvent 新报警推送（仅在报警成功落库后发送）
type NewAlertEvent struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       AlertType `json:"type"`
	Value      *float64  `json:"value"`
	Message    string    `json:"message"`
	IsResolved bool      `json:"is_resolved"`
}
