package models

import "time"

// AlertType 报警类型
type AlertType string

const (
	// AlertTypeHighBodyTemp 体温超过阈值
	AlertTypeHighBodyTemp AlertType = "High Body Temp"
	// AlertTypeFallDetected 检测到跌倒
	AlertTypeFallDetected AlertType = "Fall Detected"
)

// ThresholdNameMaxBodyTemp 体温上限阈值名称（thresholds 表预置行）
const ThresholdNameMaxBodyTemp = "Max Body Temp"

// Reading 一条遥测读数（入库后不可变）
type Reading struct {
	ReadingID    int64     `json:"-"`
	SubjectID    int64     `json:"-"`
	BodyTemp     float64   `json:"body_temp"`
	AmbientTemp  float64   `json:"ambient_temp"`
	FallDetected bool      `json:"fall_detected"`
	Timestamp    time.Time `json:"timestamp"`
}

// Threshold 命名阈值（值可更新，名称集合预置、不可新增）
type Threshold struct {
	SubjectID int64   `json:"-"`
	Name      string  `json:"threshold_name"`
	Value     float64 `json:"threshold_value"`
	Unit      string  `json:"unit"`
}

// Alert 报警记录
// AlertID 由数据库在插入时分配；is_resolved 只允许 false→true 转换一次
type Alert struct {
	AlertID    int64     `json:"alert_id"`
	SubjectID  int64     `json:"-"`
	Type       AlertType `json:"alert_type"`
	Value      *float64  `json:"alert_value"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	IsResolved bool      `json:"is_resolved"`
}

// SensorPayload MQTT 入站消息格式
// ntc_temp 是环境温度的线上字段名，在边界处改名为 ambient_temp
type SensorPayload struct {
	BodyTemp     float64 `json:"body_temp"`
	NTCTemp      float64 `json:"ntc_temp"`
	FallDetected bool    `json:"fall_detected"`
}

// ReadingFilters 历史读数查询条件
type ReadingFilters struct {
	StartTime *time.Time // timestamp >= StartTime
	EndTime   *time.Time // timestamp <= EndTime
	Limit     int        // 0 时由仓库层使用默认值
}
