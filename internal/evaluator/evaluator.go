package evaluator

import (
	"fmt"

	"wisefido-vitals/internal/models"
)

// Candidate 评估结果：一条待落库的报警
// 纯数据，不带ID和时间戳（由落库时分配）
type Candidate struct {
	Type    models.AlertType
	Value   *float64
	Message string
}

// Decide 评估一条读数，决定是否触发报警
// 纯函数，无副作用、无I/O；阈值缺省值由调用方负责，这里拿到的永远是有效阈值
//
// 规则（按优先级，互斥，一条读数最多触发一条报警）：
//  1. body_temp > maxBodyTemp → High Body Temp
//  2. fall_detected → Fall Detected
//  3. 否则无报警
//
// NaN 体温不满足 `>` 比较，直接落到跌倒检查分支
func Decide(reading models.Reading, maxBodyTemp float64) *Candidate {
	if reading.BodyTemp > maxBodyTemp {
		value := reading.BodyTemp
		return &Candidate{
			Type:    models.AlertTypeHighBodyTemp,
			Value:   &value,
			Message: fmt.Sprintf("Body temperature exceeded %g°C: %g°C", maxBodyTemp, reading.BodyTemp),
		}
	}

	if reading.FallDetected {
		return &Candidate{
			Type:    models.AlertTypeFallDetected,
			Value:   nil,
			Message: "User fall detected!",
		}
	}

	return nil
}
