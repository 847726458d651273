package consumer

import (
	"sync"
	"time"
)

// Metrics 消费者监控指标
type Metrics struct {
	mu sync.RWMutex

	// 消息处理统计
	MessagesProcessed int64 // 收到的消息总数
	MessagesSucceeded int64 // 成功处理的消息数
	MessagesFailed    int64 // 处理失败的消息数
	MessagesSkipped   int64 // 跳过的消息数（存储未就绪）

	// 错误分类统计
	ErrorsParse        int64 // 解析错误
	ErrorsReadingWrite int64 // 读数落库失败
	ErrorsAlertWrite   int64 // 报警落库失败（读数已持久化）

	LastProcessTime time.Time
	StartTime       time.Time
}

// MetricsSnapshot 指标快照（无锁副本）
type MetricsSnapshot struct {
	MessagesProcessed  int64
	MessagesSucceeded  int64
	MessagesFailed     int64
	MessagesSkipped    int64
	ErrorsParse        int64
	ErrorsReadingWrite int64
	ErrorsAlertWrite   int64
	LastProcessTime    time.Time
	StartTime          time.Time
}

// NewMetrics 创建指标
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime: time.Now(),
	}
}

// Snapshot 获取指标快照（线程安全）
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		MessagesProcessed:  m.MessagesProcessed,
		MessagesSucceeded:  m.MessagesSucceeded,
		MessagesFailed:     m.MessagesFailed,
		MessagesSkipped:    m.MessagesSkipped,
		ErrorsParse:        m.ErrorsParse,
		ErrorsReadingWrite: m.ErrorsReadingWrite,
		ErrorsAlertWrite:   m.ErrorsAlertWrite,
		LastProcessTime:    m.LastProcessTime,
		StartTime:          m.StartTime,
	}
}

// IncrementProcessed 增加处理计数
func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
}

// IncrementSucceeded 增加成功计数
func (m *Metrics) IncrementSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSucceeded++
	m.LastProcessTime = time.Now()
}

// IncrementFailed 增加失败计数
func (m *Metrics) IncrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch errorType {
	case "parse":
		m.ErrorsParse++
		m.MessagesFailed++
	case "reading_insert":
		m.ErrorsReadingWrite++
		m.MessagesFailed++
	case "alert_insert":
		// 报警落库失败不算整条消息失败（读数已持久化并广播）
		m.ErrorsAlertWrite++
	default:
		m.MessagesFailed++
	}
}

// IncrementSkipped 增加跳过计数
func (m *Metrics) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSkipped++
}
