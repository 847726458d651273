package notifier

import (
	"context"
	"time"

	"wisefido-vitals/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier 报警回调通知器
// 即发即弃：回调失败只记录日志，不重试，不影响消息处理链路
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier 创建回调通知器
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(5 * time.Second)

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// NotifyAlert 推送一条已落库的报警
func (n *WebhookNotifier) NotifyAlert(ctx context.Context, alert models.Alert) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(n.url)

	if err != nil {
		n.logger.Warn("Alert webhook delivery failed",
			zap.Int64("alert_id", alert.AlertID),
			zap.Error(err),
		)
		return
	}

	if resp.IsError() {
		n.logger.Warn("Alert webhook returned error status",
			zap.Int64("alert_id", alert.AlertID),
			zap.Int("status", resp.StatusCode()),
		)
		return
	}

	n.logger.Debug("Alert webhook delivered",
		zap.Int64("alert_id", alert.AlertID),
	)
}
