package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// AlertsRepository 报警仓库（alerts 表）
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建报警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlert 插入报警，回填数据库分配的 alert_id 和 timestamp
// lib/pq 不支持 LastInsertId，用 RETURNING 取回自增ID
func (r *AlertsRepository) CreateAlert(ctx context.Context, subjectID int64, alert *models.Alert) error {
	if subjectID <= 0 {
		return fmt.Errorf("subject_id is required")
	}
	if alert == nil {
		return fmt.Errorf("alert is required")
	}

	query := `
		INSERT INTO alerts (subject_id, alert_type, alert_value, message)
		VALUES ($1, $2, $3, $4)
		RETURNING alert_id, timestamp
	`

	var value sql.NullFloat64
	if alert.Value != nil {
		value = sql.NullFloat64{Float64: *alert.Value, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		subjectID,
		string(alert.Type),
		value,
		alert.Message,
	).Scan(&alert.AlertID, &alert.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	alert.SubjectID = subjectID
	alert.IsResolved = false
	return nil
}

// GetActiveAlerts 获取未解决的报警（按 timestamp 降序）
func (r *AlertsRepository) GetActiveAlerts(ctx context.Context, subjectID int64) ([]models.Alert, error) {
	if subjectID <= 0 {
		return nil, fmt.Errorf("subject_id is required")
	}

	query := `
		SELECT alert_id, subject_id, alert_type, alert_value, message, timestamp, is_resolved
		FROM alerts
		WHERE subject_id = $1
		  AND is_resolved = FALSE
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var alert models.Alert
		var alertType string
		var value sql.NullFloat64

		err := rows.Scan(
			&alert.AlertID,
			&alert.SubjectID,
			&alertType,
			&value,
			&alert.Message,
			&alert.Timestamp,
			&alert.IsResolved,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		alert.Type = models.AlertType(alertType)
		if value.Valid {
			alert.Value = &value.Float64
		}

		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// ResolveAlert 将报警标记为已解决
// 返回受影响行数：0 表示报警不存在或已解决（调用方映射为 404），与服务端错误区分开
func (r *AlertsRepository) ResolveAlert(ctx context.Context, subjectID int64, alertID int64) (int64, error) {
	if subjectID <= 0 {
		return 0, fmt.Errorf("subject_id is required")
	}
	if alertID <= 0 {
		return 0, fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET is_resolved = TRUE
		WHERE alert_id = $1
		  AND subject_id = $2
		  AND is_resolved = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, alertID, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
