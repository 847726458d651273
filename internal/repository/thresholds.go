package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// ThresholdsRepository 阈值仓库（thresholds 表，行预置、只更新值）
type ThresholdsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThresholdsRepository 创建阈值仓库
func NewThresholdsRepository(db *sql.DB, logger *zap.Logger) *ThresholdsRepository {
	return &ThresholdsRepository{
		db:     db,
		logger: logger,
	}
}

// GetThreshold 按名称获取阈值；行不存在时返回 (nil, nil)，由调用方决定默认值
func (r *ThresholdsRepository) GetThreshold(ctx context.Context, subjectID int64, name string) (*models.Threshold, error) {
	if subjectID <= 0 {
		return nil, fmt.Errorf("subject_id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("threshold name is required")
	}

	query := `
		SELECT subject_id, threshold_name, threshold_value, unit
		FROM thresholds
		WHERE subject_id = $1
		  AND threshold_name = $2
	`

	var threshold models.Threshold
	err := r.db.QueryRowContext(ctx, query, subjectID, name).Scan(
		&threshold.SubjectID,
		&threshold.Name,
		&threshold.Value,
		&threshold.Unit,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}

	return &threshold, nil
}

// ListThresholds 获取当前所有阈值
func (r *ThresholdsRepository) ListThresholds(ctx context.Context, subjectID int64) ([]models.Threshold, error) {
	if subjectID <= 0 {
		return nil, fmt.Errorf("subject_id is required")
	}

	query := `
		SELECT subject_id, threshold_name, threshold_value, unit
		FROM thresholds
		WHERE subject_id = $1
		ORDER BY threshold_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thresholds: %w", err)
	}
	defer rows.Close()

	thresholds := []models.Threshold{}
	for rows.Next() {
		var threshold models.Threshold
		err := rows.Scan(
			&threshold.SubjectID,
			&threshold.Name,
			&threshold.Value,
			&threshold.Unit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threshold: %w", err)
		}
		thresholds = append(thresholds, threshold)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate thresholds: %w", err)
	}

	return thresholds, nil
}

// UpdateThreshold 更新阈值（单条UPDATE，依赖语句级原子性，与并发评估读互不干扰）
// 返回受影响行数：0 表示名称不存在（阈值行预置，不允许新增名称）
func (r *ThresholdsRepository) UpdateThreshold(ctx context.Context, subjectID int64, name string, value float64) (int64, error) {
	if subjectID <= 0 {
		return 0, fmt.Errorf("subject_id is required")
	}
	if name == "" {
		return 0, fmt.Errorf("threshold name is required")
	}

	query := `
		UPDATE thresholds
		SET threshold_value = $1
		WHERE subject_id = $2
		  AND threshold_name = $3
	`

	result, err := r.db.ExecContext(ctx, query, value, subjectID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to update threshold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
