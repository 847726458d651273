package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// DefaultHistoryLimit 历史查询默认条数
const DefaultHistoryLimit = 100

// ReadingsRepository 遥测读数仓库（sensor_data 表，只追加）
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 插入一条读数，回填数据库分配的 reading_id 和 timestamp
func (r *ReadingsRepository) CreateReading(ctx context.Context, subjectID int64, reading *models.Reading) error {
	if subjectID <= 0 {
		return fmt.Errorf("subject_id is required")
	}
	if reading == nil {
		return fmt.Errorf("reading is required")
	}

	query := `
		INSERT INTO sensor_data (subject_id, body_temp, ambient_temp, fall_detected)
		VALUES ($1, $2, $3, $4)
		RETURNING reading_id, timestamp
	`

	err := r.db.QueryRowContext(ctx, query,
		subjectID,
		reading.BodyTemp,
		reading.AmbientTemp,
		reading.FallDetected,
	).Scan(&reading.ReadingID, &reading.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	reading.SubjectID = subjectID
	return nil
}

// GetLatestReading 获取最新一条读数；没有数据时返回 (nil, nil)
func (r *ReadingsRepository) GetLatestReading(ctx context.Context, subjectID int64) (*models.Reading, error) {
	if subjectID <= 0 {
		return nil, fmt.Errorf("subject_id is required")
	}

	query := `
		SELECT reading_id, subject_id, body_temp, ambient_temp, fall_detected, timestamp
		FROM sensor_data
		WHERE subject_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var reading models.Reading
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&reading.ReadingID,
		&reading.SubjectID,
		&reading.BodyTemp,
		&reading.AmbientTemp,
		&reading.FallDetected,
		&reading.Timestamp,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return &reading, nil
}

// ListReadings 历史读数查询（按 timestamp 升序，带上限）
func (r *ReadingsRepository) ListReadings(ctx context.Context, subjectID int64, filters models.ReadingFilters) ([]models.Reading, error) {
	if subjectID <= 0 {
		return nil, fmt.Errorf("subject_id is required")
	}

	where := []string{"subject_id = $1"}
	args := []interface{}{subjectID}
	argN := 2

	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("timestamp >= $%d", argN))
		args = append(args, *filters.StartTime)
		argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("timestamp <= $%d", argN))
		args = append(args, *filters.EndTime)
		argN++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := fmt.Sprintf(`
		SELECT reading_id, subject_id, body_temp, ambient_temp, fall_detected, timestamp
		FROM sensor_data
		WHERE %s
		ORDER BY timestamp ASC
		LIMIT $%d
	`, strings.Join(where, " AND "), argN)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var reading models.Reading
		err := rows.Scan(
			&reading.ReadingID,
			&reading.SubjectID,
			&reading.BodyTemp,
			&reading.AmbientTemp,
			&reading.FallDetected,
			&reading.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}
