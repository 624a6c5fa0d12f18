package database

import (
	"context"
	"database/sql"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
)

// ==================== 上报记录 ====================

const readingColumns = "id, detector_id, timestamp, status, ppm, temperature, humidity, battery"

func scanReading(rows *sql.Rows) (models.Reading, error) {
	var r models.Reading
	err := rows.Scan(&r.ID, &r.DetectorID, &r.Timestamp, &r.Status, &r.PPM, &r.Temperature, &r.Humidity, &r.Battery)
	return r, err
}

// InsertReading 写入一条上报记录，Timestamp 为空时使用当前时间
func (s *Store) InsertReading(ctx context.Context, r *models.Reading) error {
	if r.Timestamp == "" {
		r.Timestamp = s.timestamp()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO readings (detector_id, timestamp, status, ppm, temperature, humidity, battery) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.DetectorID, r.Timestamp, r.Status, r.PPM, r.Temperature, r.Humidity, r.Battery,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrDetectorNotFound
		}
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "insert reading")
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ListReadings 获取所有记录
func (s *Store) ListReadings(ctx context.Context) ([]models.Reading, error) {
	return queryList(ctx, s.db, "SELECT "+readingColumns+" FROM readings ORDER BY id", nil, scanReading)
}

// ListReadingsByDetector 获取某个探测器的记录
func (s *Store) ListReadingsByDetector(ctx context.Context, detectorID int64) ([]models.Reading, error) {
	return queryList(ctx, s.db, "SELECT "+readingColumns+" FROM readings WHERE detector_id = ? ORDER BY id", []any{detectorID}, scanReading)
}

// CountReadings 记录总数
func (s *Store) CountReadings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&n)
	return n, err
}

func isForeignKeyViolation(err error) bool {
	return err != nil && containsFold(err.Error(), "FOREIGN KEY constraint failed")
}
