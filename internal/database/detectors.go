package database

import (
	"context"
	"database/sql"
	"strings"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
)

// ==================== 探测器 ====================

const detectorColumns = "id, name, user_id, location, sensor_on"

func scanDetector(row interface{ Scan(...any) error }) (models.Detector, error) {
	var d models.Detector
	var on int
	if err := row.Scan(&d.ID, &d.Name, &d.UserID, &d.Location, &on); err != nil {
		return d, err
	}
	d.SensorOn = on != 0
	return d, nil
}

// CreateDetector 创建探测器，所属用户必须存在
func (s *Store) CreateDetector(ctx context.Context, d *models.Detector) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperrors.ErrBadRequest.WithDetails("name is required")
	}
	if _, err := s.GetUser(ctx, d.UserID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO detectors (name, user_id, location, sensor_on) VALUES (?, ?, ?, ?)",
		d.Name, d.UserID, d.Location, boolInt(d.SensorOn),
	)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "create detector")
	}
	d.ID, err = res.LastInsertId()
	return err
}

// GetDetector 根据ID获取探测器
func (s *Store) GetDetector(ctx context.Context, id int64) (*models.Detector, error) {
	d, err := scanDetector(s.db.QueryRowContext(ctx, "SELECT "+detectorColumns+" FROM detectors WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrDetectorNotFound)
	}
	return &d, nil
}

// ListDetectors 获取所有探测器
func (s *Store) ListDetectors(ctx context.Context) ([]models.Detector, error) {
	return queryList(ctx, s.db, "SELECT "+detectorColumns+" FROM detectors ORDER BY id", nil,
		func(rows *sql.Rows) (models.Detector, error) { return scanDetector(rows) })
}

// ListDetectorsByUser 获取某个用户的探测器
func (s *Store) ListDetectorsByUser(ctx context.Context, userID int64) ([]models.Detector, error) {
	return queryList(ctx, s.db, "SELECT "+detectorColumns+" FROM detectors WHERE user_id = ? ORDER BY id", []any{userID},
		func(rows *sql.Rows) (models.Detector, error) { return scanDetector(rows) })
}

// SetSensorOn 更新传感器开关
func (s *Store) SetSensorOn(ctx context.Context, id int64, on bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE detectors SET sensor_on = ? WHERE id = ?", boolInt(on), id)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "update detector")
	}
	return affectedOrNotFound(res, apperrors.ErrDetectorNotFound)
}

// DetectorUpdate 部分更新字段，nil 表示不修改
type DetectorUpdate struct {
	Name     *string
	Location *string
	UserID   *int64
	SensorOn *bool
}

// Empty 没有任何字段需要更新
func (u DetectorUpdate) Empty() bool {
	return u.Name == nil && u.Location == nil && u.UserID == nil && u.SensorOn == nil
}

// UpdateDetector 只写入设置了的字段，新的所属用户必须存在
func (s *Store) UpdateDetector(ctx context.Context, id int64, u DetectorUpdate) error {
	if u.Empty() {
		return apperrors.ErrBadRequest.WithDetails("no fields to update")
	}

	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return apperrors.ErrBadRequest.WithDetails("name is required")
		}
		sets, args = append(sets, "name = ?"), append(args, name)
	}
	if u.Location != nil {
		sets, args = append(sets, "location = ?"), append(args, strings.TrimSpace(*u.Location))
	}
	if u.UserID != nil {
		if _, err := s.GetUser(ctx, *u.UserID); err != nil {
			return err
		}
		sets, args = append(sets, "user_id = ?"), append(args, *u.UserID)
	}
	if u.SensorOn != nil {
		sets, args = append(sets, "sensor_on = ?"), append(args, boolInt(*u.SensorOn))
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE detectors SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		append(args, id)...,
	)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "update detector")
	}
	return affectedOrNotFound(res, apperrors.ErrDetectorNotFound)
}

// DeleteDetector 删除探测器及其记录
func (s *Store) DeleteDetector(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM detectors WHERE id = ?", id)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "delete detector")
	}
	return affectedOrNotFound(res, apperrors.ErrDetectorNotFound)
}
