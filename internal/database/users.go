package database

import (
	"context"
	"database/sql"
	"strings"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
)

// ==================== 用户 ====================

const userColumns = "id, name, email, address, registered, notifications_enabled"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var notify int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.Registered, &notify); err != nil {
		return u, err
	}
	u.NotificationsEnabled = notify != 0
	return u, nil
}

// CreateUser 创建用户，Registered 为空时使用当前日期
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" {
		return apperrors.ErrBadRequest.WithDetails("email is required")
	}
	if u.Registered == "" {
		u.Registered = s.now().UTC().Format("2006-01-02")
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, address, registered, notifications_enabled) VALUES (?, ?, ?, ?, ?)",
		u.Name, u.Email, u.Address, u.Registered, boolInt(u.NotificationsEnabled),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrEmailTaken
		}
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "create user")
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetUser 根据ID获取用户
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return &u, nil
}

// ListUsers 获取所有用户
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return queryList(ctx, s.db, "SELECT "+userColumns+" FROM users ORDER BY id", nil,
		func(rows *sql.Rows) (models.User, error) { return scanUser(rows) })
}

// DeleteUser 删除用户及其探测器、记录
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "delete user")
	}
	return affectedOrNotFound(res, apperrors.ErrUserNotFound)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
