package database

import (
	"context"
	"strings"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
)

// ==================== 管理员 ====================

func scanAdmin(row interface{ Scan(...any) error }) (*models.Admin, error) {
	a := &models.Admin{}
	if err := row.Scan(&a.ID, &a.Email, &a.Password, &a.Role, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAdmin 创建管理员，Password 需为哈希值
func (s *Store) CreateAdmin(ctx context.Context, a *models.Admin) error {
	a.Email = strings.TrimSpace(strings.ToLower(a.Email))
	if a.Role == "" {
		a.Role = models.RoleAdmin
	}
	a.CreatedAt = s.timestamp()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (email, password, role, created_at) VALUES (?, ?, ?, ?)",
		a.Email, a.Password, a.Role, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrEmailTaken
		}
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "create admin")
	}
	a.ID, err = res.LastInsertId()
	return err
}

// GetAdminByEmail 根据邮箱获取管理员
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx,
		"SELECT id, email, password, role, created_at FROM admins WHERE email = ?",
		strings.TrimSpace(strings.ToLower(email))))
	if err != nil {
		return nil, notFound(err, apperrors.ErrNotFound)
	}
	return a, nil
}

// GetAdminByID 根据ID获取管理员
func (s *Store) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx,
		"SELECT id, email, password, role, created_at FROM admins WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrNotFound)
	}
	return a, nil
}

// UpdateAdminPassword 更新管理员密码哈希
func (s *Store) UpdateAdminPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE admins SET password = ? WHERE id = ?", hash, id)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "update admin")
	}
	return affectedOrNotFound(res, apperrors.ErrNotFound)
}

// CountAdmins 管理员数量
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n)
	return n, err
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
