package database

import (
	"context"
	"fmt"

	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/pwdutil"
)

// InitDefaultData 没有任何管理员时创建初始管理员
func (s *Store) InitDefaultData(ctx context.Context, email, password string) error {
	count, err := s.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}
	if email == "" || password == "" {
		log.Warn("no admin account and no bootstrap credentials configured")
		return nil
	}

	hash, err := pwdutil.Hash(password)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}
	admin := &models.Admin{Email: email, Password: hash, Role: models.RoleAdmin}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}
	log.Info("created default admin", "email", admin.Email)
	return nil
}
