// Package database SQLite 存储：用户、探测器、上报记录与管理员账号
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/logger"
)

// 连接池配置
const (
	DefaultDBFile       = "alertfi.db"
	DefaultMaxOpenConns = 1 // SQLite 单写者
	DefaultMaxIdleConns = 1
	ConnMaxLifetime     = time.Hour
)

var log = logger.Named("database")

// Options 打开数据库的参数
type Options struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// Store SQLite 存储，可并发使用
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open 打开数据库并初始化表结构
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = DefaultDBFile
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = DefaultMaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = DefaultMaxIdleConns
	}

	db, err := openSQLite(opts.Path, opts.MaxOpenConns, opts.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", opts.Path, err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("database initialized", "path", opts.Path, "max_open", opts.MaxOpenConns)
	return s, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 底层连接
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping 连接检查（就绪探针使用）
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// notFound 将 sql.ErrNoRows 转为业务错误
func notFound(err error, target *apperrors.AppError) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "database query failed")
}

func affectedOrNotFound(res sql.Result, target *apperrors.AppError) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDatabaseError, "database query failed")
	}
	if n == 0 {
		return target
	}
	return nil
}
