// Package handlers AlertFi 管理后台 HTTP 接口
package handlers

import (
	"context"
	"time"

	"github.com/gonglijing/alertfi/internal/auth"
	"github.com/gonglijing/alertfi/internal/database"
	"github.com/gonglijing/alertfi/internal/export"
	"github.com/gonglijing/alertfi/internal/ingest"
	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/snapshot"
	"github.com/gonglijing/alertfi/internal/status"
)

var log = logger.Named("handlers")

// Store 接口依赖的存储能力
type Store interface {
	snapshot.Source
	auth.AdminStore

	CreateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	CreateDetector(ctx context.Context, d *models.Detector) error
	DeleteDetector(ctx context.Context, id int64) error
	SetSensorOn(ctx context.Context, id int64, on bool) error
	UpdateDetector(ctx context.Context, id int64, u database.DetectorUpdate) error
	GetDetector(ctx context.Context, id int64) (*models.Detector, error)
	ListDetectorsByUser(ctx context.Context, userID int64) ([]models.Detector, error)
	ListReadingsByDetector(ctx context.Context, detectorID int64) ([]models.Reading, error)
	Ping(ctx context.Context) error
}

// Options 处理器配置
type Options struct {
	Evaluator     *status.Evaluator
	Export        export.Options
	ExportLayout  string // 导出时间格式，空表示原样输出
	LoginFailures int
	LoginBlock    time.Duration
	Now           func() time.Time
}

// Handler Web处理器
type Handler struct {
	store     Store
	jwt       *auth.JWTManager
	ingest    *ingest.Service
	evaluator *status.Evaluator
	exportOpt export.Options
	layout    string
	login     *BruteForceLimiter
	now       func() time.Time
}

// NewHandler 创建处理器
func NewHandler(store Store, jwt *auth.JWTManager, svc *ingest.Service, opts Options) *Handler {
	if opts.Evaluator == nil {
		opts.Evaluator = status.NewEvaluator(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoginFailures <= 0 {
		opts.LoginFailures = 5
	}
	if opts.LoginBlock <= 0 {
		opts.LoginBlock = 15 * time.Minute
	}
	login := NewBruteForceLimiter(opts.LoginFailures, opts.LoginBlock)
	login.now = opts.Now
	return &Handler{
		store:     store,
		jwt:       jwt,
		ingest:    svc,
		evaluator: opts.Evaluator,
		exportOpt: opts.Export,
		layout:    opts.ExportLayout,
		login:     login,
		now:       opts.Now,
	}
}

// loadSnapshot 拉取三个集合，部分失败时记录警告
func (h *Handler) loadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := snapshot.Load(ctx, h.store, h.now())
	if err != nil {
		return nil, err
	}
	if !snap.Complete() {
		log.Warn("partial snapshot", "error", snap.Err())
	}
	return snap, nil
}
