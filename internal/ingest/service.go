// Package ingest 探测器数据接入：HTTP 和 MQTT 上报共用同一处理流程
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/status"
)

var log = logger.Named("ingest")

// DefaultBattery 未上报电量时的默认值
const DefaultBattery = 100

// 数据来源
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// ErrInvalidDetector 探测器不存在
var ErrInvalidDetector = apperrors.NewError(apperrors.ErrCodeBadRequest, "Invalid detector ID")

// Store 接入需要的存储能力
type Store interface {
	GetDetector(ctx context.Context, id int64) (*models.Detector, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	InsertReading(ctx context.Context, r *models.Reading) error
}

// Notifier 告警发送
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Recorder 接入统计
type Recorder interface {
	ReadingIngested(source, tier string)
	AlertRaised(tier string)
}

// Payload 探测器上报内容
type Payload struct {
	DetectorID  int64    `json:"detector_id"`
	PPM         *float64 `json:"ppm"`
	Battery     *int     `json:"battery"`
	Status      string   `json:"status"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// Validate 检查必填字段
func (p Payload) Validate() error {
	if p.DetectorID <= 0 {
		return apperrors.ErrBadRequest.WithDetails("detector_id is required")
	}
	if p.PPM == nil {
		return apperrors.ErrBadRequest.WithDetails("ppm is required")
	}
	if *p.PPM < 0 {
		return apperrors.ErrBadRequest.WithDetails("ppm must not be negative")
	}
	if p.Timestamp != "" {
		if _, err := status.ParseTimestamp(p.Timestamp); err != nil {
			return apperrors.ErrBadRequest.WithDetails("invalid timestamp")
		}
	}
	return nil
}

// Result 一次接入的结果
type Result struct {
	Reading *models.Reading `json:"reading"`
	Tier    status.Tier     `json:"tier"`
	Alert   *models.Alert   `json:"alert,omitempty"`
}

// Service 接入服务
type Service struct {
	store    Store
	notifier Notifier
	recorder Recorder
	now      func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithNotifier 设置告警发送
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder 设置统计
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建接入服务
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest 校验、落库，并在 Danger/Warning 时发出告警
// 未上报状态时按 PPM 推导等级。
func (s *Service) Ingest(ctx context.Context, source string, p Payload) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	detector, err := s.store.GetDetector(ctx, p.DetectorID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDetectorNotFound) {
			return nil, ErrInvalidDetector
		}
		return nil, fmt.Errorf("load detector %d: %w", p.DetectorID, err)
	}

	reading := &models.Reading{
		DetectorID:  detector.ID,
		Timestamp:   p.Timestamp,
		Status:      strings.TrimSpace(p.Status),
		PPM:         *p.PPM,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Battery:     DefaultBattery,
	}
	if p.Battery != nil {
		reading.Battery = *p.Battery
	}
	if reading.Status == "" {
		reading.Status = status.TierFromPPM(reading.PPM).String()
	}
	if reading.Timestamp == "" {
		reading.Timestamp = status.FormatTimestamp(s.now())
	}

	if err := s.store.InsertReading(ctx, reading); err != nil {
		if apperrors.Is(err, apperrors.ErrDetectorNotFound) {
			return nil, ErrInvalidDetector
		}
		return nil, fmt.Errorf("store reading: %w", err)
	}

	tier := status.Classify(reading.Status)
	if s.recorder != nil {
		s.recorder.ReadingIngested(source, tier.String())
	}
	result := &Result{Reading: reading, Tier: tier}
	if !tier.Triggered() {
		return result, nil
	}

	alert := s.buildAlert(ctx, detector, reading, tier)
	result.Alert = &alert
	log.Warn("detector triggered", "detector_id", detector.ID, "tier", tier.String(), "ppm", reading.PPM, "source", source)
	if s.recorder != nil {
		s.recorder.AlertRaised(tier.String())
	}
	if s.notifier != nil {
		// 告警发送失败不影响数据接入
		if err := s.notifier.Notify(ctx, alert); err != nil {
			log.Error("alert delivery failed", err, "detector_id", detector.ID)
		}
	}
	return result, nil
}

func (s *Service) buildAlert(ctx context.Context, d *models.Detector, r *models.Reading, tier status.Tier) models.Alert {
	alert := models.Alert{
		DetectorID:   d.ID,
		DetectorName: d.Name,
		Location:     d.Location,
		UserID:       d.UserID,
		UserName:     "Unknown",
		Tier:         tier.String(),
		PPM:          r.PPM,
		Timestamp:    r.Timestamp,
		Message:      fmt.Sprintf("PPM: %g", r.PPM),
	}
	owner, err := s.store.GetUser(ctx, d.UserID)
	if err != nil {
		log.Warn("detector owner not found", "detector_id", d.ID, "user_id", d.UserID)
		return alert
	}
	if owner.Name != "" {
		alert.UserName = owner.Name
	}
	alert.UserEmail = owner.Email
	alert.Notify = owner.NotificationsEnabled
	return alert
}
