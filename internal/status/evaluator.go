package status

import (
	"time"

	"github.com/gonglijing/alertfi/internal/models"
)

// DefaultOfflineThreshold 超过该时长未上报即视为离线
const DefaultOfflineThreshold = 2 * time.Hour

// HealthStatus 探测器派生状态（不持久化）
// SensorOn 与 IsOnline 相互独立：前者是开关标志，后者只看上报时效。
type HealthStatus struct {
	DetectorID        int64           `json:"detector_id"`
	Tier              Tier            `json:"tier"`
	IsOnline          bool            `json:"is_online"`
	SensorOn          bool            `json:"sensor_on"`
	LatestReading     *models.Reading `json:"latest_reading"`
	LastReportAt      *time.Time      `json:"last_report_at,omitempty"`
	MalformedReadings int             `json:"malformed_readings,omitempty"`
}

// Evaluator 健康状态评估器
type Evaluator struct {
	OfflineThreshold time.Duration
}

// NewEvaluator 创建评估器，threshold<=0 时使用默认值
func NewEvaluator(threshold time.Duration) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultOfflineThreshold
	}
	return &Evaluator{OfflineThreshold: threshold}
}

// Evaluate 根据探测器的全部记录和 now 计算健康状态
func (e *Evaluator) Evaluate(d models.Detector, readings []models.Reading, now time.Time) HealthStatus {
	return e.FromResolution(d, Resolve(d.ID, readings), now)
}

// FromResolution 使用已解析的最新记录计算健康状态
func (e *Evaluator) FromResolution(d models.Detector, res Resolution, now time.Time) HealthStatus {
	hs := HealthStatus{
		DetectorID:        d.ID,
		Tier:              TierUnknown,
		SensorOn:          d.SensorOn,
		MalformedReadings: res.Malformed,
	}
	if !res.Found() {
		return hs
	}

	at := res.At
	hs.Tier = Classify(res.Reading.Status)
	hs.LatestReading = res.Reading
	hs.LastReportAt = &at
	hs.IsOnline = now.Sub(at) <= e.threshold()
	return hs
}

func (e *Evaluator) threshold() time.Duration {
	if e == nil || e.OfflineThreshold <= 0 {
		return DefaultOfflineThreshold
	}
	return e.OfflineThreshold
}

// Evaluate 使用显式阈值的便捷函数
func Evaluate(d models.Detector, readings []models.Reading, now time.Time, offlineThreshold time.Duration) HealthStatus {
	return NewEvaluator(offlineThreshold).Evaluate(d, readings, now)
}
