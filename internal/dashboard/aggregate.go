// Package dashboard 管理后台各页面的统计与视图行
package dashboard

import (
	"time"

	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/status"
)

// 关联缺失时的展示值
const (
	UnknownLabel = "Unknown"
	NoAddress    = "No address"
)

// ZoneCount 区域触发计数，Percent 为相对最大值的百分比
type ZoneCount struct {
	Zone    string  `json:"zone"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TriggeredDetector 最近触发（Danger / Warning）的探测器
type TriggeredDetector struct {
	DetectorID   int64       `json:"detector_id"`
	DetectorName string      `json:"detector_name"`
	User         string      `json:"user"`
	Address      string      `json:"address"`
	Status       status.Tier `json:"status"`
	LastReport   time.Time   `json:"last_report"`
}

// Summary 仪表盘统计结果
type Summary struct {
	TotalUsers        int                 `json:"total_users"`
	TotalDetectors    int                 `json:"total_detectors"`
	HighRisk          int                 `json:"high_risk"`
	Offline           int                 `json:"offline"`
	Zones             []ZoneCount         `json:"zones"`
	Recent            []TriggeredDetector `json:"recent"`
	MalformedReadings int                 `json:"malformed_readings"`
	DanglingDetectors int                 `json:"dangling_detectors"`
	OrphanReadings    int                 `json:"orphan_readings"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// ZoneMap 区域计数的普通映射形式
func (s *Summary) ZoneMap() map[string]int {
	out := make(map[string]int, len(s.Zones))
	for _, z := range s.Zones {
		out[z.Zone] = z.Count
	}
	return out
}

// Aggregator 仪表盘统计器
type Aggregator struct {
	evaluator *status.Evaluator
}

// NewAggregator 创建统计器，evaluator 为 nil 时使用默认阈值
func NewAggregator(evaluator *status.Evaluator) *Aggregator {
	if evaluator == nil {
		evaluator = status.NewEvaluator(0)
	}
	return &Aggregator{evaluator: evaluator}
}

// Aggregate 计算总数、高风险数、离线数和区域分布
func (a *Aggregator) Aggregate(users []models.User, detectors []models.Detector, readings []models.Reading, now time.Time) *Summary {
	s := &Summary{
		TotalUsers:     len(users),
		TotalDetectors: len(detectors),
		Zones:          []ZoneCount{},
		Recent:         []TriggeredDetector{},
		GeneratedAt:    now,
	}

	owners := indexUsers(users)
	latest := status.LatestByDetector(readings)
	known := make(map[int64]struct{}, len(detectors))
	zoneIdx := make(map[string]int)

	for _, d := range detectors {
		known[d.ID] = struct{}{}
		res := latest[d.ID]
		hs := a.evaluator.FromResolution(d, res, now)
		s.MalformedReadings += res.Malformed

		owner, ok := owners[d.UserID]
		if !ok {
			s.DanglingDetectors++
		}

		if !hs.IsOnline {
			s.Offline++
		}
		if hs.Tier == status.TierDanger {
			s.HighRisk++
			zone := zoneOf(owner, ok)
			if i, seen := zoneIdx[zone]; seen {
				s.Zones[i].Count++
			} else {
				zoneIdx[zone] = len(s.Zones)
				s.Zones = append(s.Zones, ZoneCount{Zone: zone, Count: 1})
			}
		}
		if hs.Tier.Triggered() {
			s.Recent = append(s.Recent, TriggeredDetector{
				DetectorID:   d.ID,
				DetectorName: d.Name,
				User:         userLabel(owner, ok),
				Address:      zoneOf(owner, ok),
				Status:       hs.Tier,
				LastReport:   res.At,
			})
		}
	}

	for id, res := range latest {
		if _, ok := known[id]; !ok {
			s.OrphanReadings += countFor(id, readings)
			s.MalformedReadings += res.Malformed
		}
	}

	fillPercent(s.Zones)
	return s
}

func fillPercent(zones []ZoneCount) {
	max := 0
	for _, z := range zones {
		if z.Count > max {
			max = z.Count
		}
	}
	if max == 0 {
		return
	}
	for i := range zones {
		zones[i].Percent = float64(zones[i].Count) / float64(max) * 100
	}
}

func countFor(detectorID int64, readings []models.Reading) int {
	n := 0
	for _, r := range readings {
		if r.DetectorID == detectorID {
			n++
		}
	}
	return n
}

func indexUsers(users []models.User) map[int64]models.User {
	out := make(map[int64]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}

func zoneOf(u models.User, ok bool) string {
	if !ok || u.Address == "" {
		return NoAddress
	}
	return u.Address
}

// userLabel 用户展示名：姓名，其次邮箱
func userLabel(u models.User, ok bool) string {
	switch {
	case !ok:
		return UnknownLabel
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return UnknownLabel
}
