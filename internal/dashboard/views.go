package dashboard

import (
	"sort"
	"strconv"
	"time"

	"github.com/gonglijing/alertfi/internal/export"
	"github.com/gonglijing/alertfi/internal/filter"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/status"
)

// DetectorRow 探测器页面行
type DetectorRow struct {
	models.Detector
	UserLabel string              `json:"user_label"`
	Health    status.HealthStatus `json:"health"`
}

// LogRow 日志页面行
type LogRow struct {
	models.Reading
	DetectorName     string `json:"detector_name"`
	DetectorLocation string `json:"detector_location"`
	detectorKnown    bool
}

// DetectorLabel 导出用的探测器 ID，探测器不存在时为 Unknown
func (r LogRow) DetectorLabel() string {
	if !r.detectorKnown {
		return UnknownLabel
	}
	return strconv.FormatInt(r.DetectorID, 10)
}

// DetectorRows 生成探测器行（附带用户名与健康状态）
func DetectorRows(users []models.User, detectors []models.Detector, readings []models.Reading, e *status.Evaluator, now time.Time) []DetectorRow {
	if e == nil {
		e = status.NewEvaluator(0)
	}
	owners := indexUsers(users)
	latest := status.LatestByDetector(readings)
	rows := make([]DetectorRow, 0, len(detectors))
	for _, d := range detectors {
		owner, ok := owners[d.UserID]
		rows = append(rows, DetectorRow{
			Detector:  d,
			UserLabel: userLabel(owner, ok),
			Health:    e.FromResolution(d, latest[d.ID], now),
		})
	}
	return rows
}

// LogRows 为记录附加探测器名称和位置，最新的在前
func LogRows(detectors []models.Detector, readings []models.Reading) []LogRow {
	byID := make(map[int64]models.Detector, len(detectors))
	for _, d := range detectors {
		byID[d.ID] = d
	}
	rows := make([]LogRow, 0, len(readings))
	for _, r := range readings {
		row := LogRow{Reading: r, DetectorName: UnknownLabel}
		if d, ok := byID[r.DetectorID]; ok {
			row.DetectorName = d.Name
			row.DetectorLocation = d.Location
			row.detectorKnown = true
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ti, ei := status.ParseTimestamp(rows[i].Timestamp)
		tj, ej := status.ParseTimestamp(rows[j].Timestamp)
		if ei != nil || ej != nil {
			return ei == nil && ej != nil
		}
		return ti.After(tj)
	})
	return rows
}

// UserQuery 用户页筛选
type UserQuery struct {
	Search string
}

// Apply 按姓名、邮箱、地址搜索
func (q UserQuery) Apply(users []models.User) []models.User {
	return filter.Apply(users, filter.Text(q.Search,
		func(u models.User) string { return u.Name },
		func(u models.User) string { return u.Email },
		func(u models.User) string { return u.Address },
	))
}

// 在线状态下拉选项
const (
	OnlineLabel  = "Online"
	OfflineLabel = "Offline"
)

// Connectivity 在线状态标签
func (r DetectorRow) Connectivity() string {
	if r.Health.IsOnline {
		return OnlineLabel
	}
	return OfflineLabel
}

// DetectorQuery 探测器页筛选
type DetectorQuery struct {
	Search   string
	Location string
	Status   string
	Online   string // Online / Offline
}

// Apply 搜索名称/用户，位置精确匹配，状态按归类后的等级匹配，在线状态精确匹配
func (q DetectorQuery) Apply(rows []DetectorRow) []DetectorRow {
	return filter.Apply(rows,
		filter.Text(q.Search,
			func(r DetectorRow) string { return r.Name },
			func(r DetectorRow) string { return r.UserLabel },
		),
		filter.Equals(q.Location, func(r DetectorRow) string { return r.Location }),
		filter.Equals(q.Status, func(r DetectorRow) string { return r.Health.Tier.String() }),
		filter.Equals(q.Online, DetectorRow.Connectivity),
	)
}

// Locations 位置下拉选项：去重、去空，按首次出现排序
func Locations(rows []DetectorRow) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range rows {
		if r.Location == "" {
			continue
		}
		if _, ok := seen[r.Location]; ok {
			continue
		}
		seen[r.Location] = struct{}{}
		out = append(out, r.Location)
	}
	return out
}

// LogQuery 日志页筛选
type LogQuery struct {
	Search string
	Status string
}

// Apply 按探测器名称/位置搜索，状态归一化比较
func (q LogQuery) Apply(rows []LogRow) []LogRow {
	return filter.Apply(rows,
		filter.Text(q.Search,
			func(r LogRow) string { return r.DetectorName },
			func(r LogRow) string { return r.DetectorLocation },
		),
		filter.Normalized(q.Status, func(r LogRow) string { return r.Status }),
	)
}

// LogColumns 日志导出列，layout 为空时保留原始时间字符串
func LogColumns(layout string) []export.Column[LogRow] {
	return []export.Column[LogRow]{
		{Label: "Detector ID", Value: LogRow.DetectorLabel},
		{Label: "Detector", Value: func(r LogRow) string { return r.DetectorName }},
		{Label: "Location", Value: func(r LogRow) string { return r.DetectorLocation }},
		{Label: "Timestamp", Value: func(r LogRow) string { return formatTime(r.Timestamp, layout) }},
		{Label: "Status Level", Value: func(r LogRow) string { return r.Status }},
		{Label: "PPM", Value: func(r LogRow) string { return formatFloat(r.PPM) }},
		{Label: "Temperature", Value: func(r LogRow) string { return formatFloat(r.Temperature) }},
		{Label: "Humidity", Value: func(r LogRow) string { return formatFloat(r.Humidity) }},
	}
}

func formatTime(raw, layout string) string {
	if layout == "" {
		return raw
	}
	t, err := status.ParseTimestamp(raw)
	if err != nil {
		return raw
	}
	return t.Format(layout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
