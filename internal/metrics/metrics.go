// Package metrics Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gonglijing/alertfi/internal/circuit"
	"github.com/gonglijing/alertfi/internal/dashboard"
)

const namespace = "alertfi"

// Metrics 服务指标，使用独立 Registry 方便测试
type Metrics struct {
	registry *prometheus.Registry

	users         prometheus.Gauge
	detectors     prometheus.Gauge
	highRisk      prometheus.Gauge
	offline       prometheus.Gauge
	zoneTriggered *prometheus.GaugeVec
	anomalies     *prometheus.GaugeVec
	lastRefresh   prometheus.Gauge
	readings      *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	refreshErrors prometheus.Counter
}

// New 创建并注册指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "users",
			Help: "Registered users.",
		}),
		detectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "detectors",
			Help: "Registered detectors.",
		}),
		highRisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "detectors_high_risk",
			Help: "Detectors whose latest reading is Danger.",
		}),
		offline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "detectors_offline",
			Help: "Detectors without a reading inside the offline threshold.",
		}),
		zoneTriggered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "zone_triggered",
			Help: "Danger detectors per zone.",
		}, []string{"zone"}),
		anomalies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "data_anomalies",
			Help: "Data quality problems found in the last snapshot.",
		}, []string{"kind"}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "summary_refreshed_timestamp_seconds",
			Help: "Unix time of the last dashboard refresh.",
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_ingested_total",
			Help: "Readings accepted by source and tier.",
		}, []string{"source", "tier"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_raised_total",
			Help: "Alerts raised by tier.",
		}, []string{"tier"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half open).",
		}, []string{"name"}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "summary_refresh_errors_total",
			Help: "Dashboard refreshes that failed to load a collection.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.users,
		m.detectors,
		m.highRisk,
		m.offline,
		m.zoneTriggered,
		m.anomalies,
		m.lastRefresh,
		m.readings,
		m.alerts,
		m.httpRequests,
		m.httpDuration,
		m.breakerState,
		m.refreshErrors,
	)
	return m
}

// Registry 指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe 用最新汇总刷新仪表盘指标
func (m *Metrics) Observe(s *dashboard.Summary) {
	if s == nil {
		return
	}
	m.users.Set(float64(s.TotalUsers))
	m.detectors.Set(float64(s.TotalDetectors))
	m.highRisk.Set(float64(s.HighRisk))
	m.offline.Set(float64(s.Offline))

	m.zoneTriggered.Reset()
	for _, z := range s.Zones {
		m.zoneTriggered.WithLabelValues(z.Zone).Set(float64(z.Count))
	}
	m.anomalies.WithLabelValues("malformed_timestamp").Set(float64(s.MalformedReadings))
	m.anomalies.WithLabelValues("missing_owner").Set(float64(s.DanglingDetectors))
	m.anomalies.WithLabelValues("missing_detector").Set(float64(s.OrphanReadings))
	m.lastRefresh.Set(float64(s.GeneratedAt.Unix()))
}

// RefreshFailed 记录一次失败的刷新
func (m *Metrics) RefreshFailed() {
	m.refreshErrors.Inc()
}

// ReadingIngested 记录接入的数据
func (m *Metrics) ReadingIngested(source, tier string) {
	m.readings.WithLabelValues(source, tier).Inc()
}

// AlertRaised 记录告警
func (m *Metrics) AlertRaised(tier string) {
	m.alerts.WithLabelValues(tier).Inc()
}

// BreakerStateChanged 可直接作为 circuit.Config.OnStateChange
func (m *Metrics) BreakerStateChanged(name string, _, to circuit.CircuitState) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// ObserveRequest 记录一次 HTTP 请求
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
