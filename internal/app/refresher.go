package app

import (
	"context"
	"time"

	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/snapshot"
)

// summaryObserver 汇总结果的接收方（Prometheus 指标）
type summaryObserver interface {
	Observe(s *dashboard.Summary)
	RefreshFailed()
}

// refresher 定时重算仪表盘汇总并更新指标
type refresher struct {
	src        snapshot.Source
	aggregator *dashboard.Aggregator
	observer   summaryObserver
	interval   time.Duration
	now        func() time.Time
}

func newRefresher(src snapshot.Source, aggregator *dashboard.Aggregator, observer summaryObserver, interval time.Duration) *refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &refresher{
		src:        src,
		aggregator: aggregator,
		observer:   observer,
		interval:   interval,
		now:        time.Now,
	}
}

// Run 启动后立即刷新一次，之后按间隔刷新，直到 ctx 取消
func (r *refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh 部分集合加载失败时保留上一次的指标
func (r *refresher) refresh(ctx context.Context) *dashboard.Summary {
	snap, err := snapshot.Load(ctx, r.src, r.now())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		r.observer.RefreshFailed()
		log.Error("summary refresh failed", err)
		return nil
	}
	if !snap.Complete() {
		r.observer.RefreshFailed()
		log.Warn("summary refresh skipped, partial snapshot", "error", snap.Err())
		return nil
	}

	summary := r.aggregator.Aggregate(snap.Users, snap.Detectors, snap.Readings, snap.LoadedAt)
	r.observer.Observe(summary)
	if summary.MalformedReadings > 0 || summary.DanglingDetectors > 0 || summary.OrphanReadings > 0 {
		log.Warn("data anomalies detected",
			"malformed_readings", summary.MalformedReadings,
			"dangling_detectors", summary.DanglingDetectors,
			"orphan_readings", summary.OrphanReadings)
	}
	return summary
}
