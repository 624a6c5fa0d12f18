package handlers

import (
	"net/http"

	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/snapshot"
)

// dashboardResponse 汇总结果，集合加载失败时标记 partial
type dashboardResponse struct {
	*dashboard.Summary
	Partial bool              `json:"partial"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Dashboard 仪表盘统计
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	summary := dashboard.NewAggregator(h.evaluator).Aggregate(snap.Users, snap.Detectors, snap.Readings, snap.LoadedAt)

	resp := dashboardResponse{Summary: summary, Partial: !snap.Complete()}
	if resp.Partial {
		resp.Errors = make(map[string]string, len(snap.Errors))
		for _, c := range []snapshot.Collection{snapshot.Users, snapshot.Detectors, snapshot.Readings} {
			if snap.Failed(c) {
				// 不向客户端暴露内部错误
				resp.Errors[string(c)] = "unavailable"
			}
		}
	}
	WriteSuccess(w, resp)
}
