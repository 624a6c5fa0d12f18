package handlers

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/export"
	"github.com/gonglijing/alertfi/internal/models"
)

// ListReadings 上报记录（裸数组），支持 ?detector=
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	detectorID, err := queryInt64(r, "detector")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var readings []models.Reading
	if detectorID > 0 {
		readings, err = h.store.ListReadingsByDetector(r.Context(), detectorID)
	} else {
		readings, err = h.store.ListReadings(r.Context())
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, readings)
}

// logRows 日志页数据：新的在前，按查询参数筛选
func (h *Handler) logRows(r *http.Request) ([]dashboard.LogRow, error) {
	ctx := r.Context()
	detectors, err := h.store.ListDetectors(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := h.store.ListReadings(ctx)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	return dashboard.LogQuery{Search: q.Get("search"), Status: q.Get("status")}.Apply(dashboard.LogRows(detectors, readings)), nil
}

// Logs 日志页
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	rows, err := h.logRows(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteSuccess(w, Paginate(rows, GetPagination(r, defaultPageSize)))
}

// ExportLogs 导出筛选后的日志 CSV
func (h *Handler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	rows, err := h.logRows(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	body := export.ToCSVWithOptions(rows, dashboard.LogColumns(h.layout), h.exportOpt)
	name := export.Filename("logs", strings.TrimSpace(r.URL.Query().Get("status")), h.now())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
