package handlers

import (
	"net/http"

	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/database"
	"github.com/gonglijing/alertfi/internal/models"
)

// ListDetectors 探测器列表（裸数组），支持 ?user=
func (h *Handler) ListDetectors(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64(r, "user")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var detectors []models.Detector
	if userID > 0 {
		detectors, err = h.store.ListDetectorsByUser(r.Context(), userID)
	} else {
		detectors, err = h.store.ListDetectors(r.Context())
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detectors)
}

type createDetectorRequest struct {
	Name     string `json:"name"`
	UserID   int64  `json:"user"`
	Location string `json:"location"`
	SensorOn *bool  `json:"sensor_on"`
}

// CreateDetector 创建探测器
func (h *Handler) CreateDetector(w http.ResponseWriter, r *http.Request) {
	var req createDetectorRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.UserID <= 0 {
		WriteBadRequest(w, r, "user is required")
		return
	}
	d := &models.Detector{Name: req.Name, UserID: req.UserID, Location: req.Location, SensorOn: true}
	if req.SensorOn != nil {
		d.SensorOn = *req.SensorOn
	}
	if err := h.store.CreateDetector(r.Context(), d); err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("detector created", "detector_id", d.ID, "user_id", d.UserID)
	WriteCreated(w, d)
}

type updateDetectorRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	UserID   *int64  `json:"user"`
	SensorOn *bool   `json:"sensor_on"`
}

func (req updateDetectorRequest) onlySensor() bool {
	return req.SensorOn != nil && req.Name == nil && req.Location == nil && req.UserID == nil
}

// UpdateDetector 部分更新探测器（名称、位置、所属用户、传感器开关）
func (h *Handler) UpdateDetector(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req updateDetectorRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	if req.onlySensor() {
		err = h.store.SetSensorOn(r.Context(), id, *req.SensorOn)
	} else {
		err = h.store.UpdateDetector(r.Context(), id, database.DetectorUpdate{
			Name:     req.Name,
			Location: req.Location,
			UserID:   req.UserID,
			SensorOn: req.SensorOn,
		})
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	d, err := h.store.GetDetector(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("detector updated", "detector_id", id)
	WriteSuccess(w, d)
}

// DeleteDetector 删除探测器
func (h *Handler) DeleteDetector(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.store.DeleteDetector(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("detector deleted", "detector_id", id)
	WriteSuccess(w, map[string]int64{"deleted": id})
}

// detectorStatusResponse 分页结果附带位置下拉选项
type detectorStatusResponse struct {
	PaginatedResponse
	Locations []string `json:"locations"`
	Partial   bool     `json:"partial,omitempty"`
}

// DetectorStatus 探测器页：健康状态、筛选和分页
func (h *Handler) DetectorStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rows := dashboard.DetectorRows(snap.Users, snap.Detectors, snap.Readings, h.evaluator, snap.LoadedAt)

	q := r.URL.Query()
	filtered := dashboard.DetectorQuery{
		Search:   q.Get("search"),
		Location: q.Get("location"),
		Status:   q.Get("status"),
		Online:   q.Get("online"),
	}.Apply(rows)

	WriteSuccess(w, detectorStatusResponse{
		PaginatedResponse: Paginate(filtered, GetPagination(r, defaultPageSize)),
		Locations:         dashboard.Locations(rows),
		Partial:           !snap.Complete(),
	})
}
