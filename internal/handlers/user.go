package handlers

import (
	"net/http"

	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/models"
)

// ListUsers 用户列表（裸数组），支持 ?search=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboard.UserQuery{Search: r.URL.Query().Get("search")}.Apply(users))
}

type createUserRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Address              string `json:"address"`
	Registered           string `json:"registered"`
	NotificationsEnabled *bool  `json:"notifications_enabled"`
}

// CreateUser 创建用户
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	u := &models.User{
		Name:                 req.Name,
		Email:                req.Email,
		Address:              req.Address,
		Registered:           req.Registered,
		NotificationsEnabled: true,
	}
	if req.NotificationsEnabled != nil {
		u.NotificationsEnabled = *req.NotificationsEnabled
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("user created", "user_id", u.ID)
	WriteCreated(w, u)
}

// DeleteUser 删除用户及其探测器
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("user deleted", "user_id", id)
	WriteSuccess(w, map[string]int64{"deleted": id})
}
