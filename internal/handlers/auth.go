package handlers

import (
	"net/http"
	"strconv"

	"github.com/gonglijing/alertfi/internal/auth"
	apperrors "github.com/gonglijing/alertfi/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse 与原管理端保持一致，只返回 access
type loginResponse struct {
	Access string `json:"access"`
}

// Login 管理员登录
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if blocked, remaining := h.login.BlockStatus(ip); blocked {
		w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
		WriteError(w, r, apperrors.ErrRateLimited.WithDetails("too many failed logins"))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	token, admin, err := h.jwt.Login(r.Context(), h.store, req.Email, req.Password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			h.login.RecordFailure(ip)
			log.Warn("login failed", "email", req.Email, "ip", ip)
		}
		WriteError(w, r, err)
		return
	}
	h.login.RecordSuccess(ip)
	h.jwt.SetCookie(w, token)
	log.Info("admin logged in", "admin_id", admin.ID)
	WriteJSON(w, http.StatusOK, loginResponse{Access: token})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword 修改当前管理员密码
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		WriteError(w, r, apperrors.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		WriteBadRequest(w, r, "old_password and new_password are required")
		return
	}
	if err := auth.ChangePassword(r.Context(), h.store, session.UserID, req.OldPassword, req.NewPassword); err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info("admin password changed", "admin_id", session.UserID)
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Password updated"})
}
