package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
)

// APIResponse 统一 API 响应格式
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON 统一 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("encode response failed", "error", err)
	}
}

// WriteSuccess 成功响应
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// WriteCreated 创建成功响应
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError 按 AppError 输出错误，内部错误只记录日志不返回细节
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()
	message := appErr.Message
	if appErr.Details != "" {
		message = appErr.Message + ": " + appErr.Details
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		message = appErr.Message
	}
	WriteJSON(w, status, APIResponse{
		Success: false,
		Error:   message,
		Code:    appErr.Code.String(),
	})
}

// WriteBadRequest 400 错误
func WriteBadRequest(w http.ResponseWriter, r *http.Request, details string) {
	WriteError(w, r, apperrors.ErrBadRequest.WithDetails(details))
}

// decodeJSON 解析 JSON 请求体
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return apperrors.ErrBadRequest.WithDetails("request body is required")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrBadRequest.WithDetails("invalid request body")
	}
	return nil
}

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// ParseID 从 URL 参数解析 ID
func ParseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ErrBadRequest.WithDetails("invalid id")
	}
	return id, nil
}

// queryInt64 读取可选的整数查询参数，缺省返回 0
func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperrors.ErrBadRequest.WithDetails("invalid " + key)
	}
	return v, nil
}
