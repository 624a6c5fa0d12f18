package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthStatus 健康检查状态
type HealthStatus struct {
	Status    string           `json:"status"` // healthy, degraded
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
	System    SystemInfo       `json:"system"`
}

// Check 单个检查项
type Check struct {
	Status  string `json:"status"` // pass, fail
	Message string `json:"message,omitempty"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion  string  `json:"go_version"`
	Goroutines int     `json:"goroutines"`
	MemoryMB   float64 `json:"memory_mb"`
}

// startTime 程序启动时间
var startTime = time.Now()

// Health 健康检查接口，部分检查失败也返回 200
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: h.now(),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Checks:    make(map[string]Check),
		System: SystemInfo{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			MemoryMB:   float64(m.Alloc) / 1024 / 1024,
		},
	}

	if err := h.checkDatabase(r.Context()); err != nil {
		status.Checks["database"] = Check{Status: "fail", Message: err.Error()}
		status.Status = "degraded"
	} else {
		status.Checks["database"] = Check{Status: "pass", Message: "Connected"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

// Readiness 就绪检查接口
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.checkDatabase(r.Context()); err != nil {
		http.Error(w, "Not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Liveness 存活检查接口
func Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.store.Ping(ctx)
}
