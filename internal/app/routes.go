package app

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/gonglijing/alertfi/internal/auth"
	"github.com/gonglijing/alertfi/internal/handlers"
	"github.com/gonglijing/alertfi/internal/metrics"
)

// routeDeps 路由依赖
type routeDeps struct {
	handler     *handlers.Handler
	auth        *auth.JWTManager
	alerts      http.Handler // WebSocket 告警推送
	metrics     *metrics.Metrics
	ingestLimit *handlers.RateLimiter
}

func buildRouter(d routeDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrumentMiddleware(d.metrics))

	registerAPIRoutes(r, d)
	registerWebSocketRoutes(r, d)
	registerHealthRoutes(r, d)

	return r
}

func registerAPIRoutes(r *mux.Router, d routeDeps) {
	h := d.handler
	api := r.PathPrefix("/api").Subrouter()
	api.Use(gorillahandlers.CompressHandler)

	api.HandleFunc("/admin/login/", h.Login).Methods("POST")
	api.Handle("/esp32/data/", d.ingestLimit.Middleware(http.HandlerFunc(h.ReceiveESP32Data))).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(d.auth.RequireAdmin)

	registerUserRoutes(admin, h)
	registerDetectorRoutes(admin, h)
	registerReadingRoutes(admin, h)

	admin.HandleFunc("/dashboard/", h.Dashboard).Methods("GET")
	admin.HandleFunc("/password/", h.ChangePassword).Methods("PUT")
}

func registerUserRoutes(admin *mux.Router, h *handlers.Handler) {
	admin.HandleFunc("/users/", h.ListUsers).Methods("GET")
	admin.HandleFunc("/users/", h.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{id:[0-9]+}/", h.DeleteUser).Methods("DELETE")
}

func registerDetectorRoutes(admin *mux.Router, h *handlers.Handler) {
	admin.HandleFunc("/detectors/", h.ListDetectors).Methods("GET")
	admin.HandleFunc("/detectors/", h.CreateDetector).Methods("POST")
	admin.HandleFunc("/detectors/status/", h.DetectorStatus).Methods("GET")
	admin.HandleFunc("/detectors/{id:[0-9]+}/", h.UpdateDetector).Methods("PATCH")
	admin.HandleFunc("/detectors/{id:[0-9]+}/", h.DeleteDetector).Methods("DELETE")
}

func registerReadingRoutes(admin *mux.Router, h *handlers.Handler) {
	admin.HandleFunc("/readings/", h.ListReadings).Methods("GET")
	admin.HandleFunc("/logs/", h.Logs).Methods("GET")
	admin.HandleFunc("/logs/export/", h.ExportLogs).Methods("GET")
}

// registerWebSocketRoutes 不经过压缩，升级需要原始连接
func registerWebSocketRoutes(r *mux.Router, d routeDeps) {
	r.Handle("/ws/alerts/", d.auth.RequireAdminWS(d.alerts)).Methods("GET")
}

func registerHealthRoutes(r *mux.Router, d routeDeps) {
	r.HandleFunc("/health", d.handler.Health).Methods("GET")
	r.HandleFunc("/ready", d.handler.Readiness).Methods("GET")
	r.HandleFunc("/live", handlers.Liveness).Methods("GET")
	r.Handle("/metrics", d.metrics.Handler()).Methods("GET")
}
