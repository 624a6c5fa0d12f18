package app

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/gonglijing/alertfi/internal/config"
	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/metrics"
)

// buildHandlerChain 外层中间件：访问日志 -> CORS -> 路由
func buildHandlerChain(cfg *config.Config, router *mux.Router) http.Handler {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.GetAllowedOrigins()),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillahandlers.ExposedHeaders([]string{"Content-Disposition"}),
		gorillahandlers.AllowCredentials(),
		gorillahandlers.OptionStatusCode(http.StatusNoContent),
	)
	return gorillahandlers.LoggingHandler(logger.Output(), cors(router))
}

// instrumentMiddleware 按路由模板记录请求数和耗时
func instrumentMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			m.ObserveRequest(routeName(r), rw.statusCode, time.Since(start))
		})
	}
}

// routeName 路由模板，避免 ID 进入标签
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// websocketCheckOrigin WebSocket 握手来源校验，与 CORS 使用同一白名单
func websocketCheckOrigin(origins []string) func(r *http.Request) bool {
	allowSet := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		allowSet[trimmed] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		// 非浏览器客户端不带 Origin
		if origin == "" || allowAll {
			return true
		}
		_, ok := allowSet[origin]
		return ok
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Hijack WebSocket 升级需要
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
