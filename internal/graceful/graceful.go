// Package graceful 信号驱动的优雅关闭
package graceful

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gonglijing/alertfi/internal/logger"
)

var log = logger.Named("graceful")

// Shutdowner 可关闭的服务（*http.Server 满足该接口）
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ShutdownFunc 关闭函数类型
type ShutdownFunc func(ctx context.Context) error

type namedFunc struct {
	name string
	fn   ShutdownFunc
}

// GracefulShutdown 优雅关闭管理器
// 后台任务通过 Context() 感知关闭；关闭顺序为 HTTP 服务、后台任务、注册函数（逆序）。
type GracefulShutdown struct {
	timeout       time.Duration
	shutdownFuncs []namedFunc
	httpServer    Shutdowner
	notifyChan    chan os.Signal
	once          sync.Once
	mu            sync.Mutex
	wg            sync.WaitGroup
	workers       sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewGracefulShutdown 创建优雅关闭管理器
func NewGracefulShutdown(timeout time.Duration) *GracefulShutdown {
	ctx, cancel := context.WithCancel(context.Background())
	return &GracefulShutdown{
		timeout:    timeout,
		notifyChan: make(chan os.Signal, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// AddShutdownFunc 添加关闭函数
func (g *GracefulShutdown) AddShutdownFunc(name string, f ShutdownFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shutdownFuncs = append(g.shutdownFuncs, namedFunc{name: name, fn: f})
}

// SetHTTPServer 设置HTTP服务器
func (g *GracefulShutdown) SetHTTPServer(srv Shutdowner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.httpServer = srv
}

// Go 启动后台任务，关闭时等待其退出
func (g *GracefulShutdown) Go(name string, fn func(ctx context.Context)) {
	g.workers.Add(1)
	go func() {
		defer g.workers.Done()
		fn(g.ctx)
		log.Debug("background task stopped", "task", name)
	}()
}

// Context 关闭开始时被取消
func (g *GracefulShutdown) Context() context.Context {
	return g.ctx
}

// Done 关闭完成后关闭的通道
func (g *GracefulShutdown) Done() <-chan struct{} {
	return g.done
}

// Start 启动信号监听
func (g *GracefulShutdown) Start() {
	signal.Notify(g.notifyChan, syscall.SIGINT, syscall.SIGTERM)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		select {
		case sig := <-g.notifyChan:
			log.Info("received shutdown signal", "signal", sig.String())
			g.Shutdown()
		case <-g.done:
		}
	}()
}

// Shutdown 执行关闭，多次调用只生效一次
func (g *GracefulShutdown) Shutdown() {
	g.once.Do(func() {
		defer close(g.done)
		signal.Stop(g.notifyChan)

		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		g.mu.Lock()
		srv := g.httpServer
		funcs := append([]namedFunc(nil), g.shutdownFuncs...)
		g.mu.Unlock()

		if srv != nil {
			log.Info("shutting down HTTP server")
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("HTTP server shutdown failed", err)
			}
		}

		g.cancel()
		if !waitTimeout(&g.workers, ctx) {
			log.Warn("background tasks did not stop before timeout")
		}

		for i := len(funcs) - 1; i >= 0; i-- {
			f := funcs[i]
			if err := f.fn(ctx); err != nil {
				log.Error("shutdown function failed", err, "name", f.name)
			}
		}

		log.Info("graceful shutdown completed")
	})
}

func waitTimeout(wg *sync.WaitGroup, ctx context.Context) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Wait 等待关闭完成
func (g *GracefulShutdown) Wait() {
	<-g.done
	g.wg.Wait()
}

// WithTimeout 创建带超时的上下文
func (g *GracefulShutdown) WithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.timeout)
}
