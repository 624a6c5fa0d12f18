// Package circuit 外部依赖（远程 API、邮件服务）调用熔断
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gonglijing/alertfi/internal/logger"
)

var log = logger.Named("circuit")

// CircuitState 熔断器状态
type CircuitState int

const (
	Closed   CircuitState = iota // 关闭状态，正常运行
	Open                         // 打开状态，拒绝请求
	HalfOpen                     // 半开状态，尝试恢复
)

// String 返回状态字符串
func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	FailureThreshold int           // 失败次数阈值
	FailureWindow    time.Duration // 失败计数时间窗口
	SuccessThreshold int           // 半开状态下成功次数阈值
	RecoveryTimeout  time.Duration // 恢复尝试间隔
	RequestTimeout   time.Duration // 单个请求超时，0 表示不限制

	// OnStateChange 状态变化回调，在锁外调用
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		FailureWindow:    time.Minute,
		SuccessThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
		RequestTimeout:   10 * time.Second,
	}
}

// ErrOpen 熔断打开时返回的错误可用 errors.Is 判断
var ErrOpen = errors.New("circuit breaker is open")

// CircuitOpenError 熔断器打开错误
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return "circuit breaker " + e.Name + " is open, retry after " + e.RetryAfter.String()
}

// Is 支持 errors.Is(err, ErrOpen)
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrOpen
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	name   string
	config *Config
	now    func() time.Time

	mu           sync.Mutex
	state        CircuitState
	failures     []time.Time // 窗口内失败时间
	successes    int         // 半开状态下连续成功次数
	lastFailure  time.Time
	requestCount int64
	failureCount int64
	successCount int64
	rejectCount  int64
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  Closed,
	}
}

// Name 熔断器名称
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute 执行受保护的函数
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error { return fn() })
}

// ExecuteContext 执行受保护的函数，配置了 RequestTimeout 时附加超时
// 调用方取消 ctx 不计入失败。
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	callCtx := ctx
	if cb.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.config.RequestTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && ctx.Err() != nil {
		cb.release()
		return err
	}
	cb.after(err == nil)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	cb.requestCount++
	from := cb.state
	allowed := cb.allowLocked()
	to := cb.state
	if !allowed {
		cb.rejectCount++
	}
	retry := cb.retryAfterLocked()
	cb.mu.Unlock()

	cb.notify(from, to)
	if !allowed {
		return &CircuitOpenError{Name: cb.name, RetryAfter: retry}
	}
	return nil
}

// release 被调用方取消的请求不影响状态
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	cb.requestCount--
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) allowLocked() bool {
	switch cb.state {
	case Open:
		if cb.now().Sub(cb.lastFailure) >= cb.config.RecoveryTimeout {
			cb.toLocked(HalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) after(success bool) {
	cb.mu.Lock()
	from := cb.state
	now := cb.now()

	if success {
		cb.successCount++
		if cb.state == HalfOpen {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.toLocked(Closed)
			}
		}
	} else {
		cb.failureCount++
		cb.lastFailure = now
		cb.failures = append(cb.failures, now)
		cb.pruneLocked(now)

		switch cb.state {
		case HalfOpen:
			cb.toLocked(Open)
		case Closed:
			if len(cb.failures) >= cb.config.FailureThreshold {
				cb.toLocked(Open)
			}
		}
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

func (cb *CircuitBreaker) toLocked(state CircuitState) {
	cb.state = state
	cb.successes = 0
	if state != Open {
		cb.failures = cb.failures[:0]
	}
}

func (cb *CircuitBreaker) notify(from, to CircuitState) {
	if from == to {
		return
	}
	if to == Open {
		log.Warn("circuit breaker state changed", "name", cb.name, "from", from.String(), "to", to.String())
	} else {
		log.Info("circuit breaker state changed", "name", cb.name, "from", from.String(), "to", to.String())
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

// pruneLocked 清理窗口外的失败记录
func (cb *CircuitBreaker) pruneLocked(now time.Time) {
	windowStart := now.Add(-cb.config.FailureWindow)
	kept := cb.failures[:0]
	for _, t := range cb.failures {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	cb.failures = kept
}

func (cb *CircuitBreaker) retryAfterLocked() time.Duration {
	if cb.state != Open {
		return 0
	}
	d := cb.config.RecoveryTimeout - cb.now().Sub(cb.lastFailure)
	if d < 0 {
		return 0
	}
	return d
}

// State 获取当前状态
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.toLocked(Closed)
	cb.failures = cb.failures[:0]
	cb.requestCount = 0
	cb.failureCount = 0
	cb.successCount = 0
	cb.rejectCount = 0
	cb.mu.Unlock()
	cb.notify(from, Closed)
}

// Stats 熔断器统计
type Stats struct {
	Name         string  `json:"name"`
	State        string  `json:"state"`
	RequestCount int64   `json:"request_count"`
	FailureCount int64   `json:"failure_count"`
	SuccessCount int64   `json:"success_count"`
	RejectCount  int64   `json:"reject_count"`
	FailureRate  float64 `json:"failure_rate"`
	RetryAfter   string  `json:"retry_after,omitempty"`
}

// Stats 获取统计信息
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{
		Name:         cb.name,
		State:        cb.state.String(),
		RequestCount: cb.requestCount,
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
		RejectCount:  cb.rejectCount,
	}
	if total := cb.failureCount + cb.successCount; total > 0 {
		s.FailureRate = float64(cb.failureCount) / float64(total)
	}
	if retry := cb.retryAfterLocked(); retry > 0 {
		s.RetryAfter = retry.String()
	}
	return s
}
