package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type rateState struct {
	mu    sync.Mutex
	times []time.Time
}

// RateLimiter 按客户端 IP 的滑动窗口限流
type RateLimiter struct {
	requests sync.Map // key:string(ip) -> *rateState
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter 创建限流器，requestsPerMinute<=0 表示不限流
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limit:  requestsPerMinute,
		window: time.Minute,
		now:    time.Now,
	}
}

func (rl *RateLimiter) getOrCreateState(ip string) *rateState {
	if existing, ok := rl.requests.Load(ip); ok {
		return existing.(*rateState)
	}
	actual, _ := rl.requests.LoadOrStore(ip, &rateState{})
	return actual.(*rateState)
}

func trimRecentTimes(times []time.Time, windowStart time.Time) []time.Time {
	writeIdx := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[writeIdx] = t
			writeIdx++
		}
	}
	return times[:writeIdx]
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(ip string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}

	state := rl.getOrCreateState(ip)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := rl.now()
	state.times = trimRecentTimes(state.times, now.Add(-rl.window))
	if len(state.times) >= rl.limit {
		return false
	}
	state.times = append(state.times, now)
	return true
}

// Middleware 限流中间件
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			WriteJSON(w, http.StatusTooManyRequests, APIResponse{Error: "Rate limit exceeded", Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type bruteForceState struct {
	mu           sync.Mutex
	failures     []time.Time
	blockedUntil time.Time
}

// BruteForceLimiter 登录失败次数过多时临时封禁 IP
type BruteForceLimiter struct {
	states    sync.Map // key:string(ip) -> *bruteForceState
	limit     int
	window    time.Duration
	blockTime time.Duration
	now       func() time.Time
}

// NewBruteForceLimiter 创建暴力破解防护器
func NewBruteForceLimiter(maxFailures int, blockDuration time.Duration) *BruteForceLimiter {
	return &BruteForceLimiter{
		limit:     maxFailures,
		window:    15 * time.Minute,
		blockTime: blockDuration,
		now:       time.Now,
	}
}

func (b *BruteForceLimiter) getOrCreateState(ip string) *bruteForceState {
	if existing, ok := b.states.Load(ip); ok {
		return existing.(*bruteForceState)
	}
	actual, _ := b.states.LoadOrStore(ip, &bruteForceState{})
	return actual.(*bruteForceState)
}

// RecordFailure 记录登录失败
func (b *BruteForceLimiter) RecordFailure(ip string) {
	state := b.getOrCreateState(ip)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := b.now()
	if now.Before(state.blockedUntil) {
		return
	}
	state.failures = trimRecentTimes(state.failures, now.Add(-b.window))
	state.failures = append(state.failures, now)
	if len(state.failures) >= b.limit {
		state.blockedUntil = now.Add(b.blockTime)
		state.failures = state.failures[:0]
		log.Warn("login blocked after repeated failures", "ip", ip, "until", state.blockedUntil.Format(time.RFC3339))
	}
}

// RecordSuccess 记录登录成功
func (b *BruteForceLimiter) RecordSuccess(ip string) {
	state := b.getOrCreateState(ip)
	state.mu.Lock()
	state.failures = state.failures[:0]
	state.blockedUntil = time.Time{}
	state.mu.Unlock()
}

// BlockStatus 返回封禁状态和剩余时间
func (b *BruteForceLimiter) BlockStatus(ip string) (bool, time.Duration) {
	state := b.getOrCreateState(ip)
	state.mu.Lock()
	defer state.mu.Unlock()

	if remaining := state.blockedUntil.Sub(b.now()); remaining > 0 {
		return true, remaining
	}
	state.blockedUntil = time.Time{}
	return false, 0
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
