// =============================================================================
// 熔断器模块单元测试
// =============================================================================
package circuit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg *Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 5, 27, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", cfg)
	cb.now = clock.Now
	return cb, clock
}

var errBoom = errors.New("boom")

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half_open"},
		{CircuitState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("String() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", config.FailureThreshold)
	}
	if config.FailureWindow != time.Minute {
		t.Errorf("FailureWindow = %v, want 1m", config.FailureWindow)
	}
	if config.SuccessThreshold != 3 {
		t.Errorf("SuccessThreshold = %d, want 3", config.SuccessThreshold)
	}
	if config.RecoveryTimeout != 30*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 30s", config.RecoveryTimeout)
	}
}

// ==================== 状态迁移 ====================

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 3, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Second})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); err != errBoom {
			t.Fatalf("call %d err = %v", i, err)
		}
	}
	if cb.State() != Open {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if called {
		t.Fatal("function must not run while open")
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) || openErr.Name != "test" || openErr.RetryAfter != time.Second {
		t.Fatalf("open error = %+v", openErr)
	}
}

func TestCircuitBreaker_FailuresOutsideWindow(t *testing.T) {
	cb, clock := newTestBreaker(&Config{FailureThreshold: 2, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Second})

	_ = cb.Execute(func() error { return errBoom })
	clock.Advance(2 * time.Minute)
	_ = cb.Execute(func() error { return errBoom })

	if cb.State() != Closed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cfg := &Config{
		FailureThreshold: 1,
		FailureWindow:    time.Minute,
		SuccessThreshold: 2,
		RecoveryTimeout:  10 * time.Second,
		OnStateChange: func(name string, from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}
	cb, clock := newTestBreaker(cfg)

	_ = cb.Execute(func() error { return errBoom })
	clock.Advance(10 * time.Second)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe err = %v", err)
	}
	if cb.State() != HalfOpen {
		t.Fatalf("state = %s, want half_open", cb.State())
	}
	_ = cb.Execute(func() error { return nil })
	if cb.State() != Closed {
		t.Fatalf("state = %s, want closed", cb.State())
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(&Config{FailureThreshold: 1, FailureWindow: time.Minute, SuccessThreshold: 2, RecoveryTimeout: time.Second})

	_ = cb.Execute(func() error { return errBoom })
	clock.Advance(time.Second)
	_ = cb.Execute(func() error { return errBoom })

	if cb.State() != Open {
		t.Fatalf("state = %s, want open", cb.State())
	}
}

// ==================== 上下文 ====================

func TestExecuteContext_RequestTimeout(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 1, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Minute, RequestTimeout: 10 * time.Millisecond})

	err := cb.ExecuteContext(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if cb.State() != Open {
		t.Fatalf("timeout should count as failure, state = %s", cb.State())
	}
}

func TestExecuteContext_CallerCancelIgnored(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 1, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if cb.State() != Closed {
		t.Fatalf("caller cancel must not trip the breaker, state = %s", cb.State())
	}
	if s := cb.Stats(); s.FailureCount != 0 || s.RequestCount != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestStatsAndReset(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 2, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })

	s := cb.Stats()
	if s.RequestCount != 4 || s.SuccessCount != 1 || s.FailureCount != 2 || s.RejectCount != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.State != "open" || s.RetryAfter == "" {
		t.Fatalf("stats = %+v", s)
	}

	cb.Reset()
	if s := cb.Stats(); s.State != "closed" || s.RequestCount != 0 {
		t.Fatalf("after reset = %+v", s)
	}
}
