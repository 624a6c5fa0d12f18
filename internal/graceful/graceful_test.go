package graceful

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeServer struct {
	mu     sync.Mutex
	called bool
}

func (s *fakeServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called = true
	return nil
}

func TestGracefulShutdown_RunsFuncsOnceInReverseOrder(t *testing.T) {
	g := NewGracefulShutdown(2 * time.Second)

	var order []string
	g.AddShutdownFunc("database", func(ctx context.Context) error {
		order = append(order, "database")
		return nil
	})
	g.AddShutdownFunc("mqtt", func(ctx context.Context) error {
		order = append(order, "mqtt")
		return errors.New("ignored")
	})

	g.Shutdown()
	g.Shutdown()

	if len(order) != 2 || order[0] != "mqtt" || order[1] != "database" {
		t.Fatalf("order = %v, want [mqtt database]", order)
	}
}

func TestGracefulShutdown_HTTPServerShutdown(t *testing.T) {
	g := NewGracefulShutdown(2 * time.Second)
	fs := &fakeServer{}
	g.SetHTTPServer(fs)

	g.Shutdown()

	if !fs.called {
		t.Fatalf("expected HTTP server Shutdown to be called")
	}
}

func TestGracefulShutdown_StopsBackgroundTasks(t *testing.T) {
	g := NewGracefulShutdown(2 * time.Second)

	stopped := make(chan struct{})
	g.Go("ticker", func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	g.Shutdown()

	select {
	case <-stopped:
	default:
		t.Fatal("background task should have stopped before Shutdown returned")
	}
	select {
	case <-g.Done():
	default:
		t.Fatal("Done() should be closed")
	}
	if g.Context().Err() == nil {
		t.Fatal("Context() should be canceled")
	}
}

func TestGracefulShutdown_WaitAfterStart(t *testing.T) {
	g := NewGracefulShutdown(time.Second)
	g.Start()

	go g.Shutdown()

	finished := make(chan struct{})
	go func() {
		g.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestGracefulShutdown_WithTimeout(t *testing.T) {
	g := NewGracefulShutdown(100 * time.Millisecond)
	ctx, cancel := g.WithTimeout()
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("expected context to have deadline")
	}
	if time.Until(deadline) <= 0 {
		t.Fatalf("deadline already passed")
	}
}
