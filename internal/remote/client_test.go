package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gonglijing/alertfi/internal/circuit"
	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/snapshot"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/login/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "admin@gmail.com" || body["password"] != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access":"tok"}`))
	})
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/api/admin/users/", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Ana","email":"ana@x.com","address":"A","registered":"2025-01-01"}]`))
	}))
	mux.HandleFunc("/api/admin/detectors/", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":3,"name":"Kitchen","user":1,"location":"Kitchen","sensor_on":true}]}`))
	}))
	mux.HandleFunc("/api/admin/readings/", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	sess, err := Login(ctx, srv.Client(), srv.URL, "admin@gmail.com", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token != "tok" || !strings.HasSuffix(sess.BaseURL, "/") {
		t.Fatalf("session = %+v", sess)
	}

	if _, err := Login(ctx, srv.Client(), srv.URL, "admin@gmail.com", "nope"); err != apperrors.ErrInvalidCredentials {
		t.Fatalf("bad password err = %v", err)
	}
}

func TestClient_ListAndSnapshot(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(Session{BaseURL: srv.URL, Token: "tok"}, WithHTTPClient(srv.Client()))

	users, err := c.ListUsers(context.Background())
	if err != nil || len(users) != 1 || users[0].Name != "Ana" {
		t.Fatalf("users = %+v, %v", users, err)
	}
	detectors, err := c.ListDetectors(context.Background())
	if err != nil || len(detectors) != 1 || detectors[0].UserID != 1 {
		t.Fatalf("detectors = %+v, %v", detectors, err)
	}

	snap, err := snapshot.Load(context.Background(), c, time.Now())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Complete() || !snap.Failed(snapshot.Readings) {
		t.Fatalf("readings should fail, errors = %v", snap.Errors)
	}
	if len(snap.Users) != 1 || len(snap.Detectors) != 1 || snap.Readings == nil {
		t.Fatalf("partial snapshot = %+v", snap)
	}
	if !apperrors.Is(snap.Errors[snapshot.Readings], apperrors.ErrUnavailable) {
		t.Fatalf("readings err = %v", snap.Errors[snapshot.Readings])
	}
}

func TestClient_Unauthorized(t *testing.T) {
	srv := newTestServer(t)
	cb := circuit.NewCircuitBreaker("remote-test", &circuit.Config{FailureThreshold: 1, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Minute})
	c := NewClient(Session{BaseURL: srv.URL, Token: "stale"}, WithHTTPClient(srv.Client()), WithBreaker(cb))

	for i := 0; i < 3; i++ {
		if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	}
	if cb.State() != circuit.Closed {
		t.Fatalf("401 must not open the breaker, state = %s", cb.State())
	}

	empty := NewClient(Session{BaseURL: srv.URL})
	if _, err := empty.ListUsers(context.Background()); err != ErrUnauthorized {
		t.Fatalf("missing token err = %v", err)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := circuit.NewCircuitBreaker("remote-test", &circuit.Config{FailureThreshold: 2, FailureWindow: time.Minute, SuccessThreshold: 1, RecoveryTimeout: time.Minute})
	c := NewClient(Session{BaseURL: srv.URL, Token: "tok"}, WithHTTPClient(srv.Client()), WithBreaker(cb))

	for i := 0; i < 4; i++ {
		_, _ = c.ListReadings(context.Background())
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
	if _, err := c.ListReadings(context.Background()); !errors.Is(err, circuit.ErrOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
}

func TestNormalizeBase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"alertfi.onrender.com", "https://alertfi.onrender.com/"},
		{"http://localhost:8080", "http://localhost:8080/"},
		{"https://alertfi.onrender.com/", "https://alertfi.onrender.com/"},
	}
	for _, tt := range tests {
		if got := normalizeBase(tt.in); got != tt.want {
			t.Errorf("normalizeBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
