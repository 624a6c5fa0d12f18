package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/pwdutil"
)

type memStore struct {
	admins map[string]*models.Admin
}

func newMemStore(t *testing.T, password string) *memStore {
	t.Helper()
	hash, err := pwdutil.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return &memStore{admins: map[string]*models.Admin{
		"admin@gmail.com": {ID: 1, Email: "admin@gmail.com", Password: hash, Role: models.RoleAdmin},
	}}
}

func (s *memStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if a, ok := s.admins[email]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	for _, a := range s.admins {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) UpdateAdminPassword(ctx context.Context, id int64, hash string) error {
	for _, a := range s.admins {
		if a.ID == id {
			a.Password = hash
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func TestNewJWTManager_Defaults(t *testing.T) {
	m := NewJWTManager([]byte("short"), 0)
	if string(m.secret) == "short" {
		t.Fatalf("expected short secret to be replaced with default")
	}
	if m.TTL() != defaultTokenTTL {
		t.Fatalf("TTL = %v", m.TTL())
	}
}

func TestJWTManager_GenerateAndParseToken(t *testing.T) {
	m := NewJWTManager([]byte("this-is-a-very-secret-key"), time.Hour)
	admin := &models.Admin{ID: 42, Email: "admin@gmail.com", Role: models.RoleAdmin}

	token, err := m.GenerateToken(admin)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	info, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if info.UserID != 42 || info.Email != admin.Email || !info.IsAdmin() {
		t.Fatalf("parsed session info mismatch: %+v", info)
	}
}

func TestJWTManager_ParseToken_Rejects(t *testing.T) {
	m := NewJWTManager([]byte("secret-key-123456"), time.Hour)

	// 错误算法
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "iss": issuer, "exp": time.Now().Add(time.Hour).Unix()})
	noneSigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	// 错误密钥
	other := NewJWTManager([]byte("a-completely-different-key"), time.Hour)
	otherSigned, _ := other.GenerateToken(&models.Admin{ID: 1, Role: models.RoleAdmin})

	// 缺少 exp
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "iss": issuer})
	noExpSigned, _ := noExp.SignedString(m.secret)

	for name, token := range map[string]string{
		"alg none":  noneSigned,
		"wrong key": otherSigned,
		"no expiry": noExpSigned,
		"garbage":   "a.b.c",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ParseToken(token); err == nil {
				t.Fatalf("expected ParseToken to fail")
			}
		})
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := NewJWTManager([]byte("ttl-secret-key-123456"), time.Hour)
	issued := time.Date(2025, 5, 27, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateToken(&models.Admin{ID: 1, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.ParseToken(token); err != apperrors.ErrSessionExpired {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestLogin(t *testing.T) {
	store := newMemStore(t, "admin123")
	m := NewJWTManager([]byte("login-secret-key-123456"), time.Hour)

	token, admin, err := m.Login(context.Background(), store, " Admin@Gmail.com ", "admin123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if admin.ID != 1 || token == "" {
		t.Fatalf("admin = %+v token = %q", admin, token)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "admin@gmail.com", "nope"},
		{"unknown email", "who@gmail.com", "admin123"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := m.Login(context.Background(), store, tt.email, tt.password)
			if err != apperrors.ErrInvalidCredentials {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	store := newMemStore(t, "admin123")
	ctx := context.Background()

	if err := ChangePassword(ctx, store, 1, "wrong", "newpass123"); !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if err := ChangePassword(ctx, store, 1, "admin123", "abc"); !apperrors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if err := ChangePassword(ctx, store, 1, "admin123", "newpass123"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}
	if !pwdutil.Compare("newpass123", store.admins["admin@gmail.com"].Password) {
		t.Fatal("password not updated")
	}
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer test-token-123")
	if got := extractToken(req, defaultCookieName); got != "test-token-123" {
		t.Fatalf("header token = %q", got)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: "cookie-token"})
	if got := extractToken(req, defaultCookieName); got != "cookie-token" {
		t.Fatalf("cookie token = %q", got)
	}
}

func TestSetCookieAndGetSession(t *testing.T) {
	m := NewJWTManager([]byte("another-secret-key-123"), time.Hour)
	token, _ := m.GenerateToken(&models.Admin{ID: 7, Email: "bob@example.com", Role: models.RoleAdmin})

	rr := httptest.NewRecorder()
	m.SetCookie(rr, token)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v", cookies)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	info, err := m.GetSession(req)
	if err != nil || info == nil || info.Email != "bob@example.com" {
		t.Fatalf("GetSession = %+v, %v", info, err)
	}

	if info, err := m.GetSession(httptest.NewRequest("GET", "/", nil)); info != nil || err != nil {
		t.Fatalf("no token should yield nil, nil; got %+v, %v", info, err)
	}
}

func TestRequireAdmin(t *testing.T) {
	m := NewJWTManager([]byte("secret-1234567890"), time.Hour)
	adminToken, _ := m.GenerateToken(&models.Admin{ID: 1, Email: "a@x", Role: models.RoleAdmin})
	userToken, _ := m.GenerateToken(&models.Admin{ID: 2, Email: "u@x", Role: "user"})

	var seen *SessionInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		handler http.Handler
		target  string
		header  string
		want    int
	}{
		{"no token", m.RequireAdmin(next), "/api/admin/users/", "", http.StatusUnauthorized},
		{"bad token", m.RequireAdmin(next), "/api/admin/users/", "Bearer junk", http.StatusUnauthorized},
		{"non admin", m.RequireAdmin(next), "/api/admin/users/", "Bearer " + userToken, http.StatusForbidden},
		{"admin", m.RequireAdmin(next), "/api/admin/users/", "Bearer " + adminToken, http.StatusNoContent},
		{"query ignored for api", m.RequireAdmin(next), "/api/admin/users/?token=" + adminToken, "", http.StatusUnauthorized},
		{"query accepted for ws", m.RequireAdminWS(next), "/ws/alerts/?token=" + adminToken, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusNoContent {
				if seen == nil || seen.UserID != 1 {
					t.Fatalf("session not propagated: %+v", seen)
				}
				return
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %q", rr.Body.String())
			}
			if body["success"] != false {
				t.Fatalf("body = %v", body)
			}
		})
	}
}
