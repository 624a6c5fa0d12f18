// Package auth 管理员登录与 JWT 鉴权
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/models"
	"github.com/gonglijing/alertfi/internal/pwdutil"
)

const (
	defaultCookieName = "alertfi_jwt"
	defaultTokenTTL   = 24 * time.Hour
	tokenQueryParam   = "token"
	issuer            = "alertfi"
)

// AdminStore 管理员账号存储
type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetAdminByID(ctx context.Context, id int64) (*models.Admin, error)
	UpdateAdminPassword(ctx context.Context, id int64, hash string) error
}

// JWTManager 管理 JWT 签发与验证（HS256）
type JWTManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

type sessionInfoContextKey struct{}

// Claims 访问令牌载荷
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionInfo 会话信息
type SessionInfo struct {
	UserID int64
	Email  string
	Role   string
}

// IsAdmin 是否管理员
func (s *SessionInfo) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

// NewJWTManager 创建 JWT 管理器，密钥过短时使用内置默认值
func NewJWTManager(secretKey []byte, ttl time.Duration) *JWTManager {
	if len(secretKey) < 16 {
		secretKey = []byte("alertfi-default-secret-please-change")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTManager{
		secret:     secretKey,
		cookieName: defaultCookieName,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TTL 令牌有效期
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// GenerateToken 为管理员签发访问令牌
func (m *JWTManager) GenerateToken(admin *models.Admin) (string, error) {
	now := m.now()
	claims := Claims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(admin.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken 解析并验证访问令牌，只接受 HS256
func (m *JWTManager) ParseToken(tokenStr string) (*SessionInfo, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrSessionExpired
		}
		return nil, apperrors.ErrUnauthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	return &SessionInfo{UserID: id, Email: claims.Email, Role: claims.Role}, nil
}

// Login 校验邮箱和密码，成功后签发令牌
func (m *JWTManager) Login(ctx context.Context, store AdminStore, email, password string) (string, *models.Admin, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	admin, err := store.GetAdminByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !pwdutil.Compare(password, admin.Password) {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	token, err := m.GenerateToken(admin)
	if err != nil {
		return "", nil, apperrors.WrapError(err, apperrors.ErrCodeInternalError, "sign token")
	}
	return token, admin, nil
}

// ChangePassword 修改管理员密码
func ChangePassword(ctx context.Context, store AdminStore, adminID int64, oldPassword, newPassword string) error {
	admin, err := store.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !pwdutil.Compare(oldPassword, admin.Password) {
		return apperrors.ErrInvalidCredentials.WithDetails("old password does not match")
	}
	hash, err := pwdutil.Hash(newPassword)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeBadRequest, "new password rejected")
	}
	return store.UpdateAdminPassword(ctx, adminID, hash)
}

// SetCookie 写入令牌 Cookie（浏览器端登录时使用）
func (m *JWTManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

// GetSession 获取会话信息（Authorization Bearer 或 Cookie）
// 没有令牌时返回 nil, nil。
func (m *JWTManager) GetSession(r *http.Request) (*SessionInfo, error) {
	return m.session(r, false)
}

func (m *JWTManager) session(r *http.Request, allowQuery bool) (*SessionInfo, error) {
	tokenStr := extractToken(r, m.cookieName)
	if tokenStr == "" && allowQuery {
		tokenStr = strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
	}
	if tokenStr == "" {
		return nil, nil
	}
	return m.ParseToken(tokenStr)
}

// RequireAdmin 需要管理员权限中间件
func (m *JWTManager) RequireAdmin(next http.Handler) http.Handler {
	return m.requireAdmin(next, false)
}

// RequireAdminWS WebSocket 握手鉴权，额外接受 ?token= 参数
func (m *JWTManager) RequireAdminWS(next http.Handler) http.Handler {
	return m.requireAdmin(next, true)
}

func (m *JWTManager) requireAdmin(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.session(r, allowQuery)
		switch {
		case err != nil:
			writeAuthError(w, apperrors.From(err))
			return
		case info == nil:
			writeAuthError(w, apperrors.ErrUnauthorized)
			return
		case !info.IsAdmin():
			writeAuthError(w, apperrors.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), info)))
	})
}

func writeAuthError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code.String(),
	})
}

func extractToken(r *http.Request, cookieName string) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithSession 将会话放入 context
func WithSession(ctx context.Context, info *SessionInfo) context.Context {
	return context.WithValue(ctx, sessionInfoContextKey{}, info)
}

// SessionFromContext 从 context 取出会话
func SessionFromContext(ctx context.Context) *SessionInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(sessionInfoContextKey{}).(*SessionInfo)
	return info
}
