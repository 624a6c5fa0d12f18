// Package remote AlertFi 管理接口客户端，可读取本服务或线上部署
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gonglijing/alertfi/internal/circuit"
	apperrors "github.com/gonglijing/alertfi/internal/errors"
	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/models"
)

var log = logger.Named("remote")

// 接口路径
const (
	LoginPath     = "api/admin/login/"
	UsersPath     = "api/admin/users/"
	DetectorsPath = "api/admin/detectors/"
	ReadingsPath  = "api/admin/readings/"
)

// DefaultTimeout 默认请求超时
const DefaultTimeout = 15 * time.Second

// ErrUnauthorized 令牌缺失、无效或过期
var ErrUnauthorized = apperrors.ErrSessionExpired

// Session 已登录的会话
type Session struct {
	BaseURL string
	Token   string
}

// Valid 会话是否可用
func (s Session) Valid() bool {
	return s.BaseURL != "" && s.Token != ""
}

// Client HTTP 客户端
type Client struct {
	session Session
	http    *http.Client
	breaker *circuit.CircuitBreaker
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 自定义 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreaker 自定义熔断器，nil 表示不熔断
func WithBreaker(cb *circuit.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient 使用会话创建客户端
func NewClient(session Session, opts ...Option) *Client {
	session.BaseURL = normalizeBase(session.BaseURL)
	c := &Client{
		session: session,
		http:    &http.Client{Timeout: DefaultTimeout},
		breaker: circuit.NewCircuitBreaker("remote", nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session 当前会话
func (c *Client) Session() Session {
	return c.session
}

// Login 用邮箱和密码换取访问令牌
func Login(ctx context.Context, hc *http.Client, baseURL, email, password string) (Session, error) {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	base := normalizeBase(baseURL)
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+LoginPath, bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return Session{}, apperrors.ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return Session{}, statusError(resp)
	}

	var payload struct {
		Access string `json:"access"`
		Data   struct {
			Access string `json:"access"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Session{}, fmt.Errorf("decode login response: %w", err)
	}
	token := payload.Access
	if token == "" {
		token = payload.Data.Access
	}
	if token == "" {
		return Session{}, errors.New("login response has no access token")
	}
	log.Info("logged in", "base_url", base)
	return Session{BaseURL: base, Token: token}, nil
}

// ListUsers 获取用户列表
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.get(ctx, UsersPath, &out)
	return nonNil(out), err
}

// ListDetectors 获取探测器列表
func (c *Client) ListDetectors(ctx context.Context) ([]models.Detector, error) {
	var out []models.Detector
	err := c.get(ctx, DetectorsPath, &out)
	return nonNil(out), err
}

// ListReadings 获取全部上报记录
func (c *Client) ListReadings(ctx context.Context) ([]models.Reading, error) {
	var out []models.Reading
	err := c.get(ctx, ReadingsPath, &out)
	return nonNil(out), err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if !c.session.Valid() {
		return ErrUnauthorized
	}
	do := func(ctx context.Context) error { return c.fetch(ctx, path, out) }
	if c.breaker == nil {
		return do(ctx)
	}

	var unauthorized error
	err := c.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		err := do(ctx)
		// 401 是会话问题，不计入熔断
		if errors.Is(err, ErrUnauthorized) {
			unauthorized = err
			return nil
		}
		return err
	})
	if unauthorized != nil {
		return unauthorized
	}
	return err
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.session.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return decodeList(data, out)
}

// decodeList 兼容裸数组和 {success, data} 包装
func decodeList(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		trimmed = envelope.Data
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if resp.StatusCode >= 500 {
		return apperrors.NewError(apperrors.ErrCodeUnavailable, fmt.Sprintf("remote returned %d: %s", resp.StatusCode, msg))
	}
	return apperrors.NewError(apperrors.ErrCodeBadRequest, fmt.Sprintf("remote returned %d: %s", resp.StatusCode, msg))
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if u, err := url.Parse(base); err == nil && u.Scheme == "" {
		base = "https://" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
