package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/gonglijing/alertfi/internal/circuit"
	"github.com/gonglijing/alertfi/internal/models"
)

// DefaultEmailAPIURL Brevo 事务邮件接口
const DefaultEmailAPIURL = "https://api.brevo.com/v3/smtp/email"

// EmailConfig 邮件通道配置
type EmailConfig struct {
	APIURL     string
	APIKey     string
	Sender     string
	SenderName string
	Breaker    *circuit.Config // nil 使用默认熔断参数
}

// EmailNotifier 通过 HTTP 邮件接口通知探测器所有者
type EmailNotifier struct {
	cfg     EmailConfig
	http    *http.Client
	breaker *circuit.CircuitBreaker
}

// NewEmailNotifier 创建邮件通道，APIKey 为空时返回 nil
func NewEmailNotifier(cfg EmailConfig, hc *http.Client) *EmailNotifier {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultEmailAPIURL
	}
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@alertfi.com"
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "AlertFi"
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &EmailNotifier{
		cfg:     cfg,
		http:    hc,
		breaker: circuit.NewCircuitBreaker("email", cfg.Breaker),
	}
}

// Name 通道名称
func (n *EmailNotifier) Name() string { return "email" }

type emailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type emailPayload struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Notify 所有者关闭通知或没有邮箱时跳过
func (n *EmailNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if !alert.Notify || alert.UserEmail == "" {
		return nil
	}
	payload := emailPayload{
		Sender:      emailAddress{Name: n.cfg.SenderName, Email: n.cfg.Sender},
		To:          []emailAddress{{Name: alert.UserName, Email: alert.UserEmail}},
		Subject:     fmt.Sprintf("AlertFi %s alert: %s", alert.Tier, alert.DetectorName),
		HTMLContent: emailBody(alert),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return n.send(ctx, body)
	})
}

func (n *EmailNotifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", n.cfg.APIKey)

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("email api returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func emailBody(a models.Alert) string {
	return fmt.Sprintf(
		"<p>Detector <b>%s</b> at %s reported <b>%s</b>.</p><p>PPM: %.0f<br>Time: %s</p><p>%s</p>",
		html.EscapeString(a.DetectorName),
		html.EscapeString(a.Location),
		html.EscapeString(a.Tier),
		a.PPM,
		html.EscapeString(a.Timestamp),
		html.EscapeString(a.Message),
	)
}
