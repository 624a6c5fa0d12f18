package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// SubscriberConfig MQTT 订阅配置
type SubscriberConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

// Subscriber 订阅探测器上报主题
// 主题最后一段为数字时作为 detector_id 的默认值。
type Subscriber struct {
	cfg     SubscriberConfig
	service *Service

	mu     sync.Mutex
	client mqtt.Client
}

// NewSubscriber 创建订阅器
func NewSubscriber(cfg SubscriberConfig, service *Service) *Subscriber {
	if cfg.ClientID == "" {
		cfg.ClientID = "alertfi"
	}
	// 同一 broker 上多个实例不能共用 client id
	cfg.ClientID = cfg.ClientID + "-" + uuid.NewString()[:8]
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Subscriber{cfg: cfg, service: service}
}

// ClientID 实际使用的 client id
func (s *Subscriber) ClientID() string {
	return s.cfg.ClientID
}

// Run 连接并订阅，阻塞到 ctx 取消
// broker 暂时不可达时在后台重试，不返回错误。
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.stop()
	return nil
}

func (s *Subscriber) start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectTimeout(s.cfg.Timeout)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		if err != nil {
			log.Warn("MQTT connection lost", "broker", s.cfg.Broker, "error", err)
		}
	}
	// 重连后需要重新订阅
	opts.OnConnect = func(c mqtt.Client) {
		log.Info("MQTT connected", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.handle(ctx, msg.Topic(), msg.Payload())
		})
		if token.WaitTimeout(s.cfg.Timeout) && token.Error() != nil {
			log.Error("MQTT subscribe failed", token.Error(), "topic", s.cfg.Topic)
		}
	}

	client := mqtt.NewClient(opts)
	// 先登记 client，后台重连中的连接也能在 stop 时断开
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	token := client.Connect()
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			s.stop()
			return fmt.Errorf("MQTT connect to %s: %w", s.cfg.Broker, err)
		}
	case <-timer.C:
		log.Warn("MQTT broker unreachable, retrying in background", "broker", s.cfg.Broker, "timeout", s.cfg.Timeout.String())
	case <-ctx.Done():
	}
	return nil
}

func (s *Subscriber) stop() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return
	}
	if client.IsConnectionOpen() {
		client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	}
	client.Disconnect(250)
	log.Info("MQTT subscriber stopped", "broker", s.cfg.Broker)
}

// handle 处理一条消息，错误只记录日志
func (s *Subscriber) handle(ctx context.Context, topic string, raw []byte) {
	p, err := DecodeMessage(topic, raw)
	if err != nil {
		log.Warn("invalid MQTT payload", "topic", topic, "error", err)
		return
	}
	if _, err := s.service.Ingest(ctx, SourceMQTT, p); err != nil {
		log.Warn("MQTT reading rejected", "topic", topic, "detector_id", p.DetectorID, "error", err)
	}
}

// DecodeMessage 解析 MQTT 消息，缺少 detector_id 时取主题最后一段
func DecodeMessage(topic string, raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	if p.DetectorID == 0 {
		if i := strings.LastIndex(topic, "/"); i >= 0 {
			if id, err := strconv.ParseInt(topic[i+1:], 10, 64); err == nil {
				p.DetectorID = id
			}
		}
	}
	return p, nil
}
