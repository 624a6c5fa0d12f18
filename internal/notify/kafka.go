package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gonglijing/alertfi/internal/models"
)

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink 把告警写入 Kafka 主题，以探测器ID为键
type KafkaSink struct {
	topic  string
	writer messageWriter
}

// NewKafkaSink 创建 Kafka 通道，brokers 为空时返回 nil
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaSink{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Name 通道名称
func (k *KafkaSink) Name() string { return "kafka" }

// Topic 主题
func (k *KafkaSink) Topic() string { return k.topic }

// Notify 写入一条消息
func (k *KafkaSink) Notify(ctx context.Context, alert models.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(alert.DetectorID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "tier", Value: []byte(alert.Tier)},
		},
	})
}

// Close 关闭写入器
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
