// Package notify 告警分发：WebSocket 推送、邮件和 Kafka
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/models"
)

var log = logger.Named("notify")

// Notifier 告警通道
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert models.Alert) error
}

// Dispatcher 将告警依次发送到所有通道
// 单个通道失败只记录日志，不影响其他通道。
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher 创建分发器，nil 通道会被忽略
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Add 追加通道
func (d *Dispatcher) Add(n Notifier) {
	if n != nil {
		d.notifiers = append(d.notifiers, n)
	}
}

// Len 通道数量
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Notify 发送告警，返回所有失败通道的合并错误
func (d *Dispatcher) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			log.Error("notify failed", err, "channel", n.Name(), "detector_id", alert.DetectorID)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
