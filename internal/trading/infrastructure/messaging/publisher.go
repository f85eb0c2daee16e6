// Package messaging 订单事件发布
package messaging

import (
	"context"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/contextx"
	"github.com/wyfcoding/tradeportal/pkg/logger"
)

// Producer 消息生产者，由 pkg/mq.KafkaProducer 实现
type Producer interface {
	SendMessage(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// KafkaPublisher 将订单事件写入 Kafka，以账户 ID 作为分区键保证同账户有序
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	headers := map[string]string{"event_type": event.EventType}
	if id := contextx.TraceID(ctx); id != "" {
		headers["correlation_id"] = id
	}
	return p.producer.SendMessage(ctx, p.topic, event.AccountID, event, headers)
}

// LogPublisher 未启用 Kafka 时的发布器，仅记录日志
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	logger.Info(ctx, "order event",
		"event_type", event.EventType,
		"order_id", event.OrderID,
		"account_id", event.AccountID,
		"status", string(event.Status),
	)
	return nil
}
