package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/contextx"
)

type recordingProducer struct {
	topic, key string
	value      any
	headers    map[string]string
}

func (r *recordingProducer) SendMessage(_ context.Context, topic, key string, value any, headers map[string]string) error {
	r.topic, r.key, r.value, r.headers = topic, key, value, headers
	return nil
}

func TestKafkaPublisherKeysByAccount(t *testing.T) {
	rec := &recordingProducer{}
	pub := NewKafkaPublisher(rec, "trading.orders")

	order := domain.NewBuyOrder("o-1", "acc-9", "AAPL", 2, decimal.NewFromInt(10), decimal.NewFromInt(20), "k", time.Now())
	_ = order.MarkExecuted("EXC-1", time.Now())
	ctx := contextx.WithTraceID(context.Background(), "corr-7")

	if err := pub.Publish(ctx, domain.NewOrderEvent(order, time.Now())); err != nil {
		t.Fatal(err)
	}
	if rec.topic != "trading.orders" || rec.key != "acc-9" {
		t.Fatalf("topic/key = %s/%s", rec.topic, rec.key)
	}
	if rec.headers["event_type"] != domain.EventOrderExecuted || rec.headers["correlation_id"] != "corr-7" {
		t.Fatalf("headers = %v", rec.headers)
	}
	if ev, ok := rec.value.(domain.OrderEvent); !ok || ev.ExchangeOrderID != "EXC-1" {
		t.Fatalf("value = %#v", rec.value)
	}
}
