package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"tableside/internal/model"
)

const exchange = "orders_topic"

// OrderStatusEvent is published on every committed lifecycle transition.
type OrderStatusEvent struct {
	OrderID   int64     `json:"order_id"`
	TableID   int64     `json:"table_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusPublisher is the sink for committed lifecycle transitions.
type StatusPublisher interface {
	OrderStatusChanged(ctx context.Context, orderID, tableID int64, from, to model.OrderState)
}

// Publisher fans order lifecycle transitions out to a topic exchange. A nil
// *Publisher is valid and drops everything, so the broker stays optional.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, log: log}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// OrderStatusChanged publishes a transition event. Publish failures are
// logged, never propagated: the lifecycle itself must not depend on the
// broker being up.
func (p *Publisher) OrderStatusChanged(ctx context.Context, orderID, tableID int64, from, to model.OrderState) {
	if p == nil {
		return
	}
	body, err := json.Marshal(OrderStatusEvent{
		OrderID:   orderID,
		TableID:   tableID,
		From:      from.String(),
		To:        to.String(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.log.Error("marshal order status event", zap.Error(err))
		return
	}

	key := "order.status." + to.String()
	err = p.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Error("publish order status event",
			zap.Int64("order_id", orderID),
			zap.String("to", to.String()),
			zap.Error(err))
	}
}
