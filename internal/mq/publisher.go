package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/telemetry"
)

// Publisher публикует конверты в RabbitMQ.
//
// Wire-контракт: delivery_mode=2 (persistent), priority 0–9,
// timestamp (unix seconds), message_id = id конверта,
// content_type=application/json.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует конверт в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, env *domain.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				Priority:     env.Priority,
				MessageId:    env.ID,
				Timestamp:    env.Timestamp,
				Body:         body,
			},
		)
	})
	if err != nil {
		telemetry.PublishFailures.WithLabelValues(string(exchange)).Inc()
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	telemetry.MessagesPublished.WithLabelValues(string(exchange)).Inc()

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", env.ID,
		"type", env.Kind,
	)

	return nil
}

// PublishClient публикует конверт в очередь клиента
// (direct exchange, routing key = client id).
func (p *Publisher) PublishClient(ctx context.Context, clientID string, env *domain.Envelope) error {
	return p.Publish(ctx, ExchangeDirect, RoutingKey(clientID), env)
}

// PublishWorkflow публикует workflow-конверт в topic exchange.
func (p *Publisher) PublishWorkflow(ctx context.Context, routingKey string, env *domain.Envelope) error {
	return p.Publish(ctx, ExchangeWorkflow, RoutingKey(routingKey), env)
}
