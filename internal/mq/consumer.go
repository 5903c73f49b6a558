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

// Handler — функция обработки сообщения.
// Возвращает error, если обработка не удалась (сообщение будет
// возвращено в очередь; исчерпание TTL/max-length уводит его в DLX).
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Envelope — распарсенный конверт.
	Envelope domain.Envelope

	// Raw — сырое AMQP сообщение (routing key, headers, ack).
	Raw amqp.Delivery
}

// Consumer потребляет сообщения из одной очереди RabbitMQ.
//
// Машина состояний сообщения:
//
//	received → dispatched → acked
//	                      ↘ nacked-requeue  (ошибка обработчика/audit)
//	                      ↘ nacked-discard  (некорректный payload)
//
// Prefetch по умолчанию — 1: строгий порядок обработки внутри
// очереди, не более одного in-flight сообщения на consumer.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество неподтверждённых сообщений (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление. Блокирует вызывающую горутину
// до Stop или отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ch, deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			// Ждём переподключения
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		err = c.processDeliveries(ctx, deliveries)

		// Канал подписки выделенный: без явного закрытия каждый
		// цикл stop/resubscribe оставлял бы открытый канал на
		// соединении.
		ch.Close()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// setupConsume настраивает QoS и начинает потребление.
// Consume выполняется на отдельном канале: блокирующая подписка
// не должна делить канал с publish-операциями. Канал возвращается
// вызывающему — он отвечает за закрытие по завершении цикла.
func (c *Consumer) setupConsume() (*amqp.Channel, <-chan amqp.Delivery, error) {
	c.conn.mu.RLock()
	conn := c.conn.conn
	state := c.conn.state
	c.conn.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return nil, nil, ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consume channel: %w", err)
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack (мы ack вручную)
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("consume: %w", err)
	}

	return ch, deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала.
// Отмена кооперативная: остановка происходит между доставками,
// обработка текущего сообщения не прерывается.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var env domain.Envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		c.logger.Error("discarding malformed message",
			"queue", c.queue,
			"error", fmt.Errorf("%w: %v", ErrMalformedPayload, err),
			"body", string(raw.Body),
		)
		// Некорректное сообщение не станет корректным при повторе —
		// отбрасываем без requeue (уходит в DLX, если настроен).
		raw.Nack(false, false)
		telemetry.MessagesConsumed.WithLabelValues(string(c.queue), "discarded").Inc()
		return
	}

	d := &Delivery{
		Envelope: env,
		Raw:      raw,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", env.ID,
		"type", env.Kind,
	)

	if err := c.handler(ctx, d); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", env.ID,
			"type", env.Kind,
			"error", err,
		)
		// Ошибка обработки — возвращаем в очередь для retry.
		// Бесконечный цикл ограничен TTL и max-length очереди.
		raw.Nack(false, true)
		telemetry.MessagesConsumed.WithLabelValues(string(c.queue), "requeued").Inc()
		return
	}

	raw.Ack(false)
	telemetry.MessagesConsumed.WithLabelValues(string(c.queue), "delivered").Inc()
}

// Stop останавливает consumer после завершения текущего сообщения.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}
