package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/store"
	"github.com/centuriesmutual/courier/internal/telemetry"
)

// Consumer — сервис потребления сообщений.
//
// Обрабатывает клиентские очереди (Handle) и workflow-очереди
// (HandleWorkflow). Возврат ошибки из обработчика приводит к
// requeue на уровне mq.Consumer; nil — к подтверждению.
type Consumer struct {
	audit  store.AuditSink
	logger *slog.Logger
	now    func() time.Time

	consumers  []*mq.Consumer
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(audit store.AuditSink, logger *slog.Logger) *Consumer {
	return &Consumer{
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Handle обрабатывает сообщение из клиентской очереди.
//
// Известный тип порождает audit-запись обработчика; неизвестный —
// только предупреждение в лог. В обоих случаях пишется
// подтверждение доставки, после чего сообщение подтверждается.
// Сбой записи в Audit Sink возвращает сообщение в очередь.
func (c *Consumer) Handle(ctx context.Context, d *mq.Delivery) error {
	env := &d.Envelope
	logger := telemetry.WithMessageID(telemetry.WithClientID(c.logger, env.ClientID), env.ID)

	rec, known := dispatch(env, c.now().UTC())
	if !known {
		logger.Warn("unknown message kind", "type", env.Kind)
	} else {
		key := store.ClientAuditKey(env.ClientID, rec.Action, env.ID)
		if err := store.AppendJSON(ctx, c.audit, key, rec); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("write audit record: %w", err)
		}
	}

	conf := domain.NewConfirmation(env, domain.StatusDelivered, c.now().UTC())
	key := store.DeliveryAuditKey(env.ClientID, env.ID)
	if err := store.AppendJSON(ctx, c.audit, key, conf); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("write delivery confirmation: %w", err)
	}

	logger.Info("message processed", "type", env.Kind)
	return nil
}

// Start запускает consumer-ы для очередей перечисленных клиентов
// и всех workflow-очередей. Неблокирующий: каждый consumer работает
// в своей горутине до Stop или отмены контекста.
func (c *Consumer) Start(ctx context.Context, conn *mq.Connection, clientIDs []string) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for _, id := range clientIDs {
		c.consumers = append(c.consumers, mq.NewConsumer(conn, c.logger, mq.ConsumerConfig{
			Queue:   mq.ClientQueue(id),
			Handler: c.Handle,
		}))
	}

	for _, q := range mq.WorkflowQueues() {
		c.consumers = append(c.consumers, mq.NewConsumer(conn, c.logger, mq.ConsumerConfig{
			Queue:   q,
			Handler: c.HandleWorkflow,
		}))
	}

	for _, cons := range c.consumers {
		c.wg.Add(1)
		go func(cons *mq.Consumer) {
			defer c.wg.Done()
			if err := cons.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("consumer stopped with error", "error", err)
			}
		}(cons)
	}
}

// Stop кооперативно останавливает все consumer-ы и дожидается
// завершения обработки текущих сообщений.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}
