package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/quota"
	"github.com/centuriesmutual/courier/internal/store"
)

// Quota — допуск к отправке (реализуется quota.Tracker).
type Quota interface {
	CheckAndReserve(ctx context.Context, clientID string) error
	Release(ctx context.Context, clientID string) error
	Stats(ctx context.Context, clientID string) (*quota.Stats, error)
}

// Broker — транспорт публикации (реализуется mq.Publisher).
type Broker interface {
	PublishClient(ctx context.Context, clientID string, env *domain.Envelope) error
	PublishWorkflow(ctx context.Context, routingKey string, env *domain.Envelope) error
}

// Publisher — сервис отправки сообщений.
type Publisher struct {
	store  store.MetadataStore
	quota  Quota
	broker Broker
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(s store.MetadataStore, q Quota, b Broker, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  s,
		quota:  q,
		broker: b,
		logger: logger,
		now:    time.Now,
	}
}

// MessageRequest — запрос на отправку сообщения клиенту.
type MessageRequest struct {
	ClientID    string         `json:"client_id"`
	Kind        domain.Kind    `json:"message_type"`
	Content     string         `json:"content"`
	Priority    uint8          `json:"priority,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SendResult — результат успешной отправки.
type SendResult struct {
	MessageID  string    `json:"message_id"`
	ClientID   string    `json:"client_id,omitempty"`
	RoutingKey string    `json:"routing_key,omitempty"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// SendClientMessage отправляет сообщение клиенту.
//
// Порядок: резерв квоты → архив конверта → публикация.
// Сбой архивации или публикации возвращает квотный слот;
// при сбое публикации архивная копия остаётся — вызывающая
// сторона может выполнить Resend.
func (p *Publisher) SendClientMessage(ctx context.Context, req MessageRequest) (*SendResult, error) {
	if req.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	if err := p.quota.CheckAndReserve(ctx, req.ClientID); err != nil {
		return nil, err
	}

	env := domain.NewClientEnvelope(req.ClientID, req.Kind, req.Content)
	env.Timestamp = p.now().UTC()
	env.Priority = req.Priority
	env.Attachments = req.Attachments
	env.Metadata = req.Metadata

	key := store.ClientMessageKey(req.ClientID, env.ID)
	if err := store.PutJSON(ctx, p.store, key, env); err != nil {
		p.release(ctx, req.ClientID)
		return nil, fmt.Errorf("%w: %w", ErrArchivalFailed, err)
	}

	if err := p.broker.PublishClient(ctx, req.ClientID, env); err != nil {
		p.release(ctx, req.ClientID)
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.logger.Info("message sent",
		"client_id", req.ClientID,
		"message_id", env.ID,
		"type", env.Kind,
	)

	return &SendResult{
		MessageID: env.ID,
		ClientID:  req.ClientID,
		Status:    "sent",
		Timestamp: env.Timestamp,
	}, nil
}

// release возвращает квотный слот, логируя сбой возврата:
// исходная ошибка отправки важнее.
func (p *Publisher) release(ctx context.Context, clientID string) {
	if err := p.quota.Release(ctx, clientID); err != nil {
		p.logger.Warn("failed to release quota slot", "client_id", clientID, "error", err)
	}
}

// SendWorkflowMessage отправляет workflow-сообщение в topic exchange.
// Квота не проверяется: workflow-сообщения не тарифицируются
// по клиентам.
func (p *Publisher) SendWorkflowMessage(ctx context.Context, routingKey, kind, content string, metadata map[string]any) (*SendResult, error) {
	if routingKey == "" {
		return nil, fmt.Errorf("routing key is required")
	}

	env := domain.NewWorkflowEnvelope(routingKey, kind, content)
	env.Timestamp = p.now().UTC()
	env.Metadata = metadata

	if err := store.PutJSON(ctx, p.store, store.WorkflowMessageKey(env.ID), env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchivalFailed, err)
	}

	if err := p.broker.PublishWorkflow(ctx, routingKey, env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.logger.Info("workflow message sent",
		"routing_key", routingKey,
		"message_id", env.ID,
		"type", kind,
	)

	return &SendResult{
		MessageID:  env.ID,
		RoutingKey: routingKey,
		Status:     "sent",
		Timestamp:  env.Timestamp,
	}, nil
}

// SendNotification отправляет клиенту приоритетный system_alert.
func (p *Publisher) SendNotification(ctx context.Context, clientID, notificationType, content string, priority uint8) (*SendResult, error) {
	return p.SendClientMessage(ctx, MessageRequest{
		ClientID: clientID,
		Kind:     domain.KindSystemAlert,
		Content:  content,
		Priority: priority,
		Metadata: map[string]any{"notification_type": notificationType},
	})
}

// BulkItemError — ошибка отправки одного элемента batch-а.
type BulkItemError struct {
	ClientID string `json:"client_id"`
	Error    string `json:"error"`
}

// BulkResult — результат bulk-отправки по трём корзинам.
type BulkResult struct {
	Sent          []SendResult    `json:"successful"`
	Failed        []BulkItemError `json:"failed"`
	LimitExceeded []BulkItemError `json:"limit_exceeded"`
}

// SendBulk отправляет пачку сообщений. Элементы независимы:
// исчерпанная квота одного клиента не влияет на остальных.
func (p *Publisher) SendBulk(ctx context.Context, reqs []MessageRequest) *BulkResult {
	res := &BulkResult{}

	for _, req := range reqs {
		sent, err := p.SendClientMessage(ctx, req)

		switch {
		case errors.Is(err, quota.ErrLimitExceeded):
			res.LimitExceeded = append(res.LimitExceeded, BulkItemError{
				ClientID: req.ClientID,
				Error:    err.Error(),
			})
		case err != nil:
			res.Failed = append(res.Failed, BulkItemError{
				ClientID: req.ClientID,
				Error:    err.Error(),
			})
		default:
			res.Sent = append(res.Sent, *sent)
		}
	}

	p.logger.Info("bulk send completed",
		"successful", len(res.Sent),
		"failed", len(res.Failed),
		"limit_exceeded", len(res.LimitExceeded),
	)

	return res
}

// Resend повторно отправляет ранее заархивированное сообщение.
//
// Конверт получает новый timestamp и инкремент retry_count,
// переархивируется и публикуется заново. Квота не проверяется и
// не инкрементируется: повторная отправка после транспортного сбоя
// не должна наказывать клиента.
func (p *Publisher) Resend(ctx context.Context, clientID, messageID string) (*SendResult, error) {
	key := store.ClientMessageKey(clientID, messageID)

	env, err := store.GetJSON[domain.Envelope](ctx, p.store, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("archived message %s: %w", messageID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read archived message %s: %w", messageID, err)
	}

	env.Timestamp = p.now().UTC()
	env.RetryCount++

	if err := store.PutJSON(ctx, p.store, key, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchivalFailed, err)
	}

	if err := p.broker.PublishClient(ctx, clientID, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.logger.Info("message resent",
		"client_id", clientID,
		"message_id", messageID,
		"retry_count", env.RetryCount,
	)

	return &SendResult{
		MessageID: messageID,
		ClientID:  clientID,
		Status:    "resent",
		Timestamp: env.Timestamp,
	}, nil
}

// Stats возвращает статистику отправки клиента.
func (p *Publisher) Stats(ctx context.Context, clientID string) (*quota.Stats, error) {
	return p.quota.Stats(ctx, clientID)
}
