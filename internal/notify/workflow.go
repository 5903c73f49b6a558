package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/store"
)

// processedRecord — запись об обработанном workflow-сообщении.
type processedRecord struct {
	Message     *domain.Envelope `json:"message"`
	RoutingKey  string           `json:"routing_key"`
	ProcessedAt time.Time        `json:"processed_at"`
	Status      string           `json:"status"`
}

// workflowDomain возвращает домен workflow-сообщения по префиксу
// routing key; "" для неизвестного префикса.
func workflowDomain(routingKey string) string {
	switch {
	case strings.HasPrefix(routingKey, "enrollment."):
		return "enrollment"
	case strings.HasPrefix(routingKey, "claims."):
		return "claims"
	case strings.HasPrefix(routingKey, "payments."):
		return "payments"
	default:
		return ""
	}
}

// HandleWorkflow обрабатывает сообщение из workflow-очереди.
//
// Диспетчеризация — по префиксу routing key, а не по типу конверта.
// Сообщение подтверждается после архивации в общий (не per-client)
// workflow-путь; квоты и изоляции по клиентам здесь нет.
func (c *Consumer) HandleWorkflow(ctx context.Context, d *mq.Delivery) error {
	env := &d.Envelope
	routingKey := d.Raw.RoutingKey
	if env.RoutingKey == "" {
		env.RoutingKey = routingKey
	}

	wfDomain := workflowDomain(routingKey)
	if wfDomain == "" {
		c.logger.Warn("unknown workflow routing key",
			"routing_key", routingKey,
			"message_id", env.ID,
		)
	}

	now := c.now().UTC()

	processed := processedRecord{
		Message:     env,
		RoutingKey:  routingKey,
		ProcessedAt: now,
		Status:      "processed",
	}
	key := store.WorkflowProcessedKey(env.ID)
	if err := store.AppendJSON(ctx, c.audit, key, processed); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("archive workflow message: %w", err)
	}

	if wfDomain != "" {
		rec := auditRecord{
			Action:     wfDomain + "_workflow_processed",
			MessageID:  env.ID,
			Timestamp:  now,
			Content:    env.Content,
			RoutingKey: routingKey,
		}
		key := store.WorkflowAuditKey(wfDomain, env.ID)
		if err := store.AppendJSON(ctx, c.audit, key, rec); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("write workflow audit record: %w", err)
		}
	}

	c.logger.Info("workflow message processed",
		"routing_key", routingKey,
		"message_id", env.ID,
	)
	return nil
}
