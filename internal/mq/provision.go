package mq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// clientQueueTTL — время жизни сообщения в очереди клиента (24 часа
// в миллисекундах). Сообщение, не обработанное за сутки, уходит в DLX.
const clientQueueTTL = 86400000

// Provisioner создаёт и удаляет per-client пары очередей
// (primary + dead-letter).
type Provisioner struct {
	conn         *Connection
	logger       *slog.Logger
	defaultLimit int
}

// NewProvisioner создаёт новый Provisioner.
// defaultLimit используется, когда лимит клиента не задан явно.
func NewProvisioner(conn *Connection, logger *slog.Logger, defaultLimit int) *Provisioner {
	return &Provisioner{
		conn:         conn,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// clientQueueArgs возвращает аргументы primary-очереди клиента.
// x-max-length должен совпадать с суточной квотой: брокерный
// reject-publish — внешняя страховка за явной проверкой квоты.
func clientQueueArgs(clientID string, limit int) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             int64(clientQueueTTL),
		"x-max-length":              int64(limit),
		"x-overflow":                "reject-publish",
		"x-dead-letter-exchange":    string(ExchangeDLX),
		"x-dead-letter-routing-key": string(FailedRoutingKey(clientID)),
	}
}

// ProvisionClient объявляет пару очередей клиента и их bindings.
//
// Частичное создание (primary есть, dead-letter не создалась)
// возвращается как единая ошибка: провиженинг — всё или ничего.
// Повторный вызов с теми же аргументами безопасен (идемпотентное
// переобъявление), поэтому после ошибки можно просто повторить.
func (p *Provisioner) ProvisionClient(ctx context.Context, clientID string, limit int) error {
	if limit <= 0 {
		limit = p.defaultLimit
	}

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		primary := ClientQueue(clientID)

		_, err := ch.QueueDeclare(
			string(primary),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			clientQueueArgs(clientID, limit),
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", primary, err)
		}

		err = ch.QueueBind(string(primary), clientID, string(ExchangeDirect), false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", primary, err)
		}

		failed := FailedQueue(clientID)

		_, err = ch.QueueDeclare(string(failed), true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", failed, err)
		}

		err = ch.QueueBind(string(failed), string(FailedRoutingKey(clientID)), string(ExchangeDLX), false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", failed, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("provision client %s: %w", clientID, err)
	}

	p.logger.Info("provisioned client queues", "client_id", clientID, "limit", limit)
	return nil
}

// ReprovisionClient пересоздаёт primary-очередь клиента под новый
// лимит. Переобъявление существующей очереди с другим x-max-length
// брокер отклоняет (406 PRECONDITION_FAILED) и закрывает канал,
// поэтому очередь удаляется и объявляется заново. Сообщения,
// ожидавшие в primary-очереди, при этом теряются; dead-letter
// очередь не затрагивается.
func (p *Provisioner) ReprovisionClient(ctx context.Context, clientID string, limit int) error {
	if limit <= 0 {
		limit = p.defaultLimit
	}

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		primary := ClientQueue(clientID)

		if _, err := ch.QueueDelete(string(primary), false, false, false); err != nil {
			return fmt.Errorf("delete queue %s: %w", primary, err)
		}

		_, err := ch.QueueDeclare(
			string(primary),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			clientQueueArgs(clientID, limit),
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", primary, err)
		}

		if err := ch.QueueBind(string(primary), clientID, string(ExchangeDirect), false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", primary, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("reprovision client %s: %w", clientID, err)
	}

	p.logger.Info("reprovisioned client queue", "client_id", clientID, "limit", limit)
	return nil
}

// DeprovisionClient удаляет обе очереди клиента.
// Удаление отсутствующей очереди не является ошибкой.
func (p *Provisioner) DeprovisionClient(ctx context.Context, clientID string) error {
	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDelete(string(ClientQueue(clientID)), false, false, false); err != nil {
			return fmt.Errorf("delete queue %s: %w", ClientQueue(clientID), err)
		}

		if _, err := ch.QueueDelete(string(FailedQueue(clientID)), false, false, false); err != nil {
			return fmt.Errorf("delete queue %s: %w", FailedQueue(clientID), err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("deprovision client %s: %w", clientID, err)
	}

	p.logger.Info("deprovisioned client queues", "client_id", clientID)
	return nil
}

// QueueInfo — состояние очереди на брокере.
type QueueInfo struct {
	Name      string `json:"queue_name"`
	Messages  int    `json:"message_count"`
	Consumers int    `json:"consumer_count"`
}

// QueueInfo возвращает состояние очереди (passive declare).
// Для отсутствующей очереди брокер отвечает 404 и закрывает канал —
// после такой ошибки требуется Reconnect.
func (p *Provisioner) QueueInfo(ctx context.Context, queue Queue) (*QueueInfo, error) {
	var info *QueueInfo

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclarePassive(string(queue), true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("inspect queue %s: %w", queue, err)
		}

		info = &QueueInfo{
			Name:      q.Name,
			Messages:  q.Messages,
			Consumers: q.Consumers,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// PurgeQueue удаляет все сообщения из очереди.
// Возвращает количество удалённых сообщений.
func (p *Provisioner) PurgeQueue(ctx context.Context, queue Queue) (int, error) {
	var purged int

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		n, err := ch.QueuePurge(string(queue), false)
		if err != nil {
			return fmt.Errorf("purge queue %s: %w", queue, err)
		}
		purged = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("purged queue", "queue", queue, "messages", purged)
	return purged, nil
}
