package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/notify"
	"github.com/centuriesmutual/courier/internal/onboarding"
	"github.com/centuriesmutual/courier/internal/quota"
	"github.com/centuriesmutual/courier/internal/store"
)

// Runtime лениво строит сервисы для CLI-команд: хранилище
// открывается при первом обращении, соединение с брокером — только
// для команд, которым оно нужно. Логи сервисов уходят в stderr на
// уровне WARN, чтобы не мешать табличному выводу.
type Runtime struct {
	brokerURL string
	logger    *slog.Logger

	st         store.MetadataStore
	sink       store.AuditSink
	closeStore func()

	conn *mq.Connection
}

// NewRuntime создаёт Runtime. brokerURL пустой — используется
// BROKER_URL либо URL по умолчанию.
func NewRuntime(brokerURL string) *Runtime {
	if brokerURL == "" {
		brokerURL = os.Getenv("BROKER_URL")
	}
	if brokerURL == "" {
		brokerURL = mq.DefaultURL()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	return &Runtime{
		brokerURL: brokerURL,
		logger:    logger,
	}
}

// Store открывает (один раз) Metadata Store.
func (r *Runtime) Store(ctx context.Context) (store.MetadataStore, error) {
	if r.st == nil {
		st, sink, closeFn, err := store.Open(ctx, r.logger)
		if err != nil {
			return nil, err
		}
		r.st = st
		r.sink = sink
		r.closeStore = closeFn
	}
	return r.st, nil
}

// Broker открывает (один раз) соединение с брокером. При подключении
// переобъявляется полная топология.
func (r *Runtime) Broker(ctx context.Context) (*mq.Connection, error) {
	if r.conn == nil {
		conn, err := mq.Connect(r.brokerURL, r.logger, func(ch *amqp.Channel) error {
			if err := mq.EnsureTopology(ch); err != nil {
				return err
			}
			return mq.EnsureWorkflowQueues(ch)
		})
		if err != nil {
			return nil, err
		}
		r.conn = conn
	}
	return r.conn, nil
}

// Tracker возвращает quota.Tracker поверх хранилища.
func (r *Runtime) Tracker(ctx context.Context) (*quota.Tracker, error) {
	st, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	return quota.NewTracker(st, r.logger, quota.DefaultDailyLimit), nil
}

// Provisioner возвращает mq.Provisioner поверх соединения.
func (r *Runtime) Provisioner(ctx context.Context) (*mq.Provisioner, error) {
	conn, err := r.Broker(ctx)
	if err != nil {
		return nil, err
	}
	return mq.NewProvisioner(conn, r.logger, quota.DefaultDailyLimit), nil
}

// Publisher возвращает notify.Publisher с полной обвязкой
// (хранилище, квота, брокер).
func (r *Runtime) Publisher(ctx context.Context) (*notify.Publisher, error) {
	st, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	tracker, err := r.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := r.Broker(ctx)
	if err != nil {
		return nil, err
	}
	return notify.NewPublisher(st, tracker, mq.NewPublisher(conn, r.logger), r.logger), nil
}

// Onboarding возвращает onboarding.Service.
func (r *Runtime) Onboarding(ctx context.Context) (*onboarding.Service, error) {
	st, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	tracker, err := r.Tracker(ctx)
	if err != nil {
		return nil, err
	}
	prov, err := r.Provisioner(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := r.Publisher(ctx)
	if err != nil {
		return nil, err
	}
	return onboarding.NewService(st, prov, tracker, pub, r.logger), nil
}

// Close освобождает открытые ресурсы.
func (r *Runtime) Close() error {
	var errs []error

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		r.conn = nil
	}
	if r.closeStore != nil {
		r.closeStore()
		r.closeStore = nil
	}

	return errors.Join(errs...)
}
