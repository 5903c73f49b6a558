package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/notify"
	"github.com/centuriesmutual/courier/internal/quota"
	"github.com/centuriesmutual/courier/internal/store"
)

// Scheduler — фоновые периодические задачи: ночной сброс квот
// и рассылка платёжных напоминаний.
type Scheduler struct {
	store     store.MetadataStore
	tracker   *quota.Tracker
	publisher *notify.Publisher
	logger    *slog.Logger
	runner    *runner
}

// Config — конфигурация Scheduler.
type Config struct {
	Store     store.MetadataStore
	Tracker   *quota.Tracker
	Publisher *notify.Publisher // опционально: без него напоминания отключены
	Logger    *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		store:     cfg.Store,
		tracker:   cfg.Tracker,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// SweepQuotas сбрасывает суточные счётчики всех клиентов.
//
// Страховка поверх ленивого rollover в quota.Tracker: после sweep
// статистика клиентов корректна даже для тех, кто в новый день ещё
// не отправлял сообщений.
//
// Ошибка одного клиента не блокирует обработку остальных.
func (s *Scheduler) SweepQuotas(ctx context.Context) error {
	keys, err := s.store.List(ctx, store.ClientsPrefix)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	var swept, failed int
	for _, key := range keys {
		clientID := store.ClientIDFromKey(key)
		if clientID == "" {
			continue
		}

		if err := s.tracker.Reset(ctx, clientID); err != nil {
			s.logger.Error("failed to reset quota",
				"client_id", clientID,
				"error", err,
			)
			failed++
			continue
		}
		swept++
	}

	s.logger.Info("quota sweep completed", "swept", swept, "failed", failed)

	if failed > 0 {
		return fmt.Errorf("quota sweep: %d of %d clients failed", failed, swept+failed)
	}
	return nil
}

// SendPaymentReminders публикует ежедневное workflow-сообщение
// о наступающих платежах. Consumer воркфлоу-очереди payments
// раскладывает его по audit-записям.
func (s *Scheduler) SendPaymentReminders(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}

	metadata := map[string]any{
		"reminder_date": time.Now().UTC().Format(domain.DateLayout),
	}

	_, err := s.publisher.SendWorkflowMessage(ctx,
		"payments.due",
		string(domain.KindPaymentReminder),
		"Daily payment due reminder sweep",
		metadata,
	)
	if err != nil {
		return fmt.Errorf("publish payment reminder: %w", err)
	}

	s.logger.Info("payment reminder published")
	return nil
}
