package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Cron-выражения периодических задач. Sweep — в полночь UTC,
// в момент смены календарной даты квоты; напоминания — утром,
// когда consumers уже обработали ночной backlog.
const (
	quotaSweepSpec      = "0 0 * * *"
	paymentReminderSpec = "0 9 * * *"
)

// cronParser — стандартный 5-польный парсер.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// runner — обёртка над cron.Cron c контекстом задач.
type runner struct {
	cron   *cron.Cron
	cancel context.CancelFunc
}

// Start регистрирует периодические задачи и запускает cron.
// Повторный Start без Stop — ошибка.
func (s *Scheduler) Start() error {
	if s.runner != nil {
		return fmt.Errorf("scheduler already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithParser(cronParser))

	_, err := c.AddFunc(quotaSweepSpec, func() {
		if err := s.SweepQuotas(ctx); err != nil {
			s.logger.Error("quota sweep failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("register quota sweep: %w", err)
	}

	if s.publisher != nil {
		_, err = c.AddFunc(paymentReminderSpec, func() {
			if err := s.SendPaymentReminders(ctx); err != nil {
				s.logger.Error("payment reminder failed", "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("register payment reminders: %w", err)
		}
	}

	c.Start()
	s.runner = &runner{cron: c, cancel: cancel}

	s.logger.Info("scheduler started",
		"quota_sweep", quotaSweepSpec,
		"payment_reminders", s.publisher != nil,
	)
	return nil
}

// Stop останавливает cron и дожидается завершения запущенных задач.
func (s *Scheduler) Stop() {
	if s.runner == nil {
		return
	}

	s.runner.cancel()
	<-s.runner.cron.Stop().Done()
	s.runner = nil

	s.logger.Info("scheduler stopped")
}
