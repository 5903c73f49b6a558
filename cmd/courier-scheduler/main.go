// Courier Scheduler — фоновые периодические задачи.
//
// Scheduler:
//   - В полночь UTC сбрасывает суточные счётчики квот всех клиентов
//   - Утром публикует workflow-напоминание о платежах
//
// Недоступность брокера не фатальна: сброс квот работает и без
// него, напоминания в этом режиме отключены.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/notify"
	"github.com/centuriesmutual/courier/internal/quota"
	"github.com/centuriesmutual/courier/internal/scheduler"
	"github.com/centuriesmutual/courier/internal/store"
	"github.com/centuriesmutual/courier/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting courier-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metadata Store
	st, _, closeStore, err := store.Open(ctx, logger)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	tracker := quota.NewTracker(st, logger, quota.DefaultDailyLimit)

	// RabbitMQ (опционально: без брокера работает только сброс квот)
	var publisher *notify.Publisher

	mqURL := os.Getenv("BROKER_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	conn, err := mq.Connect(mqURL, logger, func(ch *amqp.Channel) error {
		if err := mq.EnsureTopology(ch); err != nil {
			return err
		}
		return mq.EnsureWorkflowQueues(ch)
	})
	if err != nil {
		logger.Warn("broker not available, payment reminders disabled", "error", err)
	} else {
		defer conn.Close()
		logger.Info("broker connected", "url", mqURL)
		publisher = notify.NewPublisher(st, tracker, mq.NewPublisher(conn, logger), logger)
	}

	// Запускаем scheduler
	sched := scheduler.New(scheduler.Config{
		Store:     st,
		Tracker:   tracker,
		Publisher: publisher,
		Logger:    logger,
	})
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	sched.Stop()
	logger.Info("courier-scheduler stopped")
}
