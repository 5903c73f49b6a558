// Courier Consumer — обработчик входящих сообщений.
//
// Consumer:
//   - Получает сообщения из per-client очередей и workflow-очередей
//   - Раскладывает их по audit-записям в Metadata Store
//   - Подтверждает (ack) только после успешной записи audit trail
//
// Список клиентских очередей задаётся CLIENT_IDS (через запятую);
// без него очереди берутся из зарегистрированных клиентов.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/notify"
	"github.com/centuriesmutual/courier/internal/store"
	"github.com/centuriesmutual/courier/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting courier-consumer")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metadata Store
	st, sink, closeStore, err := store.Open(ctx, logger)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// RabbitMQ: топология переобъявляется при каждом подключении
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
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("broker connected", "url", mqURL)

	// Определяем клиентские очереди
	clientIDs := clientList(ctx, st, logger)
	logger.Info("consuming client queues", "clients", len(clientIDs))

	// Запускаем consumer
	consumer := notify.NewConsumer(sink, logger)
	consumer.Start(ctx, conn, clientIDs)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("CONSUMER_PORT"); v != "" {
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

	consumer.Stop()
	logger.Info("courier-consumer stopped")
}

// clientList возвращает id клиентов из CLIENT_IDS либо из хранилища.
func clientList(ctx context.Context, st store.MetadataStore, logger *slog.Logger) []string {
	if v := os.Getenv("CLIENT_IDS"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}

	keys, err := st.List(ctx, store.ClientsPrefix)
	if err != nil {
		logger.Warn("failed to list clients, consuming workflow queues only", "error", err)
		return nil
	}

	var ids []string
	for _, key := range keys {
		if id := store.ClientIDFromKey(key); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
