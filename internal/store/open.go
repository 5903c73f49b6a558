package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Open создаёт хранилище по переменной окружения STORE_BACKEND:
//
//	postgres (по умолчанию) — key/jsonb таблица через pgx
//	redis                   — go-redis
//	memory                  — in-memory (только разработка)
//
// Возвращённое хранилище обёрнуто circuit breaker-ом.
// close освобождает ресурсы backend-а.
func Open(ctx context.Context, logger *slog.Logger) (MetadataStore, AuditSink, func(), error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "postgres"
	}

	switch backend {
	case "postgres":
		pool, err := NewPool(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		pg, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Info("metadata store ready", "backend", "postgres")
		br := NewBreaker("metadata-store", pg, pg)
		return br, br, pool.Close, nil

	case "redis":
		client, err := NewRedisClient(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		rs := NewRedis(client)
		logger.Info("metadata store ready", "backend", "redis")
		br := NewBreaker("metadata-store", rs, rs)
		return br, br, func() { client.Close() }, nil

	case "memory":
		logger.Warn("using in-memory store, data will not survive restart")
		mem := NewMemory()
		return mem, mem, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
