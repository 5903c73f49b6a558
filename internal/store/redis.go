package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Redis — реализация MetadataStore и AuditSink поверх Redis.
// Ключи хранятся как обычные string-значения; List реализован
// через SCAN по префиксу.
type Redis struct {
	client *redis.Client
}

// NewRedisClient создаёт клиент Redis.
// URL берётся из REDIS_URL, по умолчанию — локальная разработка.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedis создаёт хранилище поверх готового клиента.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get возвращает документ по ключу.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Put записывает документ по ключу.
func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// List возвращает ключи с данным префиксом.
func (r *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	return keys, nil
}

// Delete удаляет документ. Отсутствующий ключ — не ошибка.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Append добавляет audit-запись (write-once, SETNX).
func (r *Redis) Append(ctx context.Context, key string, data []byte) error {
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}
