package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Общие ошибки хранилища.
var (
	// ErrNotFound — ключ не найден.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись по ключу уже существует
	// (нарушение write-once для audit-записей).
	ErrAlreadyExists = errors.New("already exists")
)

// MetadataStore — хранилище JSON-документов по иерархическим ключам.
//
// Транзакционность по нескольким ключам не гарантируется.
// Атомарность квотных операций обеспечивается на уровне
// quota.Tracker, а не хранилища.
type MetadataStore interface {
	// Get возвращает документ по ключу. ErrNotFound, если ключа нет.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put записывает документ по ключу, перезаписывая существующий.
	Put(ctx context.Context, key string, data []byte) error

	// List возвращает все ключи с данным префиксом.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete удаляет документ. Отсутствующий ключ — не ошибка.
	Delete(ctx context.Context, key string) error
}

// AuditSink — append-only приёмник audit-записей.
//
// Write-once по ключу: вызывающая сторона генерирует уникальные
// ключи (от id сообщения), повторная запись — ErrAlreadyExists.
type AuditSink interface {
	Append(ctx context.Context, key string, data []byte) error
}

// GetJSON читает и десериализует документ.
func GetJSON[T any](ctx context.Context, s MetadataStore, key string) (T, error) {
	var v T

	data, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return v, nil
}

// PutJSON сериализует и записывает документ.
func PutJSON(ctx context.Context, s MetadataStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	return s.Put(ctx, key, data)
}

// AppendJSON сериализует и добавляет audit-запись.
func AppendJSON(ctx context.Context, a AuditSink, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	return a.Append(ctx, key, data)
}
