package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker — circuit breaker декоратор над MetadataStore и AuditSink.
//
// Защищает publish/consume пути от деградировавшего хранилища:
// после серии отказов breaker размыкается и операции отклоняются
// сразу, без сетевого вызова. Ошибки хранилища при этом сохраняют
// исходную цепочку для errors.Is.
type Breaker struct {
	store MetadataStore
	audit AuditSink
	cb    *gobreaker.CircuitBreaker
}

// ErrBreakerOpen — хранилище временно недоступно (breaker разомкнут).
var ErrBreakerOpen = errors.New("store circuit breaker open")

// NewBreaker оборачивает хранилище circuit breaker-ом.
func NewBreaker(name string, store MetadataStore, audit AuditSink) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})

	return &Breaker{store: store, audit: audit, cb: cb}
}

// execute выполняет операцию через breaker.
// ErrNotFound и ErrAlreadyExists — бизнес-исходы, а не отказы
// хранилища; они не засчитываются в статистику breaker-а.
func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(func() (any, error) {
		res, err := fn()
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
			return result{res, err}, nil
		}
		return res, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}
	if err != nil {
		return nil, err
	}

	if r, ok := res.(result); ok {
		return r.value, r.err
	}
	return res, nil
}

// result переносит бизнес-исход сквозь breaker без учёта как отказ.
type result struct {
	value any
	err   error
}

// Get возвращает документ по ключу.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := b.execute(func() (any, error) {
		return b.store.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.([]byte), nil
}

// Put записывает документ по ключу.
func (b *Breaker) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.store.Put(ctx, key, data)
	})
	return err
}

// List возвращает ключи с данным префиксом.
func (b *Breaker) List(ctx context.Context, prefix string) ([]string, error) {
	res, err := b.execute(func() (any, error) {
		return b.store.List(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.([]string), nil
}

// Delete удаляет документ.
func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.store.Delete(ctx, key)
	})
	return err
}

// Append добавляет audit-запись.
func (b *Breaker) Append(ctx context.Context, key string, data []byte) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.audit.Append(ctx, key, data)
	})
	return err
}
