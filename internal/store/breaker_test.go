package store

import (
	"context"
	"errors"
	"testing"
)

// flakyStore — стаб хранилища с управляемой ошибкой.
type flakyStore struct {
	*Memory
	err error
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStore) Put(ctx context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	return f.Memory.Put(ctx, key, data)
}

func TestBreaker_PassThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	br := NewBreaker("test", mem, mem)

	if err := br.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := br.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("data = %s", data)
	}

	keys, err := br.List(ctx, "")
	if err != nil || len(keys) != 1 {
		t.Errorf("list = %v, %v", keys, err)
	}

	if err := br.Append(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := br.Append(ctx, "a", []byte("2")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	if err := br.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestBreaker_BusinessOutcomesDoNotTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	br := NewBreaker("test", mem, mem)

	// Много ErrNotFound подряд — breaker остаётся замкнутым
	for i := 0; i < 20; i++ {
		if _, err := br.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: expected ErrNotFound, got %v", i, err)
		}
	}

	if err := br.Put(ctx, "k", []byte("v")); err != nil {
		t.Errorf("breaker must stay closed after business outcomes: %v", err)
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Memory: NewMemory(), err: errors.New("connection refused")}
	br := NewBreaker("test", fs, fs)

	// Превышаем порог отказов
	for i := 0; i < 10; i++ {
		br.Get(ctx, "k")
	}

	_, err := br.Get(ctx, "k")
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}

	// Восстановление backend-а не помогает до истечения timeout
	fs.err = nil
	if _, err := br.Get(ctx, "k"); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("breaker must stay open until timeout, got %v", err)
	}
}
