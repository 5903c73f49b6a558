package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "clients/a/metadata"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Put(ctx, "clients/a/metadata", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := m.Get(ctx, "clients/a/metadata")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != `{"x":1}` {
		t.Errorf("data = %s", data)
	}

	// Put перезаписывает
	if err := m.Put(ctx, "clients/a/metadata", []byte(`{"x":2}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, _ = m.Get(ctx, "clients/a/metadata")
	if string(data) != `{"x":2}` {
		t.Errorf("after overwrite data = %s", data)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Put(ctx, "k", []byte("abc"))

	data, _ := m.Get(ctx, "k")
	data[0] = 'X'

	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("mutating the returned slice must not affect the store, got %s", again)
	}
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Put(ctx, "clients/b/metadata", nil)
	m.Put(ctx, "clients/a/metadata", nil)
	m.Put(ctx, "clients/a/messages/m1", nil)
	m.Put(ctx, "workflow/messages/m2", nil)

	keys, err := m.List(ctx, "clients/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"clients/a/messages/m1", "clients/a/metadata", "clients/b/metadata"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	keys, _ = m.List(ctx, "nope/")
	if len(keys) != 0 {
		t.Errorf("expected empty list, got %v", keys)
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Put(ctx, "k", []byte("v"))

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Повторное удаление — не ошибка
	if err := m.Delete(ctx, "k"); err != nil {
		t.Errorf("delete of missing key: %v", err)
	}
}

func TestMemory_AppendWriteOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Append(ctx, "clients/a/audit/delivery-m1", []byte("1")); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := m.Append(ctx, "clients/a/audit/delivery-m1", []byte("2"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Исходная запись не перезаписана
	data, _ := m.Get(ctx, "clients/a/audit/delivery-m1")
	if string(data) != "1" {
		t.Errorf("audit record was overwritten: %s", data)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type doc struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}

	if err := PutJSON(ctx, m, "k", doc{Name: "a", N: 7}); err != nil {
		t.Fatalf("put json: %v", err)
	}

	got, err := GetJSON[doc](ctx, m, "k")
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	if got.Name != "a" || got.N != 7 {
		t.Errorf("got %+v", got)
	}

	if _, err := GetJSON[doc](ctx, m, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
