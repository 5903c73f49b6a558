package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestTracker создаёт Tracker с фиксированным временем
// и записью клиента в in-memory хранилище.
func newTestTracker(t *testing.T, limit int, active bool) (*Tracker, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	tr := NewTracker(mem, testLogger(), DefaultDailyLimit)

	day := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return day }

	rec := &domain.Client{
		ClientID:   "c1",
		Email:      "c1@example.com",
		IsActive:   active,
		LastReset:  day.Format(domain.DateLayout),
		DailyLimit: limit,
	}
	if err := store.PutJSON(context.Background(), mem, store.ClientMetadataKey("c1"), rec); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	return tr, mem
}

func loadClient(t *testing.T, mem *store.Memory) domain.Client {
	t.Helper()
	rec, err := store.GetJSON[domain.Client](context.Background(), mem, store.ClientMetadataKey("c1"))
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	return rec
}

func TestCheckAndReserve_LimitBoundary(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 3, true)

	// Ровно limit резервирований проходят
	for i := 0; i < 3; i++ {
		if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
			t.Fatalf("reserve %d: %v", i+1, err)
		}
	}

	// limit+1 отклоняется
	err := tr.CheckAndReserve(ctx, "c1")
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	rec := loadClient(t, mem)
	if rec.MessageCountToday != 3 {
		t.Errorf("count = %d, want 3", rec.MessageCountToday)
	}
	if rec.LastMessageSent == nil {
		t.Error("last_message_sent must be set")
	}
}

func TestCheckAndReserve_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, 0, true)

	for i := 0; i < DefaultDailyLimit; i++ {
		if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
			t.Fatalf("reserve %d: %v", i+1, err)
		}
	}
	if err := tr.CheckAndReserve(ctx, "c1"); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestCheckAndReserve_RolloverBeforeDecision(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 2, true)

	// Исчерпываем вчерашний лимит
	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.CheckAndReserve(ctx, "c1"); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	// Наступает новый день — допуск снова открыт
	tr.now = func() time.Time { return time.Date(2026, 6, 2, 0, 0, 1, 0, time.UTC) }

	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Fatalf("reserve after rollover: %v", err)
	}

	rec := loadClient(t, mem)
	if rec.MessageCountToday != 1 {
		t.Errorf("count = %d, want 1 after rollover", rec.MessageCountToday)
	}
	if rec.LastReset != "2026-06-02" {
		t.Errorf("last_reset = %q", rec.LastReset)
	}
}

func TestCheckAndReserve_RolloverPersistedOnDenial(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 2, true)

	// Лимит 2, но счётчик уже накручен выше лимита вручную
	rec := loadClient(t, mem)
	rec.MessageCountToday = 5
	rec.LastReset = "2026-05-31"
	store.PutJSON(ctx, mem, store.ClientMetadataKey("c1"), &rec)

	// Новый день: rollover обнуляет счётчик, допуск проходит
	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Fatalf("expected admission after rollover, got %v", err)
	}

	got := loadClient(t, mem)
	if got.MessageCountToday != 1 {
		t.Errorf("count = %d, want 1", got.MessageCountToday)
	}
	if got.LastReset != "2026-06-01" {
		t.Errorf("last_reset = %q", got.LastReset)
	}
}

func TestCheckAndReserve_Inactive(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, 5, false)

	err := tr.CheckAndReserve(ctx, "c1")
	if !errors.Is(err, ErrClientInactive) {
		t.Fatalf("expected ErrClientInactive, got %v", err)
	}
}

func TestCheckAndReserve_UnknownClient(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, 5, true)

	err := tr.CheckAndReserve(ctx, "ghost")
	if !errors.Is(err, ErrUnknownClient) {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 2, true)

	tr.CheckAndReserve(ctx, "c1")
	tr.CheckAndReserve(ctx, "c1")

	if err := tr.Release(ctx, "c1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	rec := loadClient(t, mem)
	if rec.MessageCountToday != 1 {
		t.Errorf("count = %d, want 1", rec.MessageCountToday)
	}

	// Освобождённый слот можно занять снова
	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}

	// Release на нулевом счётчике не уводит в минус
	tr.Release(ctx, "c1")
	tr.Release(ctx, "c1")
	tr.Release(ctx, "c1")
	rec = loadClient(t, mem)
	if rec.MessageCountToday < 0 {
		t.Errorf("count went negative: %d", rec.MessageCountToday)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 2, true)

	tr.CheckAndReserve(ctx, "c1")
	tr.CheckAndReserve(ctx, "c1")

	if err := tr.Reset(ctx, "c1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	rec := loadClient(t, mem)
	if rec.MessageCountToday != 0 {
		t.Errorf("count = %d, want 0", rec.MessageCountToday)
	}

	if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
		t.Errorf("reserve after reset: %v", err)
	}
}

func TestSetLimit(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 1, true)

	if err := tr.SetLimit(ctx, "c1", 0); err == nil {
		t.Error("zero limit must be rejected")
	}

	if err := tr.SetLimit(ctx, "c1", 4); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	rec := loadClient(t, mem)
	if rec.DailyLimit != 4 {
		t.Errorf("limit = %d, want 4", rec.DailyLimit)
	}

	for i := 0; i < 4; i++ {
		if err := tr.CheckAndReserve(ctx, "c1"); err != nil {
			t.Fatalf("reserve %d: %v", i+1, err)
		}
	}
	if err := tr.CheckAndReserve(ctx, "c1"); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestCheckAndReserve_Concurrent(t *testing.T) {
	ctx := context.Background()
	tr, mem := newTestTracker(t, 10, true)

	// 50 конкурентных попыток при лимите 10: ровно 10 проходят
	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted int

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tr.CheckAndReserve(ctx, "c1"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("admitted = %d, want 10", admitted)
	}

	rec := loadClient(t, mem)
	if rec.MessageCountToday != 10 {
		t.Errorf("count = %d, want 10", rec.MessageCountToday)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, 5, true)

	tr.CheckAndReserve(ctx, "c1")
	tr.CheckAndReserve(ctx, "c1")

	stats, err := tr.Stats(ctx, "c1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.MessagesToday != 2 || stats.DailyLimit != 5 || stats.Remaining != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastMessageSent == nil {
		t.Error("last_message_sent must be set")
	}

	if _, err := tr.Stats(ctx, "ghost"); !errors.Is(err, ErrUnknownClient) {
		t.Errorf("expected ErrUnknownClient, got %v", err)
	}
}
