package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/store"
	"github.com/centuriesmutual/courier/internal/telemetry"
)

// Ошибки квоты.
var (
	// ErrLimitExceeded — суточный лимит исчерпан. Отличима от
	// транспортных ошибок; автоматически не ретраится.
	ErrLimitExceeded = errors.New("daily message limit exceeded")

	// ErrClientInactive — клиент деактивирован.
	ErrClientInactive = errors.New("client is inactive")

	// ErrUnknownClient — запись клиента не найдена.
	ErrUnknownClient = errors.New("unknown client")
)

// DefaultDailyLimit — суточный лимит по умолчанию.
const DefaultDailyLimit = 10

// Tracker ведёт суточные счётчики отправки.
//
// Допуск реализован как reserve/release: CheckAndReserve атомарно
// проверяет лимит и занимает слот (инкрементирует счётчик);
// при последующей ошибке архивации или публикации вызывающая
// сторона возвращает слот через Release. Сбой между reserve и
// release может потерять один слот, но никогда не приводит к
// превышению лимита.
type Tracker struct {
	store        store.MetadataStore
	logger       *slog.Logger
	defaultLimit int

	// now подменяется в тестах для проверки суточного сброса.
	now func() time.Time

	// per-client мьютексы: сериализация read-modify-write квоты.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker создаёт новый Tracker.
func NewTracker(s store.MetadataStore, logger *slog.Logger, defaultLimit int) *Tracker {
	if defaultLimit <= 0 {
		defaultLimit = DefaultDailyLimit
	}

	return &Tracker{
		store:        s,
		logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
	}
}

// clientLock возвращает мьютекс клиента, создавая при необходимости.
func (t *Tracker) clientLock(clientID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lk, ok := t.locks[clientID]
	if !ok {
		lk = &sync.Mutex{}
		t.locks[clientID] = lk
	}
	return lk
}

// load читает запись клиента.
func (t *Tracker) load(ctx context.Context, clientID string) (domain.Client, error) {
	rec, err := store.GetJSON[domain.Client](ctx, t.store, store.ClientMetadataKey(clientID))
	if errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}
	if err != nil {
		return rec, fmt.Errorf("load quota state %s: %w", clientID, err)
	}
	return rec, nil
}

// save записывает запись клиента.
func (t *Tracker) save(ctx context.Context, rec *domain.Client) error {
	if err := store.PutJSON(ctx, t.store, store.ClientMetadataKey(rec.ClientID), rec); err != nil {
		return fmt.Errorf("save quota state %s: %w", rec.ClientID, err)
	}
	return nil
}

// rollover сбрасывает счётчик при первой проверке в новый день.
// Возвращает true, если запись изменилась.
func (t *Tracker) rollover(rec *domain.Client) bool {
	today := t.now().Format(domain.DateLayout)
	if rec.LastReset == today {
		return false
	}

	rec.MessageCountToday = 0
	rec.LastReset = today
	return true
}

// CheckAndReserve атомарно проверяет квоту и занимает один слот.
//
// Сброс счётчика (новый день) выполняется до принятия решения.
// При отказе: ErrLimitExceeded, ErrClientInactive или ErrUnknownClient.
// При nil-ошибке слот занят; если отправка не состоялась,
// слот возвращается через Release.
func (t *Tracker) CheckAndReserve(ctx context.Context, clientID string) error {
	lk := t.clientLock(clientID)
	lk.Lock()
	defer lk.Unlock()

	rec, err := t.load(ctx, clientID)
	if err != nil {
		return err
	}

	if !rec.IsActive {
		return fmt.Errorf("%w: %s", ErrClientInactive, clientID)
	}

	rolled := t.rollover(&rec)

	limit := rec.DailyLimit
	if limit <= 0 {
		limit = t.defaultLimit
	}

	if rec.MessageCountToday >= limit {
		// Сброс нового дня фиксируется и при отказе.
		if rolled {
			if err := t.save(ctx, &rec); err != nil {
				return err
			}
		}
		telemetry.QuotaDenials.Inc()
		return fmt.Errorf("%w: client %s sent %d of %d today", ErrLimitExceeded, clientID, rec.MessageCountToday, limit)
	}

	now := t.now().UTC()
	rec.MessageCountToday++
	rec.LastMessageSent = &now

	return t.save(ctx, &rec)
}

// Release возвращает занятый слот после неудачной отправки.
func (t *Tracker) Release(ctx context.Context, clientID string) error {
	lk := t.clientLock(clientID)
	lk.Lock()
	defer lk.Unlock()

	rec, err := t.load(ctx, clientID)
	if err != nil {
		return err
	}

	if rec.MessageCountToday > 0 {
		rec.MessageCountToday--
	}

	return t.save(ctx, &rec)
}

// Reset принудительно обнуляет счётчик независимо от даты
// (административная операция).
func (t *Tracker) Reset(ctx context.Context, clientID string) error {
	lk := t.clientLock(clientID)
	lk.Lock()
	defer lk.Unlock()

	rec, err := t.load(ctx, clientID)
	if err != nil {
		return err
	}

	rec.MessageCountToday = 0
	rec.LastReset = t.now().Format(domain.DateLayout)

	if err := t.save(ctx, &rec); err != nil {
		return err
	}

	t.logger.Info("quota reset", "client_id", clientID)
	return nil
}

// SetLimit устанавливает индивидуальный суточный лимит клиента.
// Лимит должен совпадать с x-max-length очереди клиента — очередь
// перепровиженится вызывающей стороной.
func (t *Tracker) SetLimit(ctx context.Context, clientID string, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	lk := t.clientLock(clientID)
	lk.Lock()
	defer lk.Unlock()

	rec, err := t.load(ctx, clientID)
	if err != nil {
		return err
	}

	rec.DailyLimit = limit

	if err := t.save(ctx, &rec); err != nil {
		return err
	}

	t.logger.Info("quota limit updated", "client_id", clientID, "limit", limit)
	return nil
}

// Stats — статистика отправки клиента.
type Stats struct {
	ClientID        string     `json:"client_id"`
	MessagesToday   int        `json:"messages_today"`
	DailyLimit      int        `json:"daily_limit"`
	Remaining       int        `json:"remaining_messages"`
	LastReset       string     `json:"last_reset"`
	LastMessageSent *time.Time `json:"last_message_sent,omitempty"`
}

// Stats возвращает статистику отправки клиента.
func (t *Tracker) Stats(ctx context.Context, clientID string) (*Stats, error) {
	rec, err := t.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	limit := rec.DailyLimit
	if limit <= 0 {
		limit = t.defaultLimit
	}

	remaining := limit - rec.MessageCountToday
	if remaining < 0 {
		remaining = 0
	}

	return &Stats{
		ClientID:        clientID,
		MessagesToday:   rec.MessageCountToday,
		DailyLimit:      limit,
		Remaining:       remaining,
		LastReset:       rec.LastReset,
		LastMessageSent: rec.LastMessageSent,
	}, nil
}
