package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/notify"
	"github.com/centuriesmutual/courier/internal/store"
)

// Ошибки сервиса.
var (
	// ErrAlreadyRegistered — клиент с таким id уже зарегистрирован.
	ErrAlreadyRegistered = errors.New("client already registered")

	// ErrInvalidRegistration — некорректные данные регистрации.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Provisioner — управление очередями клиента (реализуется
// mq.Provisioner).
type Provisioner interface {
	ProvisionClient(ctx context.Context, clientID string, limit int) error
	ReprovisionClient(ctx context.Context, clientID string, limit int) error
	DeprovisionClient(ctx context.Context, clientID string) error
	QueueInfo(ctx context.Context, queue mq.Queue) (*mq.QueueInfo, error)
}

// Limiter — изменение квотного лимита (реализуется quota.Tracker).
type Limiter interface {
	SetLimit(ctx context.Context, clientID string, limit int) error
}

// Notifier — отправка служебных сообщений клиенту.
type Notifier interface {
	SendClientMessage(ctx context.Context, req notify.MessageRequest) (*notify.SendResult, error)
}

// Service — сервис жизненного цикла клиента.
type Service struct {
	store       store.MetadataStore
	provisioner Provisioner
	limiter     Limiter
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewService создаёт новый Service.
func NewService(s store.MetadataStore, p Provisioner, l Limiter, n Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:       s,
		provisioner: p,
		limiter:     l,
		notifier:    n,
		logger:      logger,
		now:         time.Now,
	}
}

// Registration — данные регистрации клиента.
type Registration struct {
	ClientID   string         `json:"client_id"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone,omitempty"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	DailyLimit int            `json:"daily_limit,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// validate проверяет минимальные требования к регистрации.
func (r *Registration) validate() error {
	switch {
	case len(r.ClientID) < 3 || len(r.ClientID) > 50:
		return fmt.Errorf("%w: client id must be 3-50 characters", ErrInvalidRegistration)
	case strings.Contains(r.ClientID, "/"):
		return fmt.Errorf("%w: client id must not contain '/'", ErrInvalidRegistration)
	case !strings.Contains(r.Email, "@"):
		return fmt.Errorf("%w: email is malformed", ErrInvalidRegistration)
	case r.FirstName == "" || r.LastName == "":
		return fmt.Errorf("%w: first and last name are required", ErrInvalidRegistration)
	default:
		return nil
	}
}

// Register регистрирует нового клиента.
//
// Порядок: провиженинг очередей → запись клиента → приветственное
// сообщение. Сбой приветственного сообщения не фатален — клиент
// уже зарегистрирован, сообщение лишь логируется.
func (s *Service) Register(ctx context.Context, reg Registration) (*domain.Client, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}

	key := store.ClientMetadataKey(reg.ClientID)
	if _, err := s.store.Get(ctx, key); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, reg.ClientID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing client: %w", err)
	}

	if err := s.provisioner.ProvisionClient(ctx, reg.ClientID, reg.DailyLimit); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &domain.Client{
		ClientID:     reg.ClientID,
		Email:        reg.Email,
		Phone:        reg.Phone,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		RegisteredAt: now,
		IsActive:     true,
		Custom:       reg.Metadata,
		LastReset:    now.Format(domain.DateLayout),
		DailyLimit:   reg.DailyLimit,
	}

	if err := store.PutJSON(ctx, s.store, key, rec); err != nil {
		return nil, fmt.Errorf("store client record: %w", err)
	}

	welcome := notify.MessageRequest{
		ClientID: reg.ClientID,
		Kind:     domain.KindEnrollmentNotification,
		Content: fmt.Sprintf("Welcome to Centuries Mutual, %s! Your account has been created successfully.",
			reg.FirstName),
	}
	if _, err := s.notifier.SendClientMessage(ctx, welcome); err != nil {
		s.logger.Warn("failed to send welcome message", "client_id", reg.ClientID, "error", err)
	}

	s.logger.Info("client registered", "client_id", reg.ClientID)
	return rec, nil
}

// CompleteOnboarding отмечает onboarding завершённым и уведомляет
// клиента.
func (s *Service) CompleteOnboarding(ctx context.Context, clientID string) error {
	rec, err := s.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	rec.OnboardingCompleted = true
	rec.OnboardingCompletedAt = &now

	if err := store.PutJSON(ctx, s.store, store.ClientMetadataKey(clientID), rec); err != nil {
		return fmt.Errorf("update client record: %w", err)
	}

	s.notifyBestEffort(ctx, clientID,
		"Your onboarding process has been completed. You can now access all features.")

	s.logger.Info("onboarding completed", "client_id", clientID)
	return nil
}

// Deactivate деактивирует клиента. Уведомление отправляется до
// смены флага: после деактивации квота отклонит отправку.
func (s *Service) Deactivate(ctx context.Context, clientID string) error {
	rec, err := s.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	s.notifyBestEffort(ctx, clientID,
		"Your account has been deactivated. Please contact support for assistance.")

	now := s.now().UTC()
	rec.IsActive = false
	rec.DeactivatedAt = &now

	if err := store.PutJSON(ctx, s.store, store.ClientMetadataKey(clientID), rec); err != nil {
		return fmt.Errorf("update client record: %w", err)
	}

	s.logger.Info("client deactivated", "client_id", clientID)
	return nil
}

// Reactivate активирует клиента и уведомляет его.
func (s *Service) Reactivate(ctx context.Context, clientID string) error {
	rec, err := s.loadClient(ctx, clientID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	rec.IsActive = true
	rec.ReactivatedAt = &now

	if err := store.PutJSON(ctx, s.store, store.ClientMetadataKey(clientID), rec); err != nil {
		return fmt.Errorf("update client record: %w", err)
	}

	s.notifyBestEffort(ctx, clientID, "Your account has been reactivated. Welcome back!")

	s.logger.Info("client reactivated", "client_id", clientID)
	return nil
}

// UpdateLimit меняет суточный лимит клиента.
//
// Сначала пересоздаётся очередь (x-max-length существующей очереди
// нельзя изменить переобъявлением), и только после успеха на
// брокере новый лимит сохраняется в записи клиента. При ошибке
// брокера квота и очередь остаются согласованными на старом
// лимите; при ошибке записи повтор UpdateLimit идемпотентен.
func (s *Service) UpdateLimit(ctx context.Context, clientID string, limit int) error {
	if err := s.provisioner.ReprovisionClient(ctx, clientID, limit); err != nil {
		return fmt.Errorf("reprovision queue with new limit: %w", err)
	}

	if err := s.limiter.SetLimit(ctx, clientID, limit); err != nil {
		return fmt.Errorf("persist new limit: %w", err)
	}

	return nil
}

// Deregister снимает клиента с обслуживания: удаляет очереди и
// запись клиента. Архив сообщений и audit-записи сохраняются.
func (s *Service) Deregister(ctx context.Context, clientID string) error {
	if err := s.provisioner.DeprovisionClient(ctx, clientID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.ClientMetadataKey(clientID)); err != nil {
		return fmt.Errorf("delete client record: %w", err)
	}

	s.logger.Info("client deregistered", "client_id", clientID)
	return nil
}

// Status — запись клиента вместе с состоянием его очередей.
type Status struct {
	Client      *domain.Client `json:"client"`
	PrimaryInfo *mq.QueueInfo  `json:"primary_queue,omitempty"`
	FailedInfo  *mq.QueueInfo  `json:"failed_queue,omitempty"`
}

// Status возвращает запись клиента и состояние его очередей.
// Недоступность брокера не мешает вернуть запись.
func (s *Service) Status(ctx context.Context, clientID string) (*Status, error) {
	rec, err := s.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	st := &Status{Client: rec}

	if info, err := s.provisioner.QueueInfo(ctx, mq.ClientQueue(clientID)); err == nil {
		st.PrimaryInfo = info
	}
	if info, err := s.provisioner.QueueInfo(ctx, mq.FailedQueue(clientID)); err == nil {
		st.FailedInfo = info
	}

	return st, nil
}

// List возвращает записи всех клиентов.
func (s *Service) List(ctx context.Context) ([]*domain.Client, error) {
	keys, err := s.store.List(ctx, store.ClientsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	var clients []*domain.Client
	for _, key := range keys {
		if store.ClientIDFromKey(key) == "" {
			continue
		}

		rec, err := store.GetJSON[domain.Client](ctx, s.store, key)
		if err != nil {
			return nil, fmt.Errorf("load client %s: %w", key, err)
		}
		clients = append(clients, &rec)
	}

	return clients, nil
}

// loadClient читает запись клиента.
func (s *Service) loadClient(ctx context.Context, clientID string) (*domain.Client, error) {
	rec, err := store.GetJSON[domain.Client](ctx, s.store, store.ClientMetadataKey(clientID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("client %s: %w", clientID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", clientID, err)
	}
	return &rec, nil
}

// notifyBestEffort отправляет служебный system_alert, логируя сбой.
func (s *Service) notifyBestEffort(ctx context.Context, clientID, content string) {
	req := notify.MessageRequest{
		ClientID: clientID,
		Kind:     domain.KindSystemAlert,
		Content:  content,
	}
	if _, err := s.notifier.SendClientMessage(ctx, req); err != nil {
		s.logger.Warn("failed to send service notification", "client_id", clientID, "error", err)
	}
}
