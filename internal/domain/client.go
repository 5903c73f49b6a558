package domain

import "time"

// DateLayout — формат календарной даты для учёта суточной квоты.
const DateLayout = "2006-01-02"

// Client — запись клиента в Metadata Store.
//
// Хранится по ключу clients/<id>/metadata. Квотные поля
// (MessageCountToday, LastReset, DailyLimit) мутируются только
// через quota.Tracker; остальные поля — через onboarding.Service.
type Client struct {
	// ClientID — внешний идентификатор клиента.
	ClientID string `json:"client_id"`

	// Email — контактный email.
	Email string `json:"email"`

	// Phone — контактный телефон.
	Phone string `json:"phone,omitempty"`

	// FirstName, LastName — имя клиента.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// RegisteredAt — время регистрации.
	RegisteredAt time.Time `json:"registered_date"`

	// IsActive — активен ли клиент. Отправка деактивированным
	// клиентам отклоняется до повторной активации.
	IsActive bool `json:"is_active"`

	// OnboardingCompleted — завершён ли процесс onboarding.
	OnboardingCompleted bool `json:"onboarding_completed"`

	// OnboardingCompletedAt — время завершения onboarding.
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_date,omitempty"`

	// DeactivatedAt / ReactivatedAt — времена последней
	// деактивации и реактивации.
	DeactivatedAt *time.Time `json:"deactivated_date,omitempty"`
	ReactivatedAt *time.Time `json:"reactivated_date,omitempty"`

	// Custom — произвольные метаданные клиента.
	Custom map[string]any `json:"custom_metadata,omitempty"`

	// MessageCountToday — количество отправленных сегодня сообщений.
	MessageCountToday int `json:"message_count_today"`

	// LastReset — календарная дата последнего сброса счётчика
	// (формат DateLayout). Счётчик сбрасывается ровно один раз
	// в сутки при первой проверке квоты в новый день.
	LastReset string `json:"last_reset"`

	// LastMessageSent — время последней отправки.
	LastMessageSent *time.Time `json:"last_message_sent,omitempty"`

	// DailyLimit — суточный лимит сообщений. Должен совпадать
	// с x-max-length очереди клиента, иначе отказы квоты и отказы
	// брокера расходятся.
	DailyLimit int `json:"daily_limit"`
}
