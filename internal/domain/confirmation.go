package domain

import "time"

// DeliveryStatus — результат обработки сообщения consumer-ом.
type DeliveryStatus string

// StatusDelivered — сообщение обработано и подтверждено.
// Неудачные попытки подтверждений не порождают: сообщение
// возвращается в очередь, а исчерпавшее retry уходит в DLX.
const StatusDelivered DeliveryStatus = "delivered"

// Confirmation — подтверждение доставки (audit-запись).
//
// Append-only: одна запись на каждую попытку обработки,
// ключи генерируются от id сообщения.
type Confirmation struct {
	// MessageID — идентификатор обработанного сообщения.
	MessageID string `json:"message_id"`

	// ClientID — получатель. Пусто для workflow-сообщений.
	ClientID string `json:"client_id,omitempty"`

	// ProcessedAt — время обработки.
	ProcessedAt time.Time `json:"processed"`

	// Status — итог обработки.
	Status DeliveryStatus `json:"status"`

	// Kind — тип обработанного сообщения.
	Kind string `json:"message_type"`
}

// NewConfirmation создаёт подтверждение доставки для конверта.
func NewConfirmation(env *Envelope, status DeliveryStatus, at time.Time) *Confirmation {
	return &Confirmation{
		MessageID:   env.ID,
		ClientID:    env.ClientID,
		ProcessedAt: at,
		Status:      status,
		Kind:        string(env.Kind),
	}
}
