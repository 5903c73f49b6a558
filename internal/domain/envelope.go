package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind — тип сообщения.
//
// Закрытый набор известных типов плюс KindUnrecognized для
// forward-compatibility: неизвестный тип не является ошибкой,
// сообщение обрабатывается и подтверждается.
type Kind string

const (
	// KindDocumentRequest — запрос документа от клиента.
	KindDocumentRequest Kind = "document_request"

	// KindClaimUpdate — обновление статуса страхового случая.
	KindClaimUpdate Kind = "claim_update"

	// KindPaymentReminder — напоминание об оплате.
	KindPaymentReminder Kind = "payment_reminder"

	// KindEnrollmentNotification — уведомление о регистрации/зачислении.
	KindEnrollmentNotification Kind = "enrollment_notification"

	// KindBeneficiaryUpdate — изменение данных выгодоприобретателя.
	KindBeneficiaryUpdate Kind = "beneficiary_update"

	// KindSystemAlert — системное уведомление (высокий приоритет).
	KindSystemAlert Kind = "system_alert"

	// KindUnrecognized — неизвестный тип сообщения.
	KindUnrecognized Kind = "unrecognized"
)

// ParseKind возвращает известный Kind или KindUnrecognized.
// Workflow-сообщения могут нести произвольный тип — для них
// исходная строка сохраняется в конверте как есть.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindDocumentRequest:
		return KindDocumentRequest
	case KindClaimUpdate:
		return KindClaimUpdate
	case KindPaymentReminder:
		return KindPaymentReminder
	case KindEnrollmentNotification:
		return KindEnrollmentNotification
	case KindBeneficiaryUpdate:
		return KindBeneficiaryUpdate
	case KindSystemAlert:
		return KindSystemAlert
	default:
		return KindUnrecognized
	}
}

// IsKnown возвращает true для типов из закрытого набора.
func (k Kind) IsKnown() bool {
	return ParseKind(string(k)) != KindUnrecognized
}

// Envelope — конверт сообщения.
//
// Конверт неизменяем после публикации. Единственное допустимое
// изменение архивной копии — инкремент RetryCount при повторной
// отправке (Resend).
type Envelope struct {
	// ID — глобально уникальный идентификатор сообщения (UUID).
	ID string `json:"id"`

	// Kind — тип сообщения. Для workflow-сообщений может быть
	// произвольной строкой.
	Kind Kind `json:"type"`

	// Content — текст сообщения.
	Content string `json:"content"`

	// Timestamp — время создания конверта.
	Timestamp time.Time `json:"timestamp"`

	// ClientID — идентификатор клиента-получателя.
	// Пусто для workflow-сообщений.
	ClientID string `json:"client_id,omitempty"`

	// RoutingKey — иерархический ключ маршрутизации.
	// Заполняется только для workflow-сообщений.
	RoutingKey string `json:"routing_key,omitempty"`

	// Priority — приоритет доставки 0–9 (0 = обычный).
	Priority uint8 `json:"priority,omitempty"`

	// Attachments — ссылки на вложения.
	Attachments []string `json:"attachments,omitempty"`

	// Metadata — произвольные ключ/значение пары.
	Metadata map[string]any `json:"metadata,omitempty"`

	// RetryCount — количество повторных отправок.
	RetryCount int `json:"retry_count,omitempty"`
}

// NewClientEnvelope создаёт конверт для сообщения клиенту.
func NewClientEnvelope(clientID string, kind Kind, content string) *Envelope {
	return &Envelope{
		ID:        uuid.New().String(),
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now().UTC(),
		ClientID:  clientID,
	}
}

// NewWorkflowEnvelope создаёт конверт для workflow-сообщения.
// Workflow-сообщения не привязаны к клиенту и маршрутизируются
// по topic-ключу.
func NewWorkflowEnvelope(routingKey, kind, content string) *Envelope {
	return &Envelope{
		ID:         uuid.New().String(),
		Kind:       Kind(kind),
		Content:    content,
		Timestamp:  time.Now().UTC(),
		RoutingKey: routingKey,
	}
}
