package notify

import (
	"time"

	"github.com/centuriesmutual/courier/internal/domain"
)

// auditRecord — запись обработчика в Audit Sink.
type auditRecord struct {
	Action           string    `json:"action"`
	ClientID         string    `json:"client_id,omitempty"`
	MessageID        string    `json:"message_id"`
	Timestamp        time.Time `json:"timestamp"`
	Content          string    `json:"content"`
	NotificationType string    `json:"notification_type,omitempty"`
	RoutingKey       string    `json:"routing_key,omitempty"`
}

// dispatch выбирает действие по типу сообщения.
//
// Выбор исчерпывающий по закрытому набору типов; для неизвестного
// типа возвращает ok=false — это не ошибка (forward compatibility),
// сообщение всё равно подтверждается.
func dispatch(env *domain.Envelope, at time.Time) (auditRecord, bool) {
	var action string

	switch domain.ParseKind(string(env.Kind)) {
	case domain.KindDocumentRequest:
		action = "document_request_processed"
	case domain.KindClaimUpdate:
		action = "claim_update_processed"
	case domain.KindPaymentReminder:
		action = "payment_reminder_processed"
	case domain.KindEnrollmentNotification:
		action = "enrollment_notification_processed"
	case domain.KindBeneficiaryUpdate:
		action = "beneficiary_update_processed"
	case domain.KindSystemAlert:
		action = "system_alert_processed"
	default:
		return auditRecord{}, false
	}

	rec := auditRecord{
		Action:    action,
		ClientID:  env.ClientID,
		MessageID: env.ID,
		Timestamp: at,
		Content:   env.Content,
	}

	if domain.ParseKind(string(env.Kind)) == domain.KindSystemAlert {
		rec.NotificationType = notificationType(env)
	}

	return rec, true
}

// notificationType извлекает notification_type из метаданных
// system_alert сообщения.
func notificationType(env *domain.Envelope) string {
	if v, ok := env.Metadata["notification_type"].(string); ok && v != "" {
		return v
	}
	return "general"
}
