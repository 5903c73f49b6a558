package store

import "strings"

// Схема ключей Metadata Store / Audit Sink:
//
//	clients/<id>/metadata                    — запись клиента (включая квоту)
//	clients/<id>/messages/<msgID>            — архив конверта
//	clients/<id>/audit/delivery-<msgID>      — подтверждение доставки
//	clients/<id>/audit/<action>_<msgID>      — audit-запись обработчика
//	workflow/messages/<msgID>                — архив workflow-конверта
//	workflow/processed/<msgID>               — обработанное workflow-сообщение
//	workflow/audit/<domain>_<msgID>          — workflow audit-запись

// ClientsPrefix — префикс всех клиентских ключей.
const ClientsPrefix = "clients/"

// ClientMetadataKey — ключ записи клиента.
func ClientMetadataKey(clientID string) string {
	return ClientsPrefix + clientID + "/metadata"
}

// ClientMessageKey — ключ архивной копии конверта.
func ClientMessageKey(clientID, messageID string) string {
	return ClientsPrefix + clientID + "/messages/" + messageID
}

// DeliveryAuditKey — ключ подтверждения доставки.
func DeliveryAuditKey(clientID, messageID string) string {
	return ClientsPrefix + clientID + "/audit/delivery-" + messageID
}

// ClientAuditKey — ключ audit-записи обработчика сообщения.
func ClientAuditKey(clientID, action, messageID string) string {
	return ClientsPrefix + clientID + "/audit/" + action + "_" + messageID
}

// WorkflowMessageKey — ключ архива workflow-конверта.
func WorkflowMessageKey(messageID string) string {
	return "workflow/messages/" + messageID
}

// WorkflowProcessedKey — ключ записи об обработанном workflow-сообщении.
func WorkflowProcessedKey(messageID string) string {
	return "workflow/processed/" + messageID
}

// WorkflowAuditKey — ключ workflow audit-записи по домену
// (enrollment, claims, payments).
func WorkflowAuditKey(domain, messageID string) string {
	return "workflow/audit/" + domain + "_" + messageID
}

// ClientIDFromKey извлекает id клиента из ключа записи клиента.
// Возвращает "", если ключ не является ключом метаданных клиента.
func ClientIDFromKey(key string) string {
	rest, ok := strings.CutPrefix(key, ClientsPrefix)
	if !ok {
		return ""
	}

	id, ok := strings.CutSuffix(rest, "/metadata")
	if !ok || strings.Contains(id, "/") {
		return ""
	}

	return id
}
