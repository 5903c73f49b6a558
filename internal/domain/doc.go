// Package domain содержит основные типы системы уведомлений.
//
// Типы:
//   - envelope.go     — Envelope (конверт сообщения) и Kind (тип сообщения)
//   - client.go       — Client (запись клиента с квотой отправки)
//   - confirmation.go — Confirmation (подтверждение доставки)
//
// Все типы сериализуются в JSON и хранятся в Metadata Store.
// Имена JSON-полей конверта — внешний wire-контракт: от них
// зависят сторонние consumers, менять их нельзя.
package domain
