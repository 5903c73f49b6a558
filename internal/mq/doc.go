// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — supervisor соединения (состояние, ручной reconnect)
//   - topology.go   — объявление exchanges, workflow-очередей, bindings
//   - provision.go  — per-client очереди (primary + dead-letter)
//   - publisher.go  — публикация конвертов
//   - consumer.go   — потребление сообщений из очередей
//
// Exchanges:
//   - insurance.direct   — per-client сообщения (routing key = client id)
//   - insurance.workflow — workflow-сообщения (topic)
//   - insurance.dlx      — dead letter exchange
//
// Очереди client.<id> ограничены x-max-length, совпадающим с суточной
// квотой клиента; переполнение отклоняется брокером (reject-publish)
// и сообщение уходит в failed.<id> через insurance.dlx.
package mq
