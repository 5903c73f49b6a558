// Package notify реализует прикладной слой обмена сообщениями:
// публикацию с квотой и архивацией, потребление с диспетчеризацией
// и audit-записями.
//
// Структура:
//   - publisher.go — отправка клиентских/workflow сообщений,
//     bulk-отправка, повторная отправка
//   - consumer.go  — потребление клиентских очередей
//   - workflow.go  — потребление workflow-очередей
//   - handlers.go  — диспетчеризация по типу сообщения
//
// Порядок публикации: резерв квоты → архив в Metadata Store →
// публикация в брокер. Сбой на любом шаге возвращает квотный слот;
// архивная копия при сбое публикации сохраняется для Resend.
package notify
