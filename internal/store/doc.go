// Package store определяет интерфейсы долговременного хранилища
// (Metadata Store и Audit Sink) и их реализации.
//
// Структура:
//   - store.go    — интерфейсы, ошибки, JSON-хелперы
//   - keys.go     — схема иерархических ключей
//   - memory.go   — in-memory реализация (разработка и тесты)
//   - postgres.go — реализация поверх PostgreSQL (pgx, key/jsonb таблица)
//   - redis.go    — реализация поверх Redis
//   - breaker.go  — circuit breaker декоратор (gobreaker)
//   - open.go     — выбор backend-а по переменным окружения
//
// Metadata Store владеет всем durable-состоянием системы: записями
// клиентов (включая квоты), архивом конвертов и audit-логами.
// Брокер владеет только in-flight сообщениями.
package store
