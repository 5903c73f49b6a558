package mq

import "errors"

// Ошибки транспортного слоя.
var (
	// ErrNotConnected — соединение с брокером не установлено.
	// Операции в этом состоянии завершаются сразу, без локальной
	// очередизации; восстановление — через Connection.Reconnect.
	ErrNotConnected = errors.New("not connected to broker")

	// ErrTopology — брокер отклонил объявление exchange/queue
	// (несовпадение аргументов с существующей сущностью).
	// Фатально при старте; в runtime лечится только административно.
	ErrTopology = errors.New("topology declaration rejected")

	// ErrMalformedPayload — тело сообщения не декодируется.
	// Такое сообщение отбрасывается без requeue: повторная доставка
	// не сделает его корректным.
	ErrMalformedPayload = errors.New("malformed message payload")
)
