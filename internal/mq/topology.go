package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников (wire-контракт, менять нельзя).
const (
	ExchangeDirect   Exchange = "insurance.direct"
	ExchangeWorkflow Exchange = "insurance.workflow"
	ExchangeDLX      Exchange = "insurance.dlx"
)

// Workflow-очереди и их topic-паттерны.
const (
	QueueWorkflowEnrollment Queue = "workflow.enrollment"
	QueueWorkflowClaims     Queue = "workflow.claims"
	QueueWorkflowPayments   Queue = "workflow.payments"

	PatternEnrollment RoutingKey = "enrollment.*"
	PatternClaims     RoutingKey = "claims.*"
	PatternPayments   RoutingKey = "payments.*"
)

// ClientQueue возвращает имя primary-очереди клиента.
func ClientQueue(clientID string) Queue {
	return Queue("client." + clientID)
}

// FailedQueue возвращает имя dead-letter очереди клиента.
func FailedQueue(clientID string) Queue {
	return Queue("failed." + clientID)
}

// FailedRoutingKey возвращает routing key для dead-letter очереди.
func FailedRoutingKey(clientID string) RoutingKey {
	return RoutingKey("failed." + clientID)
}

// WorkflowQueues возвращает имена workflow-очередей.
func WorkflowQueues() []Queue {
	return []Queue{QueueWorkflowEnrollment, QueueWorkflowClaims, QueueWorkflowPayments}
}

// EnsureTopology идемпотентно объявляет три обменника.
// Отклонение объявления (существующий exchange другого типа под тем же
// именем) — ErrTopology: фатально при старте.
func EnsureTopology(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeDirect, "direct"},
		{ExchangeWorkflow, "topic"},
		{ExchangeDLX, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w: %w", ex.name, ErrTopology, err)
		}
	}

	return nil
}

// workflowBindings — фиксированный набор workflow-очередей.
// Каждая очередь принимает все ключи своего домена по topic-паттерну.
var workflowBindings = []struct {
	queue   Queue
	pattern RoutingKey
}{
	{QueueWorkflowEnrollment, PatternEnrollment},
	{QueueWorkflowClaims, PatternClaims},
	{QueueWorkflowPayments, PatternPayments},
}

// EnsureWorkflowQueues идемпотентно объявляет workflow-очереди
// и привязывает их к topic-обменнику.
func EnsureWorkflowQueues(ch *amqp.Channel) error {
	for _, b := range workflowBindings {
		_, err := ch.QueueDeclare(
			string(b.queue), // name
			true,            // durable
			false,           // delete when unused
			false,           // exclusive
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w: %w", b.queue, ErrTopology, err)
		}

		err = ch.QueueBind(
			string(b.queue),   // queue name
			string(b.pattern), // routing key pattern
			string(ExchangeWorkflow),
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w: %w", b.queue, ErrTopology, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Courier RabbitMQ Topology:

    insurance.direct (direct)
    └── client.<id> [routing: <id>]
            Consumer: courier-consumer
            TTL: 24h, max-length: daily limit, overflow: reject-publish
            DLX: insurance.dlx → failed.<id>

    insurance.workflow (topic)
    ├── workflow.enrollment [routing: enrollment.*]
    ├── workflow.claims     [routing: claims.*]
    └── workflow.payments   [routing: payments.*]
            Consumer: courier-consumer

    insurance.dlx (direct)
    └── failed.<id> [routing: failed.<id>]
            Manual inspection, no auto-redelivery
  `
}
