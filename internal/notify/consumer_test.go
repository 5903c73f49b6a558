package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/domain"
	"github.com/centuriesmutual/courier/internal/mq"
	"github.com/centuriesmutual/courier/internal/store"
)

func newTestConsumer(sink store.AuditSink) *Consumer {
	c := NewConsumer(sink, testLogger())
	c.now = func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func clientDelivery(clientID string, kind domain.Kind) *mq.Delivery {
	return &mq.Delivery{
		Envelope: domain.Envelope{
			ID:       "msg-1",
			Kind:     kind,
			Content:  "hello",
			ClientID: clientID,
		},
	}
}

func TestHandle_WritesAuditAndConfirmation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	if err := c.Handle(ctx, clientDelivery("c1", domain.KindClaimUpdate)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// Audit-запись обработчика
	rec, err := store.GetJSON[auditRecord](ctx, mem, store.ClientAuditKey("c1", "claim_update_processed", "msg-1"))
	if err != nil {
		t.Fatalf("audit record missing: %v", err)
	}
	if rec.Action != "claim_update_processed" || rec.MessageID != "msg-1" {
		t.Errorf("audit record = %+v", rec)
	}

	// Подтверждение доставки
	conf, err := store.GetJSON[domain.Confirmation](ctx, mem, store.DeliveryAuditKey("c1", "msg-1"))
	if err != nil {
		t.Fatalf("confirmation missing: %v", err)
	}
	if conf.Status != domain.StatusDelivered || conf.ClientID != "c1" {
		t.Errorf("confirmation = %+v", conf)
	}
}

func TestHandle_SystemAlertNotificationType(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	d := clientDelivery("c1", domain.KindSystemAlert)
	d.Envelope.Metadata = map[string]any{"notification_type": "account_deactivated"}

	if err := c.Handle(ctx, d); err != nil {
		t.Fatal(err)
	}

	rec, err := store.GetJSON[auditRecord](ctx, mem, store.ClientAuditKey("c1", "system_alert_processed", "msg-1"))
	if err != nil {
		t.Fatalf("audit record missing: %v", err)
	}
	if rec.NotificationType != "account_deactivated" {
		t.Errorf("notification_type = %q", rec.NotificationType)
	}
}

func TestHandle_UnknownKindStillConfirmed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	// Неизвестный тип: без ошибки, без audit-записи обработчика,
	// но с подтверждением доставки
	if err := c.Handle(ctx, clientDelivery("c1", "mystery_kind")); err != nil {
		t.Fatalf("unknown kind must not fail: %v", err)
	}

	if _, err := mem.Get(ctx, store.DeliveryAuditKey("c1", "msg-1")); err != nil {
		t.Errorf("confirmation missing: %v", err)
	}

	keys, _ := mem.List(ctx, "clients/c1/audit/")
	if len(keys) != 1 {
		t.Errorf("expected only the confirmation, got %v", keys)
	}
}

func TestHandle_Redelivery(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	// Повторная доставка того же сообщения идемпотентна
	if err := c.Handle(ctx, clientDelivery("c1", domain.KindClaimUpdate)); err != nil {
		t.Fatal(err)
	}
	if err := c.Handle(ctx, clientDelivery("c1", domain.KindClaimUpdate)); err != nil {
		t.Fatalf("redelivery must not fail: %v", err)
	}
}

func TestHandle_SinkFailure(t *testing.T) {
	ctx := context.Background()
	c := newTestConsumer(&failingSink{err: errors.New("store down")})

	// Сбой Audit Sink возвращается как ошибка — сообщение уйдёт
	// в requeue на уровне mq.Consumer
	if err := c.Handle(ctx, clientDelivery("c1", domain.KindClaimUpdate)); err == nil {
		t.Fatal("sink failure must propagate")
	}
}

// failingSink — Audit Sink с постоянной ошибкой.
type failingSink struct {
	err error
}

func (f *failingSink) Append(ctx context.Context, key string, data []byte) error {
	return f.err
}

func TestHandleWorkflow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	d := &mq.Delivery{
		Envelope: domain.Envelope{
			ID:      "wf-1",
			Kind:    domain.KindClaimUpdate,
			Content: "new claim",
		},
		Raw: amqp.Delivery{RoutingKey: "claims.submitted"},
	}

	if err := c.HandleWorkflow(ctx, d); err != nil {
		t.Fatalf("handle workflow: %v", err)
	}

	// Архив обработанного сообщения
	proc, err := store.GetJSON[processedRecord](ctx, mem, store.WorkflowProcessedKey("wf-1"))
	if err != nil {
		t.Fatalf("processed record missing: %v", err)
	}
	if proc.RoutingKey != "claims.submitted" || proc.Status != "processed" {
		t.Errorf("processed = %+v", proc)
	}

	// Доменная audit-запись
	rec, err := store.GetJSON[auditRecord](ctx, mem, store.WorkflowAuditKey("claims", "wf-1"))
	if err != nil {
		t.Fatalf("workflow audit missing: %v", err)
	}
	if rec.Action != "claims_workflow_processed" {
		t.Errorf("action = %q", rec.Action)
	}
}

func TestHandleWorkflow_DomainDispatch(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"enrollment.started", "enrollment"},
		{"enrollment.completed", "enrollment"},
		{"claims.approved", "claims"},
		{"payments.received", "payments"},
		{"billing.overdue", ""},
		{"claims", ""},
	}

	for _, tt := range tests {
		if got := workflowDomain(tt.key); got != tt.want {
			t.Errorf("workflowDomain(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestHandleWorkflow_UnknownPrefix(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestConsumer(mem)

	d := &mq.Delivery{
		Envelope: domain.Envelope{ID: "wf-2", Content: "x"},
		Raw:      amqp.Delivery{RoutingKey: "billing.overdue"},
	}

	// Неизвестный префикс: сообщение архивируется без доменной записи
	if err := c.HandleWorkflow(ctx, d); err != nil {
		t.Fatalf("unknown prefix must not fail: %v", err)
	}

	if _, err := mem.Get(ctx, store.WorkflowProcessedKey("wf-2")); err != nil {
		t.Errorf("processed record missing: %v", err)
	}
	keys, _ := mem.List(ctx, "workflow/audit/")
	if len(keys) != 0 {
		t.Errorf("no domain audit expected, got %v", keys)
	}
}
