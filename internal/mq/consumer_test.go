package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/centuriesmutual/courier/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAcker — запись ack/nack решений consumer-а.
type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func newTestConsumer(handler Handler) *Consumer {
	return NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue:   "client.test",
		Handler: handler,
	})
}

func envelopeBody(t *testing.T) []byte {
	t.Helper()
	env := domain.NewClientEnvelope("c1", domain.KindClaimUpdate, "hello")
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleDelivery_Success(t *testing.T) {
	var handled *Delivery
	c := newTestConsumer(func(ctx context.Context, d *Delivery) error {
		handled = d
		return nil
	})

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         envelopeBody(t),
		RoutingKey:   "c1",
	})

	if handled == nil {
		t.Fatal("handler was not called")
	}
	if handled.Envelope.ClientID != "c1" || handled.Envelope.Kind != domain.KindClaimUpdate {
		t.Errorf("envelope = %+v", handled.Envelope)
	}
	if !acker.acked || acker.nacked {
		t.Errorf("expected ack, got acked=%v nacked=%v", acker.acked, acker.nacked)
	}
}

func TestHandleDelivery_MalformedDiscarded(t *testing.T) {
	called := false
	c := newTestConsumer(func(ctx context.Context, d *Delivery) error {
		called = true
		return nil
	})

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte("{not json"),
	})

	if called {
		t.Error("handler must not run on malformed payload")
	}
	// Некорректный payload отбрасывается без requeue
	if !acker.nacked || acker.requeue {
		t.Errorf("expected nack without requeue, got nacked=%v requeue=%v", acker.nacked, acker.requeue)
	}
}

func TestHandleDelivery_HandlerErrorRequeued(t *testing.T) {
	c := newTestConsumer(func(ctx context.Context, d *Delivery) error {
		return errors.New("audit sink down")
	})

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         envelopeBody(t),
	})

	// Ошибка обработчика — возврат в очередь
	if !acker.nacked || !acker.requeue {
		t.Errorf("expected nack with requeue, got nacked=%v requeue=%v", acker.nacked, acker.requeue)
	}
	if acker.acked {
		t.Error("must not ack on handler error")
	}
}

func TestConsumerConfig_DefaultPrefetch(t *testing.T) {
	c := newTestConsumer(nil)
	if c.prefetch != 1 {
		t.Errorf("prefetch = %d, want 1", c.prefetch)
	}

	c = NewConsumer(nil, testLogger(), ConsumerConfig{Queue: "q", Prefetch: 5})
	if c.prefetch != 5 {
		t.Errorf("prefetch = %d, want 5", c.prefetch)
	}
}
