package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseKind_KnownKinds(t *testing.T) {
	known := []Kind{
		KindDocumentRequest,
		KindClaimUpdate,
		KindPaymentReminder,
		KindEnrollmentNotification,
		KindBeneficiaryUpdate,
		KindSystemAlert,
	}

	for _, k := range known {
		if got := ParseKind(string(k)); got != k {
			t.Errorf("ParseKind(%q) = %q, want %q", k, got, k)
		}
		if !k.IsKnown() {
			t.Errorf("%q should be known", k)
		}
	}
}

func TestParseKind_Unrecognized(t *testing.T) {
	for _, s := range []string{"", "DOCUMENT_REQUEST", "document-request", "spam"} {
		if got := ParseKind(s); got != KindUnrecognized {
			t.Errorf("ParseKind(%q) = %q, want unrecognized", s, got)
		}
	}

	if KindUnrecognized.IsKnown() {
		t.Error("unrecognized must not be a known kind")
	}
}

func TestNewClientEnvelope(t *testing.T) {
	env := NewClientEnvelope("client-1", KindClaimUpdate, "claim approved")

	if env.ID == "" {
		t.Error("envelope must get a generated id")
	}
	if env.ClientID != "client-1" {
		t.Errorf("client id = %q", env.ClientID)
	}
	if env.Kind != KindClaimUpdate {
		t.Errorf("kind = %q", env.Kind)
	}
	if env.RoutingKey != "" {
		t.Errorf("client envelope must not carry a routing key, got %q", env.RoutingKey)
	}
	if env.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}

	// ID уникальны между конвертами
	other := NewClientEnvelope("client-1", KindClaimUpdate, "claim approved")
	if env.ID == other.ID {
		t.Error("two envelopes must not share an id")
	}
}

func TestNewWorkflowEnvelope(t *testing.T) {
	env := NewWorkflowEnvelope("claims.submitted", "claim_update", "new claim")

	if env.RoutingKey != "claims.submitted" {
		t.Errorf("routing key = %q", env.RoutingKey)
	}
	if env.ClientID != "" {
		t.Errorf("workflow envelope must not carry a client id, got %q", env.ClientID)
	}
	if env.Kind != KindClaimUpdate {
		t.Errorf("kind = %q", env.Kind)
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	env := &Envelope{
		ID:        "msg-1",
		Kind:      KindPaymentReminder,
		Content:   "premium due",
		Timestamp: ts,
		ClientID:  "client-7",
		Priority:  5,
		Metadata:  map[string]any{"policy": "H-100"},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Проверяем имена wire-полей: внешние consumers зависят от них
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	for _, field := range []string{"id", "type", "content", "timestamp", "client_id", "priority", "metadata"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("wire format missing field %q", field)
		}
	}
	if _, ok := raw["routing_key"]; ok {
		t.Error("empty routing_key must be omitted")
	}
	if _, ok := raw["retry_count"]; ok {
		t.Error("zero retry_count must be omitted")
	}

	var back Envelope
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != env.ID || back.Kind != env.Kind || !back.Timestamp.Equal(ts) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
