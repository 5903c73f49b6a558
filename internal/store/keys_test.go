package store

import "testing"

func TestKeyScheme(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{ClientMetadataKey("c1"), "clients/c1/metadata"},
		{ClientMessageKey("c1", "m1"), "clients/c1/messages/m1"},
		{DeliveryAuditKey("c1", "m1"), "clients/c1/audit/delivery-m1"},
		{ClientAuditKey("c1", "claim_update_processed", "m1"), "clients/c1/audit/claim_update_processed_m1"},
		{WorkflowMessageKey("m1"), "workflow/messages/m1"},
		{WorkflowProcessedKey("m1"), "workflow/processed/m1"},
		{WorkflowAuditKey("claims", "m1"), "workflow/audit/claims_m1"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestClientIDFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"clients/c1/metadata", "c1"},
		{"clients/insurance-77/metadata", "insurance-77"},
		{"clients/c1/messages/m1", ""},
		{"clients/c1/audit/delivery-m1", ""},
		{"workflow/messages/m1", ""},
		{"clients//metadata", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ClientIDFromKey(tt.key); got != tt.want {
			t.Errorf("ClientIDFromKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
