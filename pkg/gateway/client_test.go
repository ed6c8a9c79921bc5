package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "CONFIRMED", want: "confirmed"},
		{input: "confirmed", want: "confirmed"},
		{input: "RECEIVED", want: "received"},
		{input: "RECEIVED_IN_CASH", want: "received"},
		{input: "REFUNDED", want: "refunded"},
		{input: "OVERDUE", want: "failed"},
		{input: "CHARGEBACK_REQUESTED", want: "failed"},
		{input: "PENDING", want: "pending"},
		{input: "something_new", want: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := normalizeStatus(tt.input)
			if got != tt.want {
				t.Fatalf("normalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New("stripe", "https://example.com", "key"); err == nil {
		t.Fatal("expected unknown provider error, got nil")
	}
	if client, err := New("", "https://example.com", "key"); err != nil || client == nil {
		t.Fatalf("expected default provider client, got (%v, %v)", client, err)
	}
}

func TestAsaasClient_GetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/payments/pay_123" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("access_token") != "key_abc" {
			t.Fatalf("expected api key header, got %q", r.Header.Get("access_token"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "pay_123",
			"status":      "CONFIRMED",
			"value":       100.50,
			"paymentDate": "2026-01-10",
		})
	}))
	defer server.Close()

	client := NewAsaasClient(server.URL, "key_abc")
	payment, err := client.GetPayment(context.Background(), "pay_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != "confirmed" {
		t.Fatalf("expected normalized status confirmed, got %q", payment.Status)
	}
	// 100.50 currency units become 10050 cents.
	if payment.Amount != 10050 {
		t.Fatalf("expected amount 10050, got %d", payment.Amount)
	}
	if payment.PaymentDate != "2026-01-10" {
		t.Fatalf("expected payment date preserved, got %q", payment.PaymentDate)
	}
}

func TestAsaasClient_GetPaymentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":"not_found"}]}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewAsaasClient(server.URL, "key_abc")
	if _, err := client.GetPayment(context.Background(), "pay_missing"); err == nil {
		t.Fatal("expected error for non-200 gateway response")
	}
}
