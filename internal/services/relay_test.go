package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PayGate/internal/models"
	"PayGate/internal/signature"
)

func testEvent() MerchantEvent {
	tx := &models.Transaction{
		Reference:             "TX-1A2B3C4D",
		Amount:                25000,
		CustomerPhone:         "237670000000",
		Operator:              models.OperatorOrange,
		Status:                models.TransactionSuccess,
		ProviderTransactionID: "pk-77",
		MerchantID:            "m-1",
	}
	return NewPaymentUpdatedEvent(tx, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
}

func TestRelaySignsExactBody(t *testing.T) {
	var (
		gotBody    []byte
		gotHeaders http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deliveries := &memoryDeliveries{}
	relay := NewRelay("internal-secret", "internal-key", time.Second, deliveries)

	result, err := relay.NotifyMerchant(context.Background(), srv.URL, testEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Delivered || result.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result: %+v", result)
	}

	sig := gotHeaders.Get(HeaderMerchantSignature)
	if !signature.VerifySHA256Hex(gotBody, sig, "internal-secret") {
		t.Fatal("merchant signature does not match the delivered bytes")
	}
	if gotHeaders.Get(HeaderInternalSignature) != sig {
		t.Fatal("expected the internal marker to carry the same signature")
	}
	if gotHeaders.Get(HeaderAPIKey) != "internal-key" {
		t.Fatalf("expected api key header, got %q", gotHeaders.Get(HeaderAPIKey))
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var decoded struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.Event != EventPaymentUpdated {
		t.Fatalf("unexpected event %q", decoded.Event)
	}
	for _, key := range []string{"reference", "amount", "currency", "customer_phone", "status", "operator", "provider_transaction_id", "timestamp"} {
		if _, ok := decoded.Data[key]; !ok {
			t.Errorf("missing %s in event data", key)
		}
	}
	if decoded.Data["currency"] != "XAF" {
		t.Errorf("expected default currency, got %v", decoded.Data["currency"])
	}

	recorded := deliveries.All()
	if len(recorded) != 1 || recorded[0].Status != models.DeliveryDelivered || recorded[0].MerchantID != "m-1" {
		t.Fatalf("unexpected delivery log: %+v", recorded)
	}
}

func TestRelaySkipsMissingDestination(t *testing.T) {
	deliveries := &memoryDeliveries{}
	relay := NewRelay("internal-secret", "", time.Second, deliveries)

	result, err := relay.NotifyMerchant(context.Background(), "", testEvent())
	if err != nil {
		t.Fatalf("a missing url must not be an error, got %v", err)
	}
	if !result.Skipped || result.Reason != "missing destination" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if recorded := deliveries.All(); len(recorded) != 1 || recorded[0].Status != models.DeliverySkipped {
		t.Fatalf("expected a skipped delivery row, got %+v", recorded)
	}
}

func TestRelayReportsNon2xx(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	deliveries := &memoryDeliveries{}
	relay := NewRelay("internal-secret", "", time.Second, deliveries)

	result, err := relay.NotifyMerchant(context.Background(), srv.URL, testEvent())
	if KindOf(err) != KindDelivery {
		t.Fatalf("expected a delivery error, got %v", err)
	}
	if result.StatusCode != http.StatusServiceUnavailable || result.Delivered {
		t.Fatalf("unexpected result: %+v", result)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one attempt, got %d", hits)
	}
	if recorded := deliveries.All(); len(recorded) != 1 || recorded[0].Status != models.DeliveryFailed {
		t.Fatalf("expected a failed delivery row, got %+v", recorded)
	}
}

func TestRelayTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	relay := NewRelay("internal-secret", "", 50*time.Millisecond, nil)

	start := time.Now()
	_, err := relay.NotifyMerchant(context.Background(), srv.URL, testEvent())
	if KindOf(err) != KindDelivery {
		t.Fatalf("expected a delivery error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("relay did not honour its timeout, took %s", elapsed)
	}
}
