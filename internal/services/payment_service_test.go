package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"PayGate/internal/config"
	"PayGate/internal/models"
)

var referencePattern = regexp.MustCompile(`^TX-[A-Z0-9]{8}$`)

type paymentFixture struct {
	store    *countingStore
	notes    *memoryNotifications
	provider *mockProvider
	svc      *PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	s := newTestStore(t)
	notes := &memoryNotifications{}
	provider := &mockProvider{}

	svc, err := NewPaymentService(config.PaymentConfig{
		MinAmount:       10000,
		PhonePattern:    `^\+?237[0-9]{9}$`,
		DefaultCurrency: "XAF",
	}, s, provider, NewNotificationService(notes))
	if err != nil {
		t.Fatalf("failed to build payment service: %v", err)
	}
	return &paymentFixture{store: s, notes: notes, provider: provider, svc: svc}
}

func validRequest() InitiateRequest {
	return InitiateRequest{
		Amount:        10000,
		CustomerPhone: "237670000000",
		Operator:      models.OperatorMTN,
		MerchantID:    "m-1",
		Metadata:      map[string]any{"order_id": "SO-9"},
	}
}

func TestInitiateCreatesPendingTransaction(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !referencePattern.MatchString(res.Reference) {
		t.Fatalf("reference %q does not match TX-XXXXXXXX", res.Reference)
	}
	if res.Status != models.TransactionPending || res.ProviderTransactionID != "pk-"+res.Reference {
		t.Fatalf("unexpected result: %+v", res)
	}

	tx, err := f.store.FindByReference(ctx, res.Reference)
	if err != nil {
		t.Fatalf("transaction not stored: %v", err)
	}
	if tx.Status != models.TransactionPending || tx.ProviderTransactionID != res.ProviderTransactionID {
		t.Fatalf("unexpected stored transaction: %+v", tx)
	}
	if tx.Currency != "XAF" || tx.MerchantID != "m-1" {
		t.Fatalf("unexpected currency or merchant: %+v", tx)
	}
	if tx.Metadata.Data().Extra["order_id"] != "SO-9" {
		t.Fatalf("metadata not kept: %+v", tx.Metadata.Data())
	}
	if f.provider.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", f.provider.Calls())
	}
	if n := f.notes.ByType(models.NotificationPaymentConfirmation); len(n) != 1 {
		t.Fatalf("expected one confirmation message, got %d", len(n))
	}
	if f.store.Writes() != 0 {
		t.Fatal("initiation must not write a status")
	}
}

func TestInitiateRejectsLocally(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*InitiateRequest)
	}{
		{"below minimum", func(r *InitiateRequest) { r.Amount = 5000 }},
		{"zero amount", func(r *InitiateRequest) { r.Amount = 0 }},
		{"foreign phone", func(r *InitiateRequest) { r.CustomerPhone = "33612345678" }},
		{"short phone", func(r *InitiateRequest) { r.CustomerPhone = "23767000" }},
		{"unknown operator", func(r *InitiateRequest) { r.Operator = "AIRTEL" }},
		{"missing operator", func(r *InitiateRequest) { r.Operator = "" }},
		{"bad currency", func(r *InitiateRequest) { r.Currency = "EURO" }},
		{"no merchant", func(r *InitiateRequest) { r.MerchantID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.Initiate(context.Background(), req)
			if KindOf(err) != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if f.provider.Calls() != 0 {
				t.Fatal("provider must not be called on a local rejection")
			}
			items, _ := f.store.ListByMerchant(context.Background(), "m-1", 0)
			if len(items) != 0 {
				t.Fatal("no transaction should be created")
			}
		})
	}
}

func TestInitiateNormalizesInput(t *testing.T) {
	f := newPaymentFixture(t)
	req := validRequest()
	req.Operator = "orange"
	req.CustomerPhone = " +237690000000 "
	req.Currency = "xaf"

	res, err := f.svc.Initiate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx, _ := f.store.FindByReference(context.Background(), res.Reference)
	if tx.Operator != models.OperatorOrange || tx.CustomerPhone != "237690000000" || tx.Currency != "XAF" {
		t.Fatalf("input not normalized: %+v", tx)
	}
}

func TestInitiateProviderFailureMarksFailed(t *testing.T) {
	f := newPaymentFixture(t)
	f.provider.CollectFunc = func(ctx context.Context, req CollectRequest) (*CollectResult, error) {
		return nil, errors.New("mesomb error: service not activated")
	}

	_, err := f.svc.Initiate(context.Background(), validRequest())
	if KindOf(err) != KindProvider {
		t.Fatalf("expected provider error, got %v", err)
	}

	var se *Error
	if !errors.As(err, &se) || se.Reference == "" {
		t.Fatalf("expected the error to carry the reference, got %v", err)
	}

	tx, err := f.store.FindByReference(context.Background(), se.Reference)
	if err != nil {
		t.Fatalf("failed transaction must stay recorded: %v", err)
	}
	if tx.Status != models.TransactionFailed {
		t.Fatalf("expected FAILED, got %s", tx.Status)
	}
	diag := tx.Metadata.Data().Diagnostics
	if diag == nil || diag.LastError != "mesomb error: service not activated" || diag.Source != "provider" || diag.FailedAt == nil {
		t.Fatalf("unexpected diagnostics: %+v", diag)
	}
	if tx.Metadata.Data().Extra["order_id"] != "SO-9" {
		t.Fatal("merchant metadata lost on failure")
	}
	if n := f.notes.ByType(models.NotificationPaymentFailure); len(n) != 1 {
		t.Fatalf("expected one failure message, got %d", len(n))
	}
}

func TestInitiateRetriesDuplicateReference(t *testing.T) {
	f := newPaymentFixture(t)
	seedTransaction(t, f.store, "TX-AAAAAAAA", "m-0")

	refs := []string{"TX-AAAAAAAA", "TX-BBBBBBBB"}
	f.svc.newReference = func() string {
		r := refs[0]
		refs = refs[1:]
		return r
	}

	res, err := f.svc.Initiate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reference != "TX-BBBBBBBB" {
		t.Fatalf("expected the second reference, got %s", res.Reference)
	}
}

func TestInitiateGivesUpOnPersistentCollision(t *testing.T) {
	f := newPaymentFixture(t)
	seedTransaction(t, f.store, "TX-AAAAAAAA", "m-0")
	f.svc.newReference = func() string { return "TX-AAAAAAAA" }

	_, err := f.svc.Initiate(context.Background(), validRequest())
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if f.provider.Calls() != 0 {
		t.Fatal("provider must not be called without a stored transaction")
	}
}

func TestStatusIsScopedToMerchant(t *testing.T) {
	f := newPaymentFixture(t)
	seedTransaction(t, f.store, "TX-12345678", "m-1")
	ctx := context.Background()

	tx, err := f.svc.Status(ctx, "m-1", "TX-12345678")
	if err != nil || tx.Reference != "TX-12345678" {
		t.Fatalf("unexpected result: %+v, %v", tx, err)
	}
	if _, err := f.svc.Status(ctx, "m-2", "TX-12345678"); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found for another merchant, got %v", err)
	}
	if _, err := f.svc.Status(ctx, "m-1", "TX-00000000"); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.provider.Calls() != 0 {
		t.Fatal("status must never call the provider")
	}
}

func TestMerchantTransactions(t *testing.T) {
	f := newPaymentFixture(t)
	for _, ref := range []string{"TX-00000001", "TX-00000002", "TX-00000003"} {
		seedTransaction(t, f.store, ref, "m-1")
	}
	seedTransaction(t, f.store, "TX-00000009", "m-2")

	items, err := f.svc.MerchantTransactions(context.Background(), "m-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(items))
	}
	if items[0].Reference != "TX-00000003" {
		t.Fatalf("expected newest first, got %s", items[0].Reference)
	}
}
