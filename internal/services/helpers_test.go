package services

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"PayGate/internal/models"
	"PayGate/internal/store"
)

// countingStore wraps a real store and counts status writes that went through.
type countingStore struct {
	store.Store
	writes    int32
	failWrite error
}

func (s *countingStore) UpdateStatus(ctx context.Context, reference string, expected, next models.TransactionStatus, providerID string) (*models.Transaction, error) {
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	tx, err := s.Store.UpdateStatus(ctx, reference, expected, next, providerID)
	if err == nil {
		atomic.AddInt32(&s.writes, 1)
	}
	return tx, err
}

func (s *countingStore) Writes() int {
	return int(atomic.LoadInt32(&s.writes))
}

func newTestStore(t *testing.T) *countingStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &countingStore{Store: s}
}

type memoryDeliveries struct {
	mu    sync.Mutex
	items []models.WebhookDelivery
}

func (m *memoryDeliveries) RecordDelivery(_ context.Context, d *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *d)
	return nil
}

func (m *memoryDeliveries) All() []models.WebhookDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WebhookDelivery(nil), m.items...)
}

type memoryNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (m *memoryNotifications) RecordNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *n)
	return nil
}

func (m *memoryNotifications) ByType(typ models.NotificationType) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type mockNotifier struct {
	mu         sync.Mutex
	calls      []MerchantEvent
	urls       []string
	NotifyFunc func(ctx context.Context, url string, event MerchantEvent) (*DeliveryResult, error)
}

func (m *mockNotifier) NotifyMerchant(ctx context.Context, url string, event MerchantEvent) (*DeliveryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, event)
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, url, event)
	}
	return &DeliveryResult{Delivered: true, StatusCode: 200}, nil
}

func (m *mockNotifier) Calls() []MerchantEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MerchantEvent(nil), m.calls...)
}

type mockProvider struct {
	calls       int32
	CollectFunc func(ctx context.Context, req CollectRequest) (*CollectResult, error)
}

func (m *mockProvider) Collect(ctx context.Context, req CollectRequest) (*CollectResult, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, req)
	}
	return &CollectResult{ProviderTransactionID: "pk-" + req.Reference}, nil
}

func (m *mockProvider) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func seedTransaction(t *testing.T, s store.Store, ref, merchantID string) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		Reference:     ref,
		Amount:        10000,
		Currency:      models.DefaultCurrency,
		CustomerPhone: "237670000000",
		Operator:      models.OperatorMTN,
		Status:        models.TransactionPending,
		MerchantID:    merchantID,
		Metadata:      models.NewMetadata(nil),
	}
	if err := s.Create(context.Background(), tx); err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return tx
}

func seedMerchant(t *testing.T, s store.Store, webhookURL string) *models.Merchant {
	t.Helper()
	m := &models.Merchant{
		CompanyName: "Douala Market",
		Email:       "ops@douala.example",
		Phone:       "237690000000",
		WebhookURL:  webhookURL,
		IsActive:    true,
		APIKey:      "merchant-key",
	}
	if err := s.SaveMerchant(context.Background(), m); err != nil {
		t.Fatalf("failed to seed merchant: %v", err)
	}
	return m
}
