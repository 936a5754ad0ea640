// Package store persists transactions and reads merchants.
//
// Two backends implement the same contract: GormStore (postgres, or sqlite for
// local runs) and BoltStore (embedded). Status writes are conditional on the
// status the caller last observed, so concurrent duplicate webhook deliveries
// cannot both apply a transition.
package store

import (
	"context"
	"errors"

	"gorm.io/datatypes"

	"PayGate/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrStatusConflict     = errors.New("transaction status changed concurrently")
	ErrDuplicateReference = errors.New("transaction reference already exists")
)

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// FindByReferenceOrProviderID looks the reference up first and falls back
	// to the provider transaction id.
	FindByReferenceOrProviderID(ctx context.Context, reference, providerID string) (*models.Transaction, error)
	// UpdateStatus sets next only if the stored status still equals expected.
	// A non-empty providerID replaces the stored one.
	UpdateStatus(ctx context.Context, reference string, expected, next models.TransactionStatus, providerID string) (*models.Transaction, error)
	AttachProviderID(ctx context.Context, reference, providerID string) error
	MarkFailed(ctx context.Context, reference string, diag models.Diagnostics) error
	ListByMerchant(ctx context.Context, merchantID string, limit int) ([]models.Transaction, error)
}

type MerchantStore interface {
	FindMerchant(ctx context.Context, id string) (*models.Merchant, error)
	FindMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error)
	SaveMerchant(ctx context.Context, m *models.Merchant) error
}

// Store is what the application wires: both backends satisfy it.
type Store interface {
	TransactionStore
	MerchantStore
	Close() error
}

// DeliveryLog keeps an audit row per merchant relay attempt.
type DeliveryLog interface {
	RecordDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

// NotificationLog keeps the customer messages that were emitted.
type NotificationLog interface {
	RecordNotification(ctx context.Context, n *models.Notification) error
}

const DefaultListLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return DefaultListLimit
	}
	return limit
}

// applyFailure merges diagnostics into the transaction metadata and marks it FAILED.
func applyFailure(tx *models.Transaction, diag models.Diagnostics) {
	meta := tx.Metadata.Data()
	meta.Diagnostics = &diag
	tx.Metadata = datatypes.NewJSONType(meta)
	tx.Status = models.TransactionFailed
}
