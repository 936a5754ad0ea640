package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"PayGate/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Create(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *GormStore) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return s.first(ctx, "reference = ?", reference)
}

func (s *GormStore) FindByReferenceOrProviderID(ctx context.Context, reference, providerID string) (*models.Transaction, error) {
	if reference != "" {
		tx, err := s.first(ctx, "reference = ?", reference)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return tx, err
		}
	}
	if providerID != "" {
		return s.first(ctx, "provider_transaction_id = ?", providerID)
	}
	return nil, ErrNotFound
}

func (s *GormStore) UpdateStatus(ctx context.Context, reference string, expected, next models.TransactionStatus, providerID string) (*models.Transaction, error) {
	updates := map[string]any{"status": next}
	if providerID != "" {
		updates["provider_transaction_id"] = providerID
	}

	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("reference = ? AND status = ?", reference, expected).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Either the reference is unknown or someone else moved the status.
		if _, err := s.FindByReference(ctx, reference); err != nil {
			return nil, err
		}
		return nil, ErrStatusConflict
	}

	return s.FindByReference(ctx, reference)
}

func (s *GormStore) AttachProviderID(ctx context.Context, reference, providerID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("reference = ?", reference).
		Update("provider_transaction_id", providerID)
	if res.Error != nil {
		return fmt.Errorf("failed to attach provider id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkFailed(ctx context.Context, reference string, diag models.Diagnostics) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var tx models.Transaction
		if err := db.Where("reference = ?", reference).First(&tx).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		applyFailure(&tx, diag)

		return db.Model(&tx).Updates(map[string]any{
			"status":   tx.Status,
			"metadata": tx.Metadata,
		}).Error
	})
}

func (s *GormStore) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *GormStore) FindMerchant(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := s.db.WithContext(ctx).First(&merchant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

func (s *GormStore) FindMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	if apiKey == "" {
		return nil, ErrNotFound
	}
	var merchant models.Merchant
	if err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

func (s *GormStore) SaveMerchant(ctx context.Context, m *models.Merchant) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Save(m).Error
}

func (s *GormStore) RecordDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) RecordNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) first(ctx context.Context, query string, arg any) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where(query, arg).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}
