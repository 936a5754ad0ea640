package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"PayGate/internal/models"
)

var (
	transactionsBucket  = []byte("transactions")
	providerIndexBucket = []byte("provider_ids")
	merchantsBucket     = []byte("merchants")
	apiKeyIndexBucket   = []byte("merchant_api_keys")
	deliveriesBucket    = []byte("webhook_deliveries")
	notificationsBucket = []byte("notifications")
)

// BoltStore keeps everything in one embedded file. Every write runs inside a
// single bolt.Update, and bolt serialises writers, so the conditional status
// update is atomic without further locking.
type BoltStore struct {
	db *bolt.DB
}

// merchantRecord is the stored shape of a merchant. models.Merchant hides the
// API key from JSON, which is what the HTTP layer wants but not what we persist.
type merchantRecord struct {
	models.Merchant
	APIKey string `json:"api_key"`
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			transactionsBucket, providerIndexBucket, merchantsBucket,
			apiKeyIndexBucket, deliveriesBucket, notificationsBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Create(_ context.Context, t *models.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(transactionsBucket)
		if b.Get([]byte(t.Reference)) != nil {
			return ErrDuplicateReference
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		t.ID = uint(seq)
		if t.Status == "" {
			t.Status = models.TransactionPending
		}
		if t.Currency == "" {
			t.Currency = models.DefaultCurrency
		}
		t.CreatedAt = now
		t.UpdatedAt = now

		if err := putJSON(b, []byte(t.Reference), t); err != nil {
			return err
		}
		return indexProviderID(tx, t.ProviderTransactionID, t.Reference)
	})
}

func (s *BoltStore) FindByReference(_ context.Context, reference string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(transactionsBucket), []byte(reference), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) FindByReferenceOrProviderID(ctx context.Context, reference, providerID string) (*models.Transaction, error) {
	if reference != "" {
		t, err := s.FindByReference(ctx, reference)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return t, err
		}
	}
	if providerID == "" {
		return nil, ErrNotFound
	}

	var t models.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		ref := tx.Bucket(providerIndexBucket).Get([]byte(providerID))
		if ref == nil {
			return ErrNotFound
		}
		return getJSON(tx.Bucket(transactionsBucket), ref, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) UpdateStatus(_ context.Context, reference string, expected, next models.TransactionStatus, providerID string) (*models.Transaction, error) {
	var result models.Transaction

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(transactionsBucket)
		if err := getJSON(b, []byte(reference), &result); err != nil {
			return err
		}
		if result.Status != expected {
			return ErrStatusConflict
		}

		result.Status = next
		if providerID != "" {
			result.ProviderTransactionID = providerID
		}
		result.UpdatedAt = time.Now().UTC()

		if err := putJSON(b, []byte(reference), &result); err != nil {
			return err
		}
		return indexProviderID(tx, providerID, reference)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *BoltStore) AttachProviderID(_ context.Context, reference, providerID string) error {
	return s.mutate(reference, func(t *models.Transaction) {
		t.ProviderTransactionID = providerID
	}, providerID)
}

func (s *BoltStore) MarkFailed(_ context.Context, reference string, diag models.Diagnostics) error {
	return s.mutate(reference, func(t *models.Transaction) {
		applyFailure(t, diag)
	}, "")
}

func (s *BoltStore) ListByMerchant(_ context.Context, merchantID string, limit int) ([]models.Transaction, error) {
	items := []models.Transaction{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(transactionsBucket).ForEach(func(_, v []byte) error {
			var t models.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if t.MerchantID == merchantID {
				items = append(items, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if n := normalizeLimit(limit); len(items) > n {
		items = items[:n]
	}
	return items, nil
}

func (s *BoltStore) FindMerchant(_ context.Context, id string) (*models.Merchant, error) {
	var rec merchantRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(merchantsBucket), []byte(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.model(), nil
}

func (s *BoltStore) FindMerchantByAPIKey(_ context.Context, apiKey string) (*models.Merchant, error) {
	if apiKey == "" {
		return nil, ErrNotFound
	}

	var rec merchantRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(apiKeyIndexBucket).Get([]byte(apiKey))
		if id == nil {
			return ErrNotFound
		}
		return getJSON(tx.Bucket(merchantsBucket), id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.model(), nil
}

func (s *BoltStore) SaveMerchant(_ context.Context, m *models.Merchant) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(merchantsBucket)
		idx := tx.Bucket(apiKeyIndexBucket)

		now := time.Now().UTC()
		var previous merchantRecord
		switch err := getJSON(b, []byte(m.ID), &previous); {
		case err == nil:
			m.CreatedAt = previous.CreatedAt
			if previous.APIKey != "" && previous.APIKey != m.APIKey {
				if err := idx.Delete([]byte(previous.APIKey)); err != nil {
					return err
				}
			}
		case errors.Is(err, ErrNotFound):
			m.CreatedAt = now
		default:
			return err
		}
		m.UpdatedAt = now

		if m.APIKey != "" {
			if owner := idx.Get([]byte(m.APIKey)); owner != nil && !bytes.Equal(owner, []byte(m.ID)) {
				return errors.New("api key already assigned to another merchant")
			}
			if err := idx.Put([]byte(m.APIKey), []byte(m.ID)); err != nil {
				return err
			}
		}

		return putJSON(b, []byte(m.ID), merchantRecord{Merchant: *m, APIKey: m.APIKey})
	})
}

func (s *BoltStore) RecordDelivery(_ context.Context, d *models.WebhookDelivery) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(deliveriesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		d.ID = uint(seq)
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		return putJSON(b, itob(seq), d)
	})
}

func (s *BoltStore) RecordNotification(_ context.Context, n *models.Notification) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(notificationsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		n.ID = uint(seq)
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		return putJSON(b, itob(seq), n)
	})
}

func (s *BoltStore) mutate(reference string, fn func(*models.Transaction), providerID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(transactionsBucket)
		var t models.Transaction
		if err := getJSON(b, []byte(reference), &t); err != nil {
			return err
		}

		fn(&t)
		t.UpdatedAt = time.Now().UTC()

		if err := putJSON(b, []byte(reference), &t); err != nil {
			return err
		}
		return indexProviderID(tx, providerID, reference)
	})
}

func (r merchantRecord) model() *models.Merchant {
	m := r.Merchant
	m.APIKey = r.APIKey
	return &m
}

func indexProviderID(tx *bolt.Tx, providerID, reference string) error {
	if providerID == "" {
		return nil
	}
	return tx.Bucket(providerIndexBucket).Put([]byte(providerID), []byte(reference))
}

func getJSON(b *bolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
