package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"PayGate/internal/config"
	"PayGate/internal/models"
	"PayGate/internal/store"
)

const maxReferenceAttempts = 3

type InitiateRequest struct {
	Amount        int64           `json:"amount" validate:"required,gt=0"`
	CustomerPhone string          `json:"customer_phone" validate:"required,cm_phone"`
	Operator      models.Operator `json:"operator" validate:"required,oneof=ORANGE MTN"`
	Currency      string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Metadata      map[string]any  `json:"metadata"`
	// MerchantID comes from the authenticated caller, never from the body.
	MerchantID string `json:"-"`
}

type InitiateResult struct {
	Reference             string                   `json:"reference"`
	ProviderTransactionID string                   `json:"transaction_id"`
	Status                models.TransactionStatus `json:"status"`
}

type PaymentService struct {
	transactions store.TransactionStore
	provider     PaymentProvider
	customers    CustomerNotifier
	validate     *validator.Validate
	cfg          config.PaymentConfig

	newReference func() string
	now          func() time.Time
}

func NewPaymentService(cfg config.PaymentConfig, transactions store.TransactionStore, provider PaymentProvider, customers CustomerNotifier) (*PaymentService, error) {
	phone, err := regexp.Compile(cfg.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("cm_phone", func(fl validator.FieldLevel) bool {
		return phone.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = models.DefaultCurrency
	}

	return &PaymentService{
		transactions: transactions,
		provider:     provider,
		customers:    customers,
		validate:     v,
		cfg:          cfg,
		newReference: NewReference,
		now:          time.Now,
	}, nil
}

// NewReference returns a reference of the form TX-XXXXXXXX.
func NewReference() string {
	return "TX-" + strings.ToUpper(uuid.NewString()[:8])
}

// Initiate records a PENDING transaction and asks the provider to collect it.
// The final status only ever arrives through the webhook processor.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Operator = models.Operator(strings.ToUpper(strings.TrimSpace(string(req.Operator))))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	if err := s.validate.Struct(req); err != nil {
		return nil, newError(KindValidation, validationMessage(err), err)
	}
	// Stored and sent to the provider without the leading +.
	req.CustomerPhone = strings.TrimPrefix(req.CustomerPhone, "+")
	if req.Amount < s.cfg.MinAmount {
		return nil, newError(KindValidation, fmt.Sprintf("amount must be at least %d", s.cfg.MinAmount), nil)
	}
	if req.MerchantID == "" {
		return nil, newError(KindValidation, "merchant is required", nil)
	}
	if req.Currency == "" {
		req.Currency = s.cfg.DefaultCurrency
	}

	tx, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("💰 Payment initiated: %s (%d %s, %s)", tx.Reference, tx.Amount, tx.Currency, tx.Operator)

	if s.customers != nil {
		if err := s.customers.NotifyPaymentConfirmation(ctx, tx.CustomerPhone, tx.Amount, tx.Reference); err != nil {
			log.Printf("⚠️  Confirmation message failed for %s: %v", tx.Reference, err)
		}
	}

	res, err := s.provider.Collect(ctx, CollectRequest{
		Reference: tx.Reference,
		Amount:    tx.Amount,
		Phone:     tx.CustomerPhone,
		Operator:  tx.Operator,
		Currency:  tx.Currency,
	})
	if err != nil {
		s.fail(ctx, tx, err)
		return nil, &Error{
			Kind:      KindProvider,
			Message:   "Payment initiation failed",
			Reference: tx.Reference,
			Err:       err,
		}
	}

	if err := s.transactions.AttachProviderID(ctx, tx.Reference, res.ProviderTransactionID); err != nil {
		// The webhook can still find the transaction by reference.
		log.Printf("⚠️  Failed to attach provider id %s to %s: %v", res.ProviderTransactionID, tx.Reference, err)
	}

	log.Printf("⏳ %s accepted by provider (pk %s), waiting for webhook", tx.Reference, res.ProviderTransactionID)

	return &InitiateResult{
		Reference:             tx.Reference,
		ProviderTransactionID: res.ProviderTransactionID,
		Status:                models.TransactionPending,
	}, nil
}

// Status reads the stored state. It never asks the provider.
func (s *PaymentService) Status(ctx context.Context, merchantID, reference string) (*models.Transaction, error) {
	tx, err := s.transactions.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "Transaction not found", err)
		}
		return nil, newError(KindInternal, "Failed to fetch transaction", err)
	}
	if merchantID != "" && tx.MerchantID != merchantID {
		return nil, newError(KindNotFound, "Transaction not found", nil)
	}
	return tx, nil
}

// MerchantTransactions lists a merchant's most recent transactions, newest first.
func (s *PaymentService) MerchantTransactions(ctx context.Context, merchantID string, limit int) ([]models.Transaction, error) {
	items, err := s.transactions.ListByMerchant(ctx, merchantID, limit)
	if err != nil {
		return nil, newError(KindInternal, "Failed to fetch transactions", err)
	}
	return items, nil
}

func (s *PaymentService) create(ctx context.Context, req InitiateRequest) (*models.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		tx := &models.Transaction{
			Reference:     s.newReference(),
			Amount:        req.Amount,
			Currency:      req.Currency,
			CustomerPhone: req.CustomerPhone,
			Operator:      req.Operator,
			Status:        models.TransactionPending,
			MerchantID:    req.MerchantID,
			Metadata:      models.NewMetadata(req.Metadata),
		}

		err := s.transactions.Create(ctx, tx)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, store.ErrDuplicateReference) {
			return nil, newError(KindInternal, "Failed to create transaction", err)
		}
		lastErr = err
	}
	return nil, newError(KindInternal, "Failed to allocate a transaction reference", lastErr)
}

func (s *PaymentService) fail(ctx context.Context, tx *models.Transaction, cause error) {
	log.Printf("❌ Provider refused %s: %v", tx.Reference, cause)

	failedAt := s.now().UTC()
	err := s.transactions.MarkFailed(ctx, tx.Reference, models.Diagnostics{
		LastError: cause.Error(),
		Source:    "provider",
		FailedAt:  &failedAt,
	})
	if err != nil {
		log.Printf("⚠️  Failed to mark %s as failed: %v", tx.Reference, err)
	}

	if s.customers != nil {
		if err := s.customers.NotifyPaymentFailure(ctx, tx.CustomerPhone, tx.Amount, tx.Reference, cause.Error()); err != nil {
			log.Printf("⚠️  Failure message failed for %s: %v", tx.Reference, err)
		}
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "cm_phone":
			msgs = append(msgs, fe.Field()+" is not a valid phone number")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
