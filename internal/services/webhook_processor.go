package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"PayGate/internal/lifecycle"
	"PayGate/internal/models"
	"PayGate/internal/signature"
	"PayGate/internal/store"
)

const (
	ActionLoopIgnored        = "loop_ignored"
	ActionUnchanged          = "unchanged"
	ActionUpdated            = "updated"
	ActionRejectedTransition = "rejected_transition"
)

const maxStatusAttempts = 3

// Inbound is one provider webhook call as received.
type Inbound struct {
	// Body must be the exact bytes that were signed.
	Body              []byte
	Signature         string
	InternalSignature string
}

type Outcome struct {
	Action    string                   `json:"action"`
	Message   string                   `json:"message"`
	Reference string                   `json:"reference,omitempty"`
	Previous  models.TransactionStatus `json:"previous_status,omitempty"`
	Status    models.TransactionStatus `json:"status,omitempty"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type webhookPayload struct {
	PK        flexString      `json:"pk"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    flexString      `json:"amount"`
	Customer  json.RawMessage `json:"customer"`
}

type WebhookConfig struct {
	// Secret verifies provider signatures.
	Secret string
	// InternalSecret verifies the loop marker on our own relayed events.
	InternalSecret string
	Strict         bool
}

type WebhookDeps struct {
	Transactions store.TransactionStore
	Merchants    store.MerchantStore
	Customers    CustomerNotifier
	Relay        MerchantNotifier
	// Receipts is optional.
	Receipts ReceiptMailer
}

// WebhookProcessor applies provider status callbacks to stored transactions.
// It is the only path that moves a transaction out of PENDING after a
// successful initiation.
type WebhookProcessor struct {
	cfg     WebhookConfig
	deps    WebhookDeps
	machine lifecycle.Machine
	now     func() time.Time

	wg sync.WaitGroup
}

func NewWebhookProcessor(cfg WebhookConfig, deps WebhookDeps) *WebhookProcessor {
	return &WebhookProcessor{
		cfg:     cfg,
		deps:    deps,
		machine: lifecycle.Machine{Strict: cfg.Strict},
		now:     time.Now,
	}
}

func (p *WebhookProcessor) Handle(ctx context.Context, in Inbound) (*Outcome, error) {
	// Our own relayed events carry the internal marker and must never be
	// processed as provider callbacks.
	if in.InternalSignature != "" {
		if signature.VerifySHA256Hex(in.Body, in.InternalSignature, p.cfg.InternalSecret) {
			log.Println("⚠️  Internal request received, ignored to avoid a loop")
			return &Outcome{Action: ActionLoopIgnored, Message: "Internal notification ignored"}, nil
		}
		log.Println("⚠️  Internal request with an invalid signature rejected")
		return nil, newError(KindSignature, "Internal signature invalid", nil)
	}

	if in.Signature == "" || p.cfg.Secret == "" {
		log.Printf("⚠️  Webhook without signature or secret (signature present: %t)", in.Signature != "")
		return nil, newError(KindMissingSignature, "Missing signature", nil)
	}
	if !signature.Verify(in.Body, in.Signature, p.cfg.Secret) {
		log.Println("⚠️  Invalid webhook signature, rejected")
		return nil, newError(KindSignature, "Invalid signature", nil)
	}

	var payload webhookPayload
	if err := json.Unmarshal(in.Body, &payload); err != nil {
		return nil, newError(KindValidation, "Malformed payload", err)
	}
	reference := strings.TrimSpace(payload.Reference)
	pk := strings.TrimSpace(string(payload.PK))
	if strings.TrimSpace(payload.Status) == "" || (reference == "" && pk == "") {
		log.Println("❌ Missing fields in webhook")
		return nil, newError(KindValidation, "Missing required fields", nil)
	}

	tx, err := p.deps.Transactions.FindByReferenceOrProviderID(ctx, reference, pk)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("❌ Transaction not found for reference=%q pk=%q", reference, pk)
			return nil, newError(KindNotFound, "Transaction not found", err)
		}
		return nil, newError(KindInternal, "Failed to look up transaction", err)
	}

	incoming := lifecycle.NormalizeStatus(payload.Status)
	previous := tx.Status

	for attempt := 1; ; attempt++ {
		next, changed, err := p.machine.Next(tx.Status, incoming)
		if errors.Is(err, lifecycle.ErrIllegalTransition) {
			log.Printf("⚠️  %s: transition %s → %s refused", tx.Reference, tx.Status, incoming)
			return &Outcome{
				Action:    ActionRejectedTransition,
				Message:   "Transition rejected",
				Reference: tx.Reference,
				Previous:  tx.Status,
				Status:    tx.Status,
			}, nil
		}
		if !changed {
			log.Printf("ℹ️  %s: status unchanged (%s)", tx.Reference, tx.Status)
			return &Outcome{
				Action:    ActionUnchanged,
				Message:   "Status unchanged",
				Reference: tx.Reference,
				Previous:  tx.Status,
				Status:    tx.Status,
			}, nil
		}

		updated, err := p.deps.Transactions.UpdateStatus(ctx, tx.Reference, tx.Status, next, pk)
		if err == nil {
			previous = tx.Status
			tx = updated
			break
		}
		if !errors.Is(err, store.ErrStatusConflict) || attempt >= maxStatusAttempts {
			return nil, newError(KindInternal, "Failed to update transaction", err)
		}

		// Another delivery moved the status first; decide again on fresh data.
		tx, err = p.deps.Transactions.FindByReference(ctx, tx.Reference)
		if err != nil {
			return nil, newError(KindInternal, "Failed to reload transaction", err)
		}
	}

	log.Printf("✅ Status updated: %s %s → %s", tx.Reference, previous, tx.Status)

	p.notifyCustomer(ctx, tx)
	p.dispatch(ctx, tx)

	return &Outcome{
		Action:    ActionUpdated,
		Message:   "Webhook processed successfully",
		Reference: tx.Reference,
		Previous:  previous,
		Status:    tx.Status,
	}, nil
}

// Wait blocks until every dispatched merchant notification has finished.
func (p *WebhookProcessor) Wait() {
	p.wg.Wait()
}

func (p *WebhookProcessor) notifyCustomer(ctx context.Context, tx *models.Transaction) {
	if p.deps.Customers == nil || !lifecycle.ShouldNotifyCustomer(tx.Status) {
		return
	}

	var err error
	switch tx.Status {
	case models.TransactionSuccess:
		err = p.deps.Customers.NotifyPaymentSuccess(ctx, tx.CustomerPhone, tx.Amount, tx.Reference)
	case models.TransactionFailed:
		err = p.deps.Customers.NotifyPaymentFailure(ctx, tx.CustomerPhone, tx.Amount, tx.Reference, "")
	}
	if err != nil {
		log.Printf("⚠️  Customer notification failed for %s: %v", tx.Reference, err)
	}
}

// dispatch relays the change to the merchant without holding up the provider.
func (p *WebhookProcessor) dispatch(ctx context.Context, tx *models.Transaction) {
	if tx.MerchantID == "" || p.deps.Merchants == nil {
		return
	}

	snapshot := *tx
	event := NewPaymentUpdatedEvent(&snapshot, p.now())
	bg := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		merchant, err := p.deps.Merchants.FindMerchant(bg, snapshot.MerchantID)
		if err != nil {
			log.Printf("⚠️  Merchant %s not found for %s: %v", snapshot.MerchantID, snapshot.Reference, err)
			return
		}

		if merchant.HasWebhook() && p.deps.Relay != nil {
			if _, err := p.deps.Relay.NotifyMerchant(bg, merchant.WebhookURL, event); err != nil {
				log.Printf("❌ Merchant notification failed for %s: %v", snapshot.Reference, err)
			}
		} else {
			log.Printf("ℹ️  No webhook URL configured for merchant %s", merchant.ID)
		}

		if p.deps.Receipts != nil {
			if err := p.deps.Receipts.SendPaymentReceipt(bg, merchant, &snapshot); err != nil {
				log.Printf("⚠️  Receipt email failed for %s: %v", snapshot.Reference, err)
			}
		}
	}()
}
