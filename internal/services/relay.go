package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"PayGate/internal/models"
	"PayGate/internal/signature"
	"PayGate/internal/store"
)

const (
	EventPaymentUpdated = "payment.updated"

	HeaderMerchantSignature = "X-Merchant-Signature"
	HeaderInternalSignature = "X-Internal-Signature"
	HeaderAPIKey            = "X-Api-Key"
)

// MerchantEvent is the body POSTed to a merchant webhook.
type MerchantEvent struct {
	Event      string    `json:"event"`
	Data       EventData `json:"data"`
	MerchantID string    `json:"-"`
}

type EventData struct {
	Reference             string                   `json:"reference"`
	Amount                int64                    `json:"amount"`
	Currency              string                   `json:"currency"`
	CustomerPhone         string                   `json:"customer_phone"`
	Status                models.TransactionStatus `json:"status"`
	Operator              models.Operator          `json:"operator"`
	ProviderTransactionID string                   `json:"provider_transaction_id"`
	Timestamp             time.Time                `json:"timestamp"`
}

func NewPaymentUpdatedEvent(tx *models.Transaction, at time.Time) MerchantEvent {
	currency := tx.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return MerchantEvent{
		Event:      EventPaymentUpdated,
		MerchantID: tx.MerchantID,
		Data: EventData{
			Reference:             tx.Reference,
			Amount:                tx.Amount,
			Currency:              currency,
			CustomerPhone:         tx.CustomerPhone,
			Status:                tx.Status,
			Operator:              tx.Operator,
			ProviderTransactionID: tx.ProviderTransactionID,
			Timestamp:             at.UTC(),
		},
	}
}

type DeliveryResult struct {
	Delivered  bool
	Skipped    bool
	Reason     string
	StatusCode int
	Signature  string
}

// MerchantNotifier is what the webhook processor depends on.
type MerchantNotifier interface {
	NotifyMerchant(ctx context.Context, url string, event MerchantEvent) (*DeliveryResult, error)
}

// Relay delivers signed events to merchant webhooks. Each event is attempted
// once; failures are reported to the caller and never retried.
type Relay struct {
	client     *resty.Client
	secret     string
	apiKey     string
	deliveries store.DeliveryLog
}

func NewRelay(secret, apiKey string, timeout time.Duration, deliveries store.DeliveryLog) *Relay {
	if secret == "" {
		log.Printf("⚠️  WARNING: internal webhook secret is empty, merchant events will not verify")
	}
	return &Relay{
		client:     resty.New().SetTimeout(timeout),
		secret:     secret,
		apiKey:     apiKey,
		deliveries: deliveries,
	}
}

func (r *Relay) NotifyMerchant(ctx context.Context, url string, event MerchantEvent) (*DeliveryResult, error) {
	if url == "" {
		log.Printf("⚠️  No webhook URL for %s, notification skipped", event.Data.Reference)
		result := &DeliveryResult{Skipped: true, Reason: "missing destination"}
		r.record(ctx, event, url, nil, "", result, nil)
		return result, nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return nil, newError(KindInternal, "Failed to encode merchant event", err)
	}
	sig := signature.Sign(body, r.secret)

	req := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderMerchantSignature, sig).
		SetHeader(HeaderInternalSignature, sig).
		SetBody(body)
	if r.apiKey != "" {
		req.SetHeader(HeaderAPIKey, r.apiKey)
	}

	log.Printf("📡 Sending %s for %s to %s", event.Event, event.Data.Reference, url)

	result := &DeliveryResult{Signature: sig}
	resp, err := req.Post(url)
	if err != nil {
		derr := newError(KindDelivery, "Merchant webhook delivery failed", err)
		result.Reason = err.Error()
		r.record(ctx, event, url, body, sig, result, derr)
		log.Printf("❌ Merchant webhook failed for %s: %v", event.Data.Reference, err)
		return result, derr
	}

	result.StatusCode = resp.StatusCode()
	if !resp.IsSuccess() {
		derr := newError(KindDelivery, "Merchant webhook rejected", fmt.Errorf("status %d", resp.StatusCode()))
		result.Reason = resp.Status()
		r.record(ctx, event, url, body, sig, result, derr)
		log.Printf("❌ Merchant webhook for %s answered %d", event.Data.Reference, resp.StatusCode())
		return result, derr
	}

	result.Delivered = true
	r.record(ctx, event, url, body, sig, result, nil)
	log.Printf("✅ Merchant notified for %s (status: %d)", event.Data.Reference, resp.StatusCode())
	return result, nil
}

func (r *Relay) record(ctx context.Context, event MerchantEvent, url string, body []byte, sig string, result *DeliveryResult, deliveryErr error) {
	if r.deliveries == nil {
		return
	}

	d := &models.WebhookDelivery{
		Reference:  event.Data.Reference,
		MerchantID: event.MerchantID,
		URL:        url,
		Event:      event.Event,
		Payload:    string(body),
		Signature:  sig,
		HTTPStatus: result.StatusCode,
		Status:     models.DeliveryDelivered,
	}
	switch {
	case result.Skipped:
		d.Status = models.DeliverySkipped
		d.LastError = result.Reason
	case deliveryErr != nil:
		d.Status = models.DeliveryFailed
		d.LastError = deliveryErr.Error()
	}

	// The request context may already be done once the response was written.
	if err := r.deliveries.RecordDelivery(context.WithoutCancel(ctx), d); err != nil {
		log.Printf("⚠️  Failed to record webhook delivery for %s: %v", event.Data.Reference, err)
	}
}
