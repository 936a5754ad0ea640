package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"PayGate/internal/config"
	"PayGate/internal/models"
)

const collectPath = "/api/v1.1/payment/collect/"

type CollectRequest struct {
	Reference string
	Amount    int64
	Phone     string
	Operator  models.Operator
	Currency  string
}

type CollectResult struct {
	ProviderTransactionID string
	Status                string
	Message               string
}

// PaymentProvider asks the customer's operator to collect a payment. A nil
// error means the request was accepted; the final status arrives by webhook.
type PaymentProvider interface {
	Collect(ctx context.Context, req CollectRequest) (*CollectResult, error)
}

// NewProvider returns the live MeSomb client or the sandbox, per PROVIDER_MODE.
func NewProvider(cfg config.ProviderConfig) PaymentProvider {
	if cfg.Mode == config.ModeSandbox {
		log.Println("🧪 Payment provider running in sandbox mode")
		return NewSandboxProvider()
	}
	return NewMeSombClient(cfg)
}

type MeSombClient struct {
	client    *resty.Client
	appKey    string
	accessKey string
	secretKey string
	host      string
}

type collectPayload struct {
	Amount    int64  `json:"amount"`
	Service   string `json:"service"`
	Payer     string `json:"payer"`
	Country   string `json:"country"`
	Currency  string `json:"currency"`
	Reference string `json:"reference,omitempty"`
	Fees      bool   `json:"fees"`
}

type collectResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Transaction struct {
		PK     string `json:"pk"`
		Status string `json:"status"`
	} `json:"transaction"`
}

type providerErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func NewMeSombClient(cfg config.ProviderConfig) *MeSombClient {
	if !cfg.Configured() {
		log.Printf("⚠️  WARNING: MeSomb keys missing (app key set: %t, api key set: %t, secret set: %t)",
			cfg.AppKey != "", cfg.APIKey != "", cfg.SecretKey != "")
	} else {
		log.Printf("💳 MeSomb client initialized")
		log.Printf("   - App Key: %s", config.MaskSecret(cfg.AppKey))
		log.Printf("   - API Key: %s", config.MaskSecret(cfg.APIKey))
	}

	host := ""
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		host = u.Host
	}

	return &MeSombClient{
		client:    resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(30 * time.Second),
		appKey:    cfg.AppKey,
		accessKey: cfg.APIKey,
		secretKey: cfg.SecretKey,
		host:      host,
	}
}

func (mc *MeSombClient) Collect(ctx context.Context, req CollectRequest) (*CollectResult, error) {
	if mc.appKey == "" || mc.accessKey == "" || mc.secretKey == "" {
		return nil, fmt.Errorf("mesomb credentials are not configured")
	}

	currency := req.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	body, err := json.Marshal(collectPayload{
		Amount:    req.Amount,
		Service:   string(req.Operator),
		Payer:     strings.TrimPrefix(req.Phone, "+"),
		Country:   "CM",
		Currency:  currency,
		Reference: req.Reference,
		Fees:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")

	var out collectResponse
	var apiErr providerErrorResponse
	resp, err := mc.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept-Language", "en").
		SetHeader("X-MeSomb-Application", mc.appKey).
		SetHeader("X-MeSomb-Date", strconv.FormatInt(now.Unix(), 10)).
		SetHeader("X-MeSomb-Nonce", nonce).
		SetHeader("X-MeSomb-TrxID", req.Reference).
		SetHeader("Authorization", mc.authorization("POST", collectPath, body, now, nonce)).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(collectPath)
	if err != nil {
		return nil, fmt.Errorf("mesomb request failed: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Detail
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("mesomb error: %s", msg)
	}

	if !out.Success || out.Transaction.PK == "" {
		msg := out.Message
		if msg == "" {
			msg = "payment initiation was not accepted"
		}
		return nil, fmt.Errorf("mesomb error: %s", msg)
	}

	return &CollectResult{
		ProviderTransactionID: out.Transaction.PK,
		Status:                out.Transaction.Status,
		Message:               out.Message,
	}, nil
}

// authorization builds the HMAC-SHA1 request signature MeSomb expects.
func (mc *MeSombClient) authorization(method, path string, body []byte, at time.Time, nonce string) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	scope := at.Format("20060102") + "/payment/mesomb_request"
	signedHeaders := "host;x-mesomb-date;x-mesomb-nonce"

	canonicalHeaders := "host:" + mc.host + "\n" +
		"x-mesomb-date:" + timestamp + "\n" +
		"x-mesomb-nonce:" + nonce

	canonicalRequest := strings.Join([]string{
		method,
		path,
		"",
		canonicalHeaders,
		signedHeaders,
		sha1Hex(body),
	}, "\n")

	stringToSign := strings.Join([]string{
		"HMAC-SHA1",
		timestamp,
		scope,
		sha1Hex([]byte(canonicalRequest)),
	}, "\n")

	mac := hmac.New(sha1.New, []byte(mc.secretKey))
	mac.Write([]byte(stringToSign))
	sig := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("HMAC-SHA1 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		mc.accessKey, scope, signedHeaders, sig)
}

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// SandboxProvider accepts every collection without calling out.
type SandboxProvider struct{}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{}
}

func (SandboxProvider) Collect(_ context.Context, req CollectRequest) (*CollectResult, error) {
	log.Printf("🧪 Sandbox collect %d %s from %s (%s)", req.Amount, req.Currency, req.Phone, req.Reference)
	return &CollectResult{
		ProviderTransactionID: uuid.NewString(),
		Status:                string(models.TransactionPending),
		Message:               "sandbox collection accepted",
	}, nil
}
