package services

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"

	"PayGate/internal/config"
	"PayGate/internal/models"
)

// ReceiptMailer emails merchants when one of their payments succeeds.
type ReceiptMailer interface {
	SendPaymentReceipt(ctx context.Context, merchant *models.Merchant, tx *models.Transaction) error
}

type EmailService struct {
	Client       *resend.Client
	From         string
	DashboardURL string
}

func NewEmailService(cfg config.EmailConfig, dashboardURL string) *EmailService {
	log.Printf("📧 Email Service Initialized (Resend)")
	log.Printf("   - From Email: %s", cfg.FromEmail)
	log.Printf("   - API Key: %s", config.MaskSecret(cfg.ResendAPIKey))

	if cfg.ResendAPIKey == "" {
		log.Printf("⚠️  WARNING: RESEND_API_KEY is empty, receipts are disabled")
		return &EmailService{From: cfg.FromEmail, DashboardURL: dashboardURL}
	}

	return &EmailService{
		Client:       resend.NewClient(cfg.ResendAPIKey),
		From:         cfg.FromEmail,
		DashboardURL: dashboardURL,
	}
}

// SendPaymentReceipt sends the merchant a receipt for a successful payment
func (es *EmailService) SendPaymentReceipt(ctx context.Context, merchant *models.Merchant, tx *models.Transaction) error {
	if es.Client == nil || merchant == nil || merchant.Email == "" {
		return nil
	}
	if tx.Status != models.TransactionSuccess {
		return nil
	}

	log.Printf("📨 Sending payment receipt for %s to %s", tx.Reference, merchant.Email)

	link := ""
	if es.DashboardURL != "" {
		link = fmt.Sprintf(`<p><a href="%s/transactions/%s">View the transaction</a></p>`, es.DashboardURL, tx.Reference)
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .amount-box { background-color: #f4f4f4; border: 2px dashed #28a745; padding: 20px; text-align: center; margin: 20px 0; border-radius: 5px; }
        .amount { font-size: 32px; font-weight: bold; color: #28a745; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h2>Payment received</h2>
        <p>Hello %s, a customer payment has been confirmed.</p>
        <div class="amount-box">
            <div class="amount">%d %s</div>
        </div>
        <p>Reference: <strong>%s</strong><br>Operator: %s<br>Customer: %s</p>
        %s
        <div class="footer">
            <p>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`, merchant.CompanyName, tx.Amount, tx.Currency, tx.Reference, tx.Operator, tx.CustomerPhone, link)

	params := &resend.SendEmailRequest{
		From:    es.From,
		To:      []string{merchant.Email},
		Subject: fmt.Sprintf("Payment %s confirmed", tx.Reference),
		Html:    htmlBody,
	}

	sent, err := es.Client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("❌ Failed to send receipt: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("✅ Receipt sent successfully (ID: %s)", sent.Id)
	return nil
}
