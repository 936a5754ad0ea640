package models

import "time"

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
	DeliverySkipped   DeliveryStatus = "SKIPPED"
)

// WebhookDelivery records one relay attempt to a merchant endpoint.
type WebhookDelivery struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Reference  string         `gorm:"type:varchar(32);not null;index" json:"reference"`
	MerchantID string         `gorm:"type:varchar(64);index" json:"merchant_id"`
	URL        string         `gorm:"type:text" json:"url"`
	Event      string         `gorm:"type:varchar(50)" json:"event"`
	Payload    string         `gorm:"type:text" json:"payload"`
	Signature  string         `gorm:"type:varchar(128)" json:"signature"`
	HTTPStatus int            `json:"http_status,omitempty"`
	Status     DeliveryStatus `gorm:"type:varchar(20);not null" json:"status"`
	LastError  string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
