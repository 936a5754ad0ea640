package models

import (
	"time"
)

// Merchant accounts are provisioned by the account service; this backend only
// reads them to authenticate API calls and to find where to relay events.
type Merchant struct {
	ID          string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	CompanyName string    `gorm:"not null" json:"company_name"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone       string    `gorm:"not null" json:"phone"`
	WebhookURL  string    `gorm:"type:text" json:"webhook_url,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	APIKey      string    `gorm:"uniqueIndex" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

// HasWebhook reports whether events should be relayed to the merchant.
func (m *Merchant) HasWebhook() bool {
	return m != nil && m.WebhookURL != ""
}
