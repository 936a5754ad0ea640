package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationPaymentConfirmation NotificationType = "payment_confirmation"
	NotificationPaymentSuccess      NotificationType = "payment_success"
	NotificationPaymentFailure      NotificationType = "payment_failure"
)

// Notification is a customer-facing message. Messages are not sent over SMS
// yet, they are logged and kept here.
type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	Phone     string           `json:"phone" gorm:"type:varchar(20);not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(50);not null"`
	Reference string           `json:"reference" gorm:"type:varchar(32);index"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return nil
}
