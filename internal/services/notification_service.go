package services

import (
	"context"
	"fmt"
	"log"

	"PayGate/internal/models"
	"PayGate/internal/store"
)

// CustomerNotifier sends payment messages to the paying customer.
type CustomerNotifier interface {
	NotifyPaymentConfirmation(ctx context.Context, phone string, amount int64, reference string) error
	NotifyPaymentSuccess(ctx context.Context, phone string, amount int64, reference string) error
	NotifyPaymentFailure(ctx context.Context, phone string, amount int64, reference, reason string) error
}

// NotificationService logs customer messages instead of sending SMS and keeps
// a copy of each one when a NotificationLog is configured.
type NotificationService struct {
	records store.NotificationLog
}

func NewNotificationService(records store.NotificationLog) *NotificationService {
	return &NotificationService{records: records}
}

// CreateNotification emits a message to a customer phone
func (s *NotificationService) CreateNotification(ctx context.Context, phone string, notifType models.NotificationType, reference, message string) error {
	log.Printf("📱 [SMS] %s to %s: %q", notifType, phone, message)

	if s.records == nil {
		return nil
	}

	notification := models.Notification{
		Phone:     phone,
		Type:      notifType,
		Reference: reference,
		Message:   message,
	}
	if err := s.records.RecordNotification(ctx, &notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// NotifyPaymentConfirmation asks the customer to approve the payment on their phone
func (s *NotificationService) NotifyPaymentConfirmation(ctx context.Context, phone string, amount int64, reference string) error {
	return s.CreateNotification(
		ctx,
		phone,
		models.NotificationPaymentConfirmation,
		reference,
		fmt.Sprintf("Please confirm the payment of %d FCFA on your phone. Ref: %s", amount, reference),
	)
}

// NotifyPaymentSuccess tells the customer the payment went through
func (s *NotificationService) NotifyPaymentSuccess(ctx context.Context, phone string, amount int64, reference string) error {
	return s.CreateNotification(
		ctx,
		phone,
		models.NotificationPaymentSuccess,
		reference,
		fmt.Sprintf("Payment of %d FCFA confirmed. Ref: %s", amount, reference),
	)
}

// NotifyPaymentFailure tells the customer the payment failed
func (s *NotificationService) NotifyPaymentFailure(ctx context.Context, phone string, amount int64, reference, reason string) error {
	if reason == "" {
		reason = "payment failed"
	}
	return s.CreateNotification(
		ctx,
		phone,
		models.NotificationPaymentFailure,
		reference,
		fmt.Sprintf("Payment of %d FCFA failed. Reason: %s. Ref: %s", amount, reason, reference),
	)
}
