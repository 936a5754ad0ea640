// Package lifecycle decides how a transaction status moves when the provider
// reports a new one. Everything here is pure.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"PayGate/internal/models"
)

var ErrIllegalTransition = errors.New("illegal status transition")

var providerStatuses = map[string]models.TransactionStatus{
	"SUCCESS":  models.TransactionSuccess,
	"FAILED":   models.TransactionFailed,
	"PENDING":  models.TransactionPending,
	"REFUNDED": models.TransactionRefunded,
	"EXPIRED":  models.TransactionExpired,
}

// NormalizeStatus maps a provider status code onto our statuses.
// Unknown codes become PENDING, never SUCCESS.
func NormalizeStatus(code string) models.TransactionStatus {
	if s, ok := providerStatuses[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return models.TransactionPending
}

// NextStatus returns the incoming status as the next one and whether it differs
// from current. The provider is authoritative over payment finality, so no
// transition is refused here.
func NextStatus(current, incoming models.TransactionStatus) (models.TransactionStatus, bool) {
	return incoming, incoming != current
}

func IsTerminal(s models.TransactionStatus) bool {
	switch s {
	case models.TransactionSuccess, models.TransactionFailed, models.TransactionExpired, models.TransactionRefunded:
		return true
	}
	return false
}

// ShouldNotifyCustomer is true for the statuses the customer is told about.
func ShouldNotifyCustomer(s models.TransactionStatus) bool {
	return s == models.TransactionSuccess || s == models.TransactionFailed
}

// Machine wraps NextStatus with an optional strict guard.
type Machine struct {
	// Strict refuses any change out of a terminal status, except
	// SUCCESS -> REFUNDED.
	Strict bool
}

func (m Machine) Next(current, incoming models.TransactionStatus) (models.TransactionStatus, bool, error) {
	next, changed := NextStatus(current, incoming)
	if !changed || !m.Strict {
		return next, changed, nil
	}
	if !CanTransition(current, next) {
		return current, false, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, next)
	}
	return next, true, nil
}

// CanTransition is the strict-mode transition table.
func CanTransition(from, to models.TransactionStatus) bool {
	if from == to {
		return true
	}
	if !IsTerminal(from) {
		return true
	}
	return from == models.TransactionSuccess && to == models.TransactionRefunded
}
