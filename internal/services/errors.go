package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindMissingSignature
	KindSignature
	KindNotFound
	KindProvider
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMissingSignature:
		return "missing_signature"
	case KindSignature:
		return "signature"
	case KindNotFound:
		return "not_found"
	case KindProvider:
		return "provider"
	case KindDelivery:
		return "delivery"
	default:
		return "internal"
	}
}

// Error is returned by every service operation that rejects a request.
type Error struct {
	Kind    Kind
	Message string
	// Reference is set when a transaction was recorded before the failure.
	Reference string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a service error, KindInternal for anything else.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
