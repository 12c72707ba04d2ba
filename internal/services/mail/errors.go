package mail

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a provider could not deliver a message.
type ErrorKind string

const (
	KindConfig      ErrorKind = "config"
	KindUnavailable ErrorKind = "unavailable"
	KindNetwork     ErrorKind = "network"
	KindProvider    ErrorKind = "provider"
	KindValidation  ErrorKind = "validation"
)

// Error is a delivery failure reported by a single provider.
type Error struct {
	Provider string
	Kind     ErrorKind
	Code     int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mail %s %s error: %s (caused by: %v)", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("mail %s %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of a provider error, or KindProvider for errors
// that did not come from this package.
func KindOf(err error) ErrorKind {
	var mailErr *Error
	if errors.As(err, &mailErr) {
		return mailErr.Kind
	}
	return KindProvider
}
