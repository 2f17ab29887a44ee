package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a required credential or setting is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrStorage means the persistence layer failed.
	ErrStorage = errors.New("storage error")
	// ErrValidation means the caller sent malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when a notification does not exist.
	ErrNotFound = errors.New("notification not found")
	// ErrAlreadyFinalized is returned when a terminal notification is finalized again.
	ErrAlreadyFinalized = errors.New("notification already finalized")
	// ErrUnsupportedChannel is returned for notification types without a channel.
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
)

// DeliveryError is a provider rejection or a transport failure of one send attempt.
type DeliveryError struct {
	Detail string
	Code   string
	Status int
	cause  error
	timed  bool
}

func NewDeliveryError(detail string, cause error) *DeliveryError {
	return &DeliveryError{Detail: detail, cause: cause}
}

func NewDeliveryTimeout(cause error) *DeliveryError {
	return &DeliveryError{Detail: "timeout", cause: cause, timed: true}
}

func (e *DeliveryError) Error() string {
	msg := "delivery failed: " + e.Detail
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *DeliveryError) Unwrap() error { return e.cause }

func (e *DeliveryError) Timeout() bool { return e.timed }
