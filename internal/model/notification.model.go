package model

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType is the delivery channel a notification goes through.
type NotificationType string

const (
	NotificationTypeSMS   NotificationType = "sms"
	NotificationTypeEmail NotificationType = "email"
	NotificationTypePush  NotificationType = "push"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeSMS, NotificationTypeEmail, NotificationTypePush:
		return true
	}
	return false
}

// NotificationStatus is the lifecycle state of a notification.
// pending is the only source; sent and failed are sinks.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusPending, NotificationStatusSent, NotificationStatusFailed:
		return true
	}
	return false
}

func (s NotificationStatus) Terminal() bool {
	return s == NotificationStatusSent || s == NotificationStatusFailed
}

// Column limits shared by the migration and request validation.
const (
	MaxRecipientLen = 50
	MaxTypeLen      = 20
)

type Notification struct {
	ID                int64              `json:"id"`
	Message           string             `json:"message"`
	Recipient         string             `json:"recipient"`
	NotificationType  NotificationType   `json:"notification_type"`
	Status            NotificationStatus `json:"status"`
	ProviderReference *string            `json:"provider_reference"`
	ErrorDetail       *string            `json:"error_detail"`
	CreatedAt         time.Time          `json:"created_at"`
	SentAt            *time.Time         `json:"sent_at"`
}

// DispatchRequest is the input of a create-send-finalize cycle.
type DispatchRequest struct {
	Message   string
	Recipient string
	Type      NotificationType
}

func (r DispatchRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	recipient := strings.TrimSpace(r.Recipient)
	if recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if len(recipient) > MaxRecipientLen {
		return fmt.Errorf("%w: recipient is too long", ErrValidation)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrValidation, r.Type)
	}
	return nil
}

// TerminalUpdate carries the outcome written when a notification leaves pending.
type TerminalUpdate struct {
	Status            NotificationStatus
	ProviderReference *string
	ErrorDetail       *string
	SentAt            *time.Time
}

// Validate enforces that exactly one outcome field matches the target status.
func (u TerminalUpdate) Validate() error {
	switch u.Status {
	case NotificationStatusSent:
		if u.ProviderReference == nil || *u.ProviderReference == "" {
			return fmt.Errorf("%w: sent requires a provider reference", ErrValidation)
		}
		if u.ErrorDetail != nil {
			return fmt.Errorf("%w: sent must not carry an error detail", ErrValidation)
		}
	case NotificationStatusFailed:
		if u.ErrorDetail == nil || *u.ErrorDetail == "" {
			return fmt.Errorf("%w: failed requires an error detail", ErrValidation)
		}
		if u.ProviderReference != nil || u.SentAt != nil {
			return fmt.Errorf("%w: failed must not carry a provider reference or sent_at", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: terminal status must be sent or failed, got %q", ErrValidation, u.Status)
	}
	return nil
}

// NotificationFilter controls List queries. Results are always newest first.
type NotificationFilter struct {
	Status *NotificationStatus // equals
	Offset int
	Limit  int // default 100, max 1000
}
