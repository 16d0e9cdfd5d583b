package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification log row.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusQueued  Status = "QUEUED"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusSent, StatusFailed:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery transport.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelInApp    Channel = "IN_APP"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// AllChannels lists every channel in canonical resolution order.
var AllChannels = []Channel{ChannelEmail, ChannelInApp, ChannelSMS, ChannelWhatsApp}

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelInApp, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// DefaultMaxRetries bounds automatic redelivery of a failed log row.
const DefaultMaxRetries = 3

// NotificationLog is one durable record of a single delivery attempt to
// one recipient on one channel. Rendered content is immutable once the
// row is created; only status, retry bookkeeping, and terminal
// timestamps change afterwards.
type NotificationLog struct {
	ID                string
	EventType         EventType
	Channel           Channel
	Status            Status
	Subject           *string
	Body              string
	UserID            string
	CompanyID         string
	ScheduledFor      *time.Time
	RelatedEntityType *string
	RelatedEntityID   *string
	RetryCount        int
	MaxRetries        int
	LastError         *string
	MessageID         *string
	SentAt            *time.Time
	FailedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (n *NotificationLog) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(n.CompanyID) == "" {
		return fmt.Errorf("%w: company id is required", ErrValidation)
	}
	if n.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !n.EventType.IsValid() {
		return fmt.Errorf("%w: invalid event type %q", ErrValidation, n.EventType)
	}
	if !n.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, n.Channel)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	if n.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be positive", ErrValidation)
	}
	if n.SentAt != nil && n.FailedAt != nil {
		return fmt.Errorf("%w: sentAt and failedAt are mutually exclusive", ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further processing may touch the row.
// SENT is always terminal; FAILED becomes terminal once the retry
// budget is exhausted.
func (n *NotificationLog) IsTerminal() bool {
	switch n.Status {
	case StatusSent:
		return true
	case StatusFailed:
		return n.RetryCount >= n.MaxRetries
	}
	return false
}

// CanRetry reports whether the retry sweep may still select the row.
func (n *NotificationLog) CanRetry() bool {
	return n.Status == StatusFailed && n.RetryCount < n.MaxRetries
}

// IsDue reports whether a scheduled row should be picked up at now.
func (n *NotificationLog) IsDue(now time.Time) bool {
	if n.Status != StatusPending {
		return false
	}
	return n.ScheduledFor == nil || !n.ScheduledFor.After(now)
}
