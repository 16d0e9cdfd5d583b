package provider

import (
	"context"

	"github.com/carebridge/notification-engine/internal/domain"
)

// Message is the channel-agnostic delivery request. To is interpreted
// per channel: an email address, a phone number, or a user id for the
// in-app inbox.
type Message struct {
	To       string
	Subject  *string
	Body     string
	Metadata map[string]string
}

// SendResult stores provider call metadata for the delivery log.
type SendResult struct {
	MessageID  string
	StatusCode int
}

// Provider is the outbound delivery port implemented once per transport.
// Ordinary delivery failures come back as an error value (usually a
// *ProviderError); implementations never panic for them.
type Provider interface {
	Channel() domain.Channel
	// IsConfigured reports whether the transport has the credentials it
	// needs. Unconfigured providers are filtered out during channel
	// resolution and never receive Send calls from the dispatcher.
	IsConfigured() bool
	Send(ctx context.Context, msg Message) (*SendResult, error)
}
