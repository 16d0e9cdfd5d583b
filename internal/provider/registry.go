package provider

import (
	"fmt"

	"github.com/carebridge/notification-engine/internal/config"
	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/repository"
)

// Registry is the static channel-to-provider map. New channels require a
// code change here; there is no runtime plugin mechanism.
type Registry struct {
	providers map[domain.Channel]Provider
}

// NewRegistry wires one provider per channel from configuration. The
// email slot prefers the HTTP API over SMTP; with neither configured the
// channel stays registered but unconfigured so resolution excludes it.
func NewRegistry(cfg *config.Config, inbox repository.InboxRepository) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	email, err := buildEmailProvider(cfg)
	if err != nil {
		return nil, err
	}

	inApp, err := NewInAppProvider(inbox)
	if err != nil {
		return nil, err
	}

	return NewRegistryWithProviders(
		email,
		inApp,
		NewStubProvider(domain.ChannelSMS),
		NewStubProvider(domain.ChannelWhatsApp),
	)
}

// NewRegistryWithProviders builds a registry from explicit providers.
// Tests use it to substitute fakes.
func NewRegistryWithProviders(providers ...Provider) (*Registry, error) {
	byChannel := make(map[domain.Channel]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("nil provider")
		}
		channel := p.Channel()
		if !channel.IsValid() {
			return nil, fmt.Errorf("invalid provider channel %q", channel)
		}
		if _, exists := byChannel[channel]; exists {
			return nil, fmt.Errorf("duplicate provider for channel %s", channel)
		}
		byChannel[channel] = p
	}

	return &Registry{providers: byChannel}, nil
}

func buildEmailProvider(cfg *config.Config) (Provider, error) {
	if cfg.EmailAPIKey != "" {
		return NewEmailAPIProvider(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	}
	if cfg.SMTPHost != "" {
		return NewSMTPProvider(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}), nil
	}
	return NewStubProvider(domain.ChannelEmail), nil
}

// Get returns the provider for a channel, or nil when none is registered.
func (r *Registry) Get(channel domain.Channel) Provider {
	if r == nil {
		return nil
	}
	return r.providers[channel]
}

// IsConfigured reports whether the channel has a send-ready provider.
func (r *Registry) IsConfigured(channel domain.Channel) bool {
	p := r.Get(channel)
	return p != nil && p.IsConfigured()
}

// Configured returns the send-ready channels in canonical order.
func (r *Registry) Configured() []domain.Channel {
	if r == nil {
		return nil
	}

	channels := make([]domain.Channel, 0, len(r.providers))
	for _, channel := range domain.AllChannels {
		if r.IsConfigured(channel) {
			channels = append(channels, channel)
		}
	}
	return channels
}
