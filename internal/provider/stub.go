package provider

import (
	"context"
	"fmt"

	"github.com/carebridge/notification-engine/internal/domain"
)

// StubProvider declares a channel whose transport is not implemented
// yet. It always reports unconfigured, so channel resolution filters it
// out before any send could reach it.
type StubProvider struct {
	channel domain.Channel
}

func NewStubProvider(channel domain.Channel) *StubProvider {
	return &StubProvider{channel: channel}
}

func (p *StubProvider) Channel() domain.Channel { return p.channel }

func (p *StubProvider) IsConfigured() bool { return false }

func (p *StubProvider) Send(_ context.Context, _ Message) (*SendResult, error) {
	return nil, &ProviderError{
		Message: fmt.Sprintf("%s transport is not implemented", p.channel),
	}
}
