package dispatch

import (
	"context"
	"fmt"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
)

// ChannelResolver decides which channels a notification reaches a user
// on. Precedence: caller override, then the user's enabled preferences,
// then the event's default channel set. Every tier is intersected with
// the configured providers so an unconfigured channel is never returned.
type ChannelResolver struct {
	preferences repository.PreferenceRepository
	registry    *provider.Registry
}

func NewChannelResolver(preferences repository.PreferenceRepository, registry *provider.Registry) (*ChannelResolver, error) {
	if preferences == nil {
		return nil, fmt.Errorf("preference repository is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}

	return &ChannelResolver{
		preferences: preferences,
		registry:    registry,
	}, nil
}

func (r *ChannelResolver) ResolveChannels(
	ctx context.Context,
	userID string,
	event domain.EventType,
	override []domain.Channel,
) ([]domain.Channel, error) {
	// An event-specific forced channel list always wins and skips the
	// preference lookup entirely.
	if len(override) > 0 {
		return r.configuredSubset(override), nil
	}

	prefs, err := r.preferences.GetEnabled(ctx, userID, event)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	if len(prefs) > 0 {
		channels := make([]domain.Channel, 0, len(prefs))
		for _, pref := range prefs {
			channels = append(channels, pref.Channel)
		}
		return r.configuredSubset(channels), nil
	}

	return r.configuredSubset(domain.DefaultChannels(event)), nil
}

// configuredSubset deduplicates, drops unconfigured channels, and
// returns the rest in canonical order.
func (r *ChannelResolver) configuredSubset(channels []domain.Channel) []domain.Channel {
	requested := make(map[domain.Channel]struct{}, len(channels))
	for _, channel := range channels {
		requested[channel] = struct{}{}
	}

	result := make([]domain.Channel, 0, len(requested))
	for _, channel := range domain.AllChannels {
		if _, ok := requested[channel]; !ok {
			continue
		}
		if !r.registry.IsConfigured(channel) {
			continue
		}
		result = append(result, channel)
	}
	return result
}
