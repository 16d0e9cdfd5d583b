package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Metadata keys the dispatcher sets on in-app messages.
const (
	MetadataCompanyID         = "companyId"
	MetadataEventType         = "eventType"
	MetadataRelatedEntityType = "relatedEntityType"
	MetadataRelatedEntityID   = "relatedEntityId"
)

// InAppProvider delivers by writing a row into the recipient's inbox.
// Markup is stripped from the body since the inbox renders plain text.
type InAppProvider struct {
	inbox     repository.InboxRepository
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewInAppProvider(inbox repository.InboxRepository) (*InAppProvider, error) {
	if inbox == nil {
		return nil, fmt.Errorf("inbox repository is required")
	}

	return &InAppProvider{
		inbox:     inbox,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}, nil
}

func (p *InAppProvider) Channel() domain.Channel { return domain.ChannelInApp }

// IsConfigured is always true: the inbox needs no external credentials.
func (p *InAppProvider) IsConfigured() bool { return p != nil && p.inbox != nil }

func (p *InAppProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if p == nil || p.inbox == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient user id is required"}
	}

	companyID := msg.Metadata[MetadataCompanyID]
	if strings.TrimSpace(companyID) == "" {
		return nil, &ProviderError{Message: "company id metadata is required"}
	}

	event, err := domain.ParseEventTypeFromString(msg.Metadata[MetadataEventType])
	if err != nil {
		return nil, &ProviderError{Message: "invalid event type metadata", Cause: err}
	}

	title := ""
	if msg.Subject != nil {
		title = strings.TrimSpace(p.sanitizer.Sanitize(*msg.Subject))
	}

	message := &domain.InboxMessage{
		ID:                uuid.NewString(),
		UserID:            msg.To,
		CompanyID:         companyID,
		EventType:         event,
		Title:             title,
		Body:              strings.TrimSpace(p.sanitizer.Sanitize(msg.Body)),
		RelatedEntityType: optionalMetadata(msg.Metadata, MetadataRelatedEntityType),
		RelatedEntityID:   optionalMetadata(msg.Metadata, MetadataRelatedEntityID),
		CreatedAt:         p.now().UTC(),
	}

	if err := p.inbox.Create(ctx, message); err != nil {
		return nil, &ProviderError{
			Message:   "failed to write inbox message",
			Transient: true,
			Cause:     err,
		}
	}

	return &SendResult{MessageID: message.ID}, nil
}

func optionalMetadata(metadata map[string]string, key string) *string {
	value, ok := metadata[key]
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
