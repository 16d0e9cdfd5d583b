package domain

import (
	"fmt"
	"strings"
	"time"
)

// InboxMessage is one in-app notification as shown to a user. Rows are
// written by the in-app channel provider and read by the inbox surface.
type InboxMessage struct {
	ID                string
	UserID            string
	CompanyID         string
	EventType         EventType
	Title             string
	Body              string
	RelatedEntityType *string
	RelatedEntityID   *string
	ReadAt            *time.Time
	CreatedAt         time.Time
}

func (m *InboxMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(m.CompanyID) == "" {
		return fmt.Errorf("%w: company id is required", ErrValidation)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !m.EventType.IsValid() {
		return fmt.Errorf("%w: invalid event type %q", ErrValidation, m.EventType)
	}
	return nil
}

func (m *InboxMessage) IsRead() bool {
	return m.ReadAt != nil
}
