package domain

import (
	"fmt"
	"strings"
)

// EventType identifies a domain occurrence that may warrant notifying
// someone. The set is closed: new events require a code change together
// with a DefaultChannels entry.
type EventType string

const (
	EventShiftAssigned      EventType = "SHIFT_ASSIGNED"
	EventShiftCancelled     EventType = "SHIFT_CANCELLED"
	EventCredentialExpiring EventType = "CREDENTIAL_EXPIRING"
	EventAuthExpired        EventType = "AUTH_EXPIRED"
	EventThresholdBreach    EventType = "THRESHOLD_BREACH"
	EventAssessmentDue      EventType = "ASSESSMENT_DUE"
	EventDocumentExpiring   EventType = "DOCUMENT_EXPIRING"
)

// AllEventTypes lists every known event type.
var AllEventTypes = []EventType{
	EventShiftAssigned,
	EventShiftCancelled,
	EventCredentialExpiring,
	EventAuthExpired,
	EventThresholdBreach,
	EventAssessmentDue,
	EventDocumentExpiring,
}

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventShiftAssigned, EventShiftCancelled, EventCredentialExpiring,
		EventAuthExpired, EventThresholdBreach, EventAssessmentDue,
		EventDocumentExpiring:
		return true
	}
	return false
}

func ParseEventTypeFromString(s string) (EventType, error) {
	e := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("%w: invalid event type %q", ErrValidation, s)
	}
	return e, nil
}

// eventDefaults maps each event type to the channels used when a
// recipient has no explicit preference rows for it.
var eventDefaults = map[EventType][]Channel{
	EventShiftAssigned:      {ChannelEmail, ChannelInApp},
	EventShiftCancelled:     {ChannelEmail, ChannelInApp, ChannelSMS},
	EventCredentialExpiring: {ChannelEmail, ChannelInApp},
	EventAuthExpired:        {ChannelEmail, ChannelInApp},
	EventThresholdBreach:    {ChannelEmail},
	EventAssessmentDue:      {ChannelEmail, ChannelInApp},
	EventDocumentExpiring:   {ChannelEmail},
}

// DefaultChannels returns the event's default channel set. The returned
// slice is a copy; callers may filter it freely.
func DefaultChannels(event EventType) []Channel {
	defaults, ok := eventDefaults[event]
	if !ok {
		return nil
	}
	channels := make([]Channel, len(defaults))
	copy(channels, defaults)
	return channels
}
