package domain

// NotificationPreference is a per-user, per-event, per-channel opt-in
// authored by the user settings surface. The core only reads it: the
// absence of any row for a (user, event) pair defers to the event's
// default channel set.
type NotificationPreference struct {
	ID        string
	UserID    string
	EventType EventType
	Channel   Channel
	Enabled   bool
}
