package domain

import "time"

// NotificationTemplate is the rendering source for an (event, channel)
// pair. CompanyID nil means system-wide default. Templates are authored
// and activated elsewhere; the core only resolves and reads them.
type NotificationTemplate struct {
	ID        string
	CompanyID *string
	EventType EventType
	Channel   Channel
	Subject   *string
	Body      string
	IsDefault bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
