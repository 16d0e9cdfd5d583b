package domain

import "strings"

// Recipient is a read-only view of the user directory. The core never
// writes to it and only dispatches to active recipients.
type Recipient struct {
	ID          string
	Email       string
	Phone       *string
	FirstName   string
	LastName    string
	CompanyID   string
	CompanyName string
	IsActive    bool
}

// FullName joins first and last name, tolerating either being empty.
func (r *Recipient) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// HasPhone reports whether the recipient can receive SMS or WhatsApp.
func (r *Recipient) HasPhone() bool {
	return r.Phone != nil && strings.TrimSpace(*r.Phone) != ""
}
