package models

import "time"

// ContactStatus tracks the handling of an inbound contact message.
type ContactStatus string

const (
	ContactNew    ContactStatus = "NEW"
	ContactRead   ContactStatus = "READ"
	ContactClosed ContactStatus = "CLOSED"
)

// Valid reports whether the status is a known enum value.
func (s ContactStatus) Valid() bool {
	return s == ContactNew || s == ContactRead || s == ContactClosed
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        string        `db:"id" json:"id"`
	FirstName string        `db:"first_name" json:"first_name"`
	LastName  string        `db:"last_name" json:"last_name"`
	Email     string        `db:"email" json:"email"`
	Phone     string        `db:"phone" json:"phone"`
	Subject   string        `db:"subject" json:"subject"`
	Message   string        `db:"message" json:"message"`
	Status    ContactStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// ContactFilter constrains contact message listings.
type ContactFilter struct {
	Status   *ContactStatus
	Search   string
	Page     int
	PageSize int
}
