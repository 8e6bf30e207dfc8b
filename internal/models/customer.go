package models

import "time"

// Customer is the target record of a CSV import: created by
// insert_only, created-or-updated by upsert, never deleted by the core.
type Customer struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName *string   `json:"first_name" db:"first_name"`
	LastName  *string   `json:"last_name" db:"last_name"`
	Phone     *string   `json:"phone" db:"phone"`
	City      *string   `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CustomerPayload is a normalized, validated row ready to be written
// to the customers table by a flusher.
type CustomerPayload struct {
	Row       int
	Email     string
	FirstName *string
	LastName  *string
	Phone     *string
	City      *string
	Raw       string
}
