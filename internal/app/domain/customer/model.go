// Package customer holds customer master data.
package customer

import "time"

// Customer is an organization that submits samples to the lab.
type Customer struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"` // 5-char uppercase alphanumeric
	Name         string    `json:"name"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
