// Package project holds customer project master data.
package project

import "time"

// Project groups samples submitted under one engagement.
type Project struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"` // 8-char uppercase alphanumeric
	CustomerID  int64     `json:"customer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
