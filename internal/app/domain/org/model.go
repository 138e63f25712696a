// Package org holds organization-wide settings.
package org

import "time"

// Settings is the lab's single-row configuration record.
type Settings struct {
	ID           int64     `json:"id"`
	LabName      string    `json:"lab_name"`
	Address      string    `json:"address,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ReportFooter string    `json:"report_footer,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	UpdatedBy    *int64    `json:"updated_by,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RequestLog is one persisted HTTP access record, purged by retention.
type RequestLog struct {
	ID         int64     `json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	ClientIP   string    `json:"client_ip"`
	UserID     *int64    `json:"user_id,omitempty"`
	TraceID    string    `json:"trace_id"`
	CreatedAt  time.Time `json:"created_at"`
}
