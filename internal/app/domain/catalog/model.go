// Package catalog holds the lab's reference data: departments, sample
// types and test types.
package catalog

import "time"

// Department is an organizational unit of the lab.
type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SampleType classifies the matrix of a sample (water, soil, food...).
type SampleType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TestType is an analysis the lab can perform.
type TestType struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	UnitType     string    `json:"unit_type,omitempty"`
	Description  string    `json:"description,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
