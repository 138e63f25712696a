// Package report holds the report lifecycle state machine and the
// frozen report snapshot.
package report

import (
	"encoding/json"
	"time"
)

// Status of a report. Transitions only move forward.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusValidated Status = "validated"
	StatusFinalized Status = "finalized"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusValidated, StatusFinalized:
		return true
	}
	return false
}

// Report is an immutable snapshot of a committed result sheet plus
// lifecycle metadata. Data and Fingerprint are fixed at creation and
// never change afterward.
type Report struct {
	ID            int64           `json:"id"`
	ResultEntryID int64           `json:"result_entry_id"`
	Number        string          `json:"report_number"` // RPT-<year>-NNN
	Status        Status          `json:"status"`
	Data          json.RawMessage `json:"report_data"`
	Fingerprint   string          `json:"fingerprint"` // hex SHA-256 of canonical Data
	Notes         string          `json:"notes,omitempty"`
	ViewKey       *string         `json:"-"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ValidatedAt   *time.Time      `json:"validated_at,omitempty"`
	ValidatedBy   *int64          `json:"validated_by,omitempty"`
	FinalizedAt   *time.Time      `json:"finalized_at,omitempty"`
	FinalizedBy   *int64          `json:"finalized_by,omitempty"`
}

// Snapshot is the shape of the frozen report_data payload.
type Snapshot struct {
	SampleCode   string            `json:"sample_code"`
	SampleName   string            `json:"sample_name"`
	CustomerCode string            `json:"customer_code"`
	CustomerName string            `json:"customer_name"`
	Values       []SnapshotValue   `json:"values"`
	Departments  []DepartmentGroup `json:"departments"`
	GeneratedAt  string            `json:"generated_at"`
}

// SnapshotValue is one result value flattened into the snapshot.
type SnapshotValue struct {
	ID       int64  `json:"id"`
	TestType string `json:"test_type"`
	Value    string `json:"value"`
	Unit     string `json:"unit"`
	UnitType string `json:"unit_type"`
	Notes    string `json:"notes"`
}

// DepartmentGroup pairs a department with the report's value list.
type DepartmentGroup struct {
	Department string          `json:"department"`
	Values     []SnapshotValue `json:"values"`
}
