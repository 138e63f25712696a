// Package result holds result sheets and their values.
package result

import "time"

// Entry is the result sheet for one sample. At most one entry exists
// per sample. Once committed the sheet is frozen: further value
// changes require an elevated role and a recorded reason.
type Entry struct {
	ID          int64      `json:"id"`
	SampleID    int64      `json:"sample_id"`
	Notes       string     `json:"notes,omitempty"`
	IsCommitted bool       `json:"is_committed"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
	CommittedBy *int64     `json:"committed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Value is a single measured result on a sheet.
type Value struct {
	ID         int64     `json:"id"`
	EntryID    int64     `json:"entry_id"`
	TestTypeID int64     `json:"test_type_id"`
	TestType   string    `json:"test_type"`
	Value      string    `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	UnitType   string    `json:"unit_type,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
