// Package sample holds the sample aggregate.
package sample

import "time"

// Status values are a free-form lifecycle tag; these are the ones the
// lab uses in practice.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Sample is a physical specimen submitted for testing. It belongs to
// one customer, optionally one project, and one sample type, and is
// linked to any number of departments and test types.
type Sample struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"` // 10-char uppercase alphanumeric
	Name          string    `json:"name"`
	CustomerID    int64     `json:"customer_id"`
	ProjectID     *int64    `json:"project_id,omitempty"`
	SampleTypeID  int64     `json:"sample_type_id"`
	DepartmentIDs []int64   `json:"department_ids"`
	TestTypeIDs   []int64   `json:"test_type_ids"`
	Status        string    `json:"status"`
	Description   string    `json:"description,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
