// Package activity holds the append-only sample activity ledger.
package activity

import (
	"encoding/json"
	"time"
)

// Type classifies a ledger entry. The set is open; these are the
// types the services emit today.
type Type string

const (
	TypeCreated            Type = "created"
	TypeUpdated            Type = "updated"
	TypeStatusChanged      Type = "status_changed"
	TypeResultSheetCreated Type = "result_sheet_created"
	TypeResultValueAdded   Type = "result_value_added"
	TypeResultValueUpdated Type = "result_value_updated"
	TypeResultValueDeleted Type = "result_value_deleted"
	TypeResultCommitted    Type = "result_sheet_committed"
	TypeResultSheetDeleted Type = "result_sheet_deleted"
)

// Activity is one immutable ledger row. UserID is nil for actions the
// system performs on its own.
type Activity struct {
	ID          int64           `json:"id"`
	SampleID    int64           `json:"sample_id"`
	UserID      *int64          `json:"user_id,omitempty"`
	Type        Type            `json:"activity_type"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ValueChange describes one field edit inside a payload.
type ValueChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ValuePayload documents a result value mutation. Reason is set only
// for post-commit edits.
type ValuePayload struct {
	EntryID  int64         `json:"entry_id"`
	ValueID  int64         `json:"value_id"`
	TestType string        `json:"test_type"`
	Value    string        `json:"value,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Changes  []ValueChange `json:"changes,omitempty"`
}

// CommitPayload documents a sheet commit.
type CommitPayload struct {
	EntryID    int64 `json:"entry_id"`
	ValueCount int   `json:"value_count"`
}

// StatusPayload documents a sample status change.
type StatusPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EncodePayload marshals a payload defensively. Serialization problems
// degrade to null rather than failing the business write the ledger
// entry documents.
func EncodePayload(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// DecodePayload unmarshals the payload for a's type into its typed
// form, falling back to a generic map for unknown types.
func (a *Activity) DecodePayload() (interface{}, error) {
	if len(a.Payload) == 0 {
		return nil, nil
	}
	var target interface{}
	switch a.Type {
	case TypeResultValueAdded, TypeResultValueUpdated, TypeResultValueDeleted:
		target = &ValuePayload{}
	case TypeResultCommitted:
		target = &CommitPayload{}
	case TypeStatusChanged:
		target = &StatusPayload{}
	default:
		target = &map[string]interface{}{}
	}
	if err := json.Unmarshal(a.Payload, target); err != nil {
		return nil, err
	}
	return target, nil
}
