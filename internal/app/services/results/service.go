// Package results manages result sheets: value entry, the one-way
// commit, and reason-gated amendments after commit.
package results

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/result"
	"github.com/atlaslab/labmanager/internal/app/services/activities"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Service owns the result sheet lifecycle.
type Service struct {
	backend storage.Backend
	acts    *activities.Service
	log     *logger.Logger
}

// New constructs a results service.
func New(backend storage.Backend, acts *activities.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("results")
	}
	return &Service{backend: backend, acts: acts, log: log}
}

// ValueInput carries the fields for a new or updated result value.
type ValueInput struct {
	TestTypeID int64
	Value      string
	Unit       string
	UnitType   string
	Notes      string
}

// CreateSheet opens the result sheet for a sample. A sample has at
// most one sheet.
func (s *Service) CreateSheet(ctx context.Context, sampleID int64, actor identity.Actor, notes string) (result.Entry, error) {
	sm, err := s.backend.GetSample(ctx, sampleID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return result.Entry{}, errors.NotFound("sample not found")
		}
		return result.Entry{}, err
	}

	var created result.Entry
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		created, err = tx.CreateEntry(ctx, result.Entry{SampleID: sm.ID, Notes: notes})
		if err != nil {
			if stderrors.Is(err, storage.ErrDuplicate) {
				return errors.Conflict("a result sheet already exists for this sample")
			}
			return err
		}
		userID := actor.EffectiveUserID()
		return s.acts.Record(ctx, tx, sm.ID, &userID, activity.TypeResultSheetCreated,
			fmt.Sprintf("Result sheet created for sample %s", sm.Code), nil)
	})
	if err != nil {
		return result.Entry{}, err
	}

	s.log.WithField("sample_id", sm.ID).WithField("entry_id", created.ID).Info("result sheet created")
	return created, nil
}

// Get returns a sheet by id.
func (s *Service) Get(ctx context.Context, entryID int64) (result.Entry, error) {
	e, err := s.backend.GetEntry(ctx, entryID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return result.Entry{}, errors.NotFound("result sheet not found")
		}
		return result.Entry{}, err
	}
	return e, nil
}

// GetBySample returns the sheet for a sample.
func (s *Service) GetBySample(ctx context.Context, sampleID int64) (result.Entry, error) {
	e, err := s.backend.GetEntryBySample(ctx, sampleID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return result.Entry{}, errors.NotFound("result sheet not found")
		}
		return result.Entry{}, err
	}
	return e, nil
}

// ListValues returns a sheet's values in insertion order.
func (s *Service) ListValues(ctx context.Context, entryID int64) ([]result.Value, error) {
	if _, err := s.Get(ctx, entryID); err != nil {
		return nil, err
	}
	return s.backend.ListValues(ctx, entryID)
}

// AddValue records a new value on a sheet. Once the sheet is committed
// the caller needs an elevated role and a non-blank reason.
func (s *Service) AddValue(ctx context.Context, entryID int64, actor identity.Actor, in ValueInput, reason string) (result.Value, error) {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return result.Value{}, err
	}
	if entry.IsCommitted {
		if err := s.requireAmendment(actor, reason); err != nil {
			return result.Value{}, err
		}
	}

	value, err := s.buildValue(ctx, entry.ID, in)
	if err != nil {
		return result.Value{}, err
	}

	var created result.Value
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		created, err = tx.CreateValue(ctx, value)
		if err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		payload := activity.ValuePayload{EntryID: entry.ID, ValueID: created.ID, TestType: created.TestType, Value: created.Value}
		if entry.IsCommitted {
			payload.Reason = strings.TrimSpace(reason)
		}
		return s.acts.Record(ctx, tx, entry.SampleID, &userID, activity.TypeResultValueAdded,
			fmt.Sprintf("Result value added: %s = %s", created.TestType, created.Value), payload)
	})
	if err != nil {
		return result.Value{}, err
	}

	s.log.WithField("entry_id", entry.ID).
		WithField("value_id", created.ID).
		WithField("committed", entry.IsCommitted).
		Info("result value added")
	return created, nil
}

// UpdateValue amends an existing value. Edits always need an elevated
// role and a reason, and the field-level diff goes into the ledger. A
// no-change update writes nothing.
func (s *Service) UpdateValue(ctx context.Context, valueID int64, actor identity.Actor, in ValueInput, reason string) (result.Value, error) {
	existing, err := s.backend.GetValue(ctx, valueID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return result.Value{}, errors.NotFound("result value not found")
		}
		return result.Value{}, err
	}
	entry, err := s.Get(ctx, existing.EntryID)
	if err != nil {
		return result.Value{}, err
	}
	if err := s.requireAmendment(actor, reason); err != nil {
		return result.Value{}, err
	}

	next, err := s.buildValue(ctx, entry.ID, in)
	if err != nil {
		return result.Value{}, err
	}
	next.ID = existing.ID

	changes := diffValues(existing, next)
	if len(changes) == 0 {
		return existing, nil
	}

	var updated result.Value
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		updated, err = tx.UpdateValue(ctx, next)
		if err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		payload := activity.ValuePayload{
			EntryID:  entry.ID,
			ValueID:  updated.ID,
			TestType: updated.TestType,
			Value:    updated.Value,
			Reason:   strings.TrimSpace(reason),
			Changes:  changes,
		}
		return s.acts.Record(ctx, tx, entry.SampleID, &userID, activity.TypeResultValueUpdated,
			fmt.Sprintf("Result value updated: %s", updated.TestType), payload)
	})
	if err != nil {
		return result.Value{}, err
	}

	s.log.WithField("value_id", updated.ID).WithField("changes", len(changes)).Info("result value updated")
	return updated, nil
}

// DeleteValue removes a value. Deletion always needs an elevated role
// and a reason, committed or not.
func (s *Service) DeleteValue(ctx context.Context, valueID int64, actor identity.Actor, reason string) error {
	existing, err := s.backend.GetValue(ctx, valueID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("result value not found")
		}
		return err
	}
	entry, err := s.Get(ctx, existing.EntryID)
	if err != nil {
		return err
	}
	if err := s.requireAmendment(actor, reason); err != nil {
		return err
	}

	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		if err := tx.DeleteValue(ctx, existing.ID); err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		payload := activity.ValuePayload{
			EntryID:  entry.ID,
			ValueID:  existing.ID,
			TestType: existing.TestType,
			Value:    existing.Value,
			Reason:   strings.TrimSpace(reason),
		}
		return s.acts.Record(ctx, tx, entry.SampleID, &userID, activity.TypeResultValueDeleted,
			fmt.Sprintf("Result value deleted: %s", existing.TestType), payload)
	})
	if err != nil {
		return err
	}

	s.log.WithField("value_id", existing.ID).WithField("committed", entry.IsCommitted).Info("result value deleted")
	return nil
}

// Commit freezes the sheet. The commit is one-way: there is no
// uncommit, only reason-gated amendments. A sheet with no values
// cannot be committed.
func (s *Service) Commit(ctx context.Context, entryID int64, actor identity.Actor) (result.Entry, error) {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return result.Entry{}, err
	}
	if entry.IsCommitted {
		return result.Entry{}, errors.Conflict("result sheet is already committed")
	}

	values, err := s.backend.ListValues(ctx, entry.ID)
	if err != nil {
		return result.Entry{}, err
	}
	if len(values) == 0 {
		return result.Entry{}, errors.Validation("cannot commit a result sheet with no values")
	}

	var committed result.Entry
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		userID := actor.EffectiveUserID()
		entry.IsCommitted = true
		now := nowUTC()
		entry.CommittedAt = &now
		entry.CommittedBy = &userID

		var err error
		committed, err = tx.UpdateEntry(ctx, entry)
		if err != nil {
			return err
		}
		return s.acts.Record(ctx, tx, entry.SampleID, &userID, activity.TypeResultCommitted,
			fmt.Sprintf("Result sheet committed with %d values", len(values)),
			activity.CommitPayload{EntryID: entry.ID, ValueCount: len(values)})
	})
	if err != nil {
		return result.Entry{}, err
	}

	s.log.WithField("entry_id", committed.ID).
		WithField("value_count", len(values)).
		Info("result sheet committed")
	return committed, nil
}

// DeleteSheet removes a sheet and its values. Deletion always needs an
// elevated role and a reason, committed or not.
func (s *Service) DeleteSheet(ctx context.Context, entryID int64, actor identity.Actor, reason string) error {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.requireAmendment(actor, reason); err != nil {
		return err
	}

	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		if err := tx.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		payload := activity.ValuePayload{EntryID: entry.ID, Reason: strings.TrimSpace(reason)}
		return s.acts.Record(ctx, tx, entry.SampleID, &userID, activity.TypeResultSheetDeleted,
			"Result sheet deleted", payload)
	})
	if err != nil {
		return err
	}

	s.log.WithField("entry_id", entry.ID).Info("result sheet deleted")
	return nil
}

// requireAmendment gates guarded changes: elevated role first, then a
// non-blank reason. Deletions are gated in every state; additions only
// after commit.
func (s *Service) requireAmendment(actor identity.Actor, reason string) error {
	if !actor.Role.Elevated() {
		return errors.Forbidden("only lab managers and administrators may make this change")
	}
	if strings.TrimSpace(reason) == "" {
		return errors.Validation("a reason is required for this change")
	}
	return nil
}

// buildValue resolves the test type and fills unit defaults.
func (s *Service) buildValue(ctx context.Context, entryID int64, in ValueInput) (result.Value, error) {
	if strings.TrimSpace(in.Value) == "" {
		return result.Value{}, errors.Validation("value is required")
	}
	tt, err := s.backend.GetTestType(ctx, in.TestTypeID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return result.Value{}, errors.NotFound("test type not found")
		}
		return result.Value{}, err
	}

	v := result.Value{
		EntryID:    entryID,
		TestTypeID: tt.ID,
		TestType:   tt.Name,
		Value:      strings.TrimSpace(in.Value),
		Unit:       in.Unit,
		UnitType:   in.UnitType,
		Notes:      in.Notes,
	}
	if v.Unit == "" {
		v.Unit = tt.Unit
	}
	if v.UnitType == "" {
		v.UnitType = tt.UnitType
	}
	return v, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func diffValues(old, next result.Value) []activity.ValueChange {
	var changes []activity.ValueChange
	add := func(field, from, to string) {
		if from != to {
			changes = append(changes, activity.ValueChange{Field: field, From: from, To: to})
		}
	}
	add("test_type", old.TestType, next.TestType)
	add("value", old.Value, next.Value)
	add("unit", old.Unit, next.Unit)
	add("unit_type", old.UnitType, next.UnitType)
	add("notes", old.Notes, next.Notes)
	return changes
}
