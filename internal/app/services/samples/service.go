// Package samples manages sample registration and lifecycle.
package samples

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/services/activities"
	"github.com/atlaslab/labmanager/internal/app/services/idgen"
	"github.com/atlaslab/labmanager/internal/app/services/notify"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Service manages samples.
type Service struct {
	backend  storage.Backend
	acts     *activities.Service
	notifier notify.Notifier
	log      *logger.Logger
}

// New constructs a sample service.
func New(backend storage.Backend, acts *activities.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("samples")
	}
	return &Service{backend: backend, acts: acts, log: log}
}

// WithNotifier enables best-effort collection notices when samples are
// registered. Delivery failures are logged, never surfaced to the caller.
func (s *Service) WithNotifier(n notify.Notifier) *Service {
	s.notifier = n
	return s
}

// Input carries the mutable sample fields.
type Input struct {
	Name          string
	CustomerID    int64
	ProjectID     *int64
	SampleTypeID  int64
	DepartmentIDs []int64
	TestTypeIDs   []int64
	Status        string
	Description   string
}

// Create registers a new sample with a generated code.
func (s *Service) Create(ctx context.Context, actor identity.Actor, in Input) (sample.Sample, error) {
	if strings.TrimSpace(in.Name) == "" {
		return sample.Sample{}, errors.Validation("sample name is required")
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return sample.Sample{}, err
	}

	code, err := idgen.SampleCode(ctx, s.backend)
	if err != nil {
		return sample.Sample{}, err
	}

	status := in.Status
	if status == "" {
		status = sample.StatusPending
	}

	var created sample.Sample
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		created, err = tx.CreateSample(ctx, sample.Sample{
			Code:          code,
			Name:          strings.TrimSpace(in.Name),
			CustomerID:    in.CustomerID,
			ProjectID:     in.ProjectID,
			SampleTypeID:  in.SampleTypeID,
			DepartmentIDs: in.DepartmentIDs,
			TestTypeIDs:   in.TestTypeIDs,
			Status:        status,
			Description:   in.Description,
		})
		if err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		return s.acts.Record(ctx, tx, created.ID, &userID, activity.TypeCreated,
			fmt.Sprintf("Sample %s registered", created.Code), nil)
	})
	if err != nil {
		return sample.Sample{}, err
	}

	s.log.WithField("sample_id", created.ID).WithField("code", created.Code).Info("sample registered")

	if s.notifier != nil {
		subject := fmt.Sprintf("Sample %s registered", created.Code)
		body := fmt.Sprintf("Sample %q (%s) has been registered and is awaiting collection.",
			created.Name, created.Code)
		notify.SendAsync(s.notifier, s.log, subject, body)
	}
	return created, nil
}

// Update edits a sample's fields. A status change is recorded as its
// own ledger entry on top of the general update entry.
func (s *Service) Update(ctx context.Context, id int64, actor identity.Actor, in Input) (sample.Sample, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return sample.Sample{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return sample.Sample{}, errors.Validation("sample name is required")
	}
	if err := s.checkReferences(ctx, in); err != nil {
		return sample.Sample{}, err
	}

	next := existing
	next.Name = strings.TrimSpace(in.Name)
	next.CustomerID = in.CustomerID
	next.ProjectID = in.ProjectID
	next.SampleTypeID = in.SampleTypeID
	next.DepartmentIDs = in.DepartmentIDs
	next.TestTypeIDs = in.TestTypeIDs
	next.Description = in.Description
	if in.Status != "" {
		next.Status = in.Status
	}

	statusChanged := next.Status != existing.Status

	var updated sample.Sample
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		updated, err = tx.UpdateSample(ctx, next)
		if err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		if err := s.acts.Record(ctx, tx, updated.ID, &userID, activity.TypeUpdated,
			fmt.Sprintf("Sample %s updated", updated.Code), nil); err != nil {
			return err
		}
		if statusChanged {
			return s.acts.Record(ctx, tx, updated.ID, &userID, activity.TypeStatusChanged,
				fmt.Sprintf("Status changed from %s to %s", existing.Status, updated.Status),
				activity.StatusPayload{From: existing.Status, To: updated.Status})
		}
		return nil
	})
	if err != nil {
		return sample.Sample{}, err
	}

	s.log.WithField("sample_id", updated.ID).WithField("status_changed", statusChanged).Info("sample updated")
	return updated, nil
}

// SetStatus changes only the lifecycle tag.
func (s *Service) SetStatus(ctx context.Context, id int64, actor identity.Actor, status string) (sample.Sample, error) {
	if strings.TrimSpace(status) == "" {
		return sample.Sample{}, errors.Validation("status is required")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return sample.Sample{}, err
	}
	if existing.Status == status {
		return existing, nil
	}

	next := existing
	next.Status = status

	var updated sample.Sample
	err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
		var err error
		updated, err = tx.UpdateSample(ctx, next)
		if err != nil {
			return err
		}
		userID := actor.EffectiveUserID()
		return s.acts.Record(ctx, tx, updated.ID, &userID, activity.TypeStatusChanged,
			fmt.Sprintf("Status changed from %s to %s", existing.Status, status),
			activity.StatusPayload{From: existing.Status, To: status})
	})
	if err != nil {
		return sample.Sample{}, err
	}
	return updated, nil
}

// Get returns a sample by id.
func (s *Service) Get(ctx context.Context, id int64) (sample.Sample, error) {
	sm, err := s.backend.GetSample(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return sample.Sample{}, errors.NotFound("sample not found")
		}
		return sample.Sample{}, err
	}
	return sm, nil
}

// GetByCode returns a sample by its public code.
func (s *Service) GetByCode(ctx context.Context, code string) (sample.Sample, error) {
	sm, err := s.backend.GetSampleByCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return sample.Sample{}, errors.NotFound("sample not found")
		}
		return sample.Sample{}, err
	}
	return sm, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	CustomerID int64
	ProjectID  int64
	Status     string
}

// List returns samples matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]sample.Sample, error) {
	all, err := s.backend.ListSamples(ctx)
	if err != nil {
		return nil, err
	}
	if f.CustomerID == 0 && f.ProjectID == 0 && f.Status == "" {
		return all, nil
	}
	out := make([]sample.Sample, 0, len(all))
	for _, sm := range all {
		if f.CustomerID != 0 && sm.CustomerID != f.CustomerID {
			continue
		}
		if f.ProjectID != 0 && (sm.ProjectID == nil || *sm.ProjectID != f.ProjectID) {
			continue
		}
		if f.Status != "" && sm.Status != f.Status {
			continue
		}
		out = append(out, sm)
	}
	return out, nil
}

// Delete removes a sample. Ledger entries for it are kept; the ledger
// never shrinks.
func (s *Service) Delete(ctx context.Context, id int64, actor identity.Actor) error {
	sm, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteSample(ctx, sm.ID); err != nil {
		return err
	}
	s.log.WithField("sample_id", sm.ID).
		WithField("code", sm.Code).
		WithField("user_id", actor.EffectiveUserID()).
		Warn("sample deleted")
	return nil
}

// Activities returns a sample's ledger, most recent first.
func (s *Service) Activities(ctx context.Context, id int64) ([]activity.Activity, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.acts.List(ctx, id)
}

func (s *Service) checkReferences(ctx context.Context, in Input) error {
	if _, err := s.backend.GetCustomer(ctx, in.CustomerID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("customer not found")
		}
		return err
	}
	if in.ProjectID != nil {
		if _, err := s.backend.GetProject(ctx, *in.ProjectID); err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				return errors.NotFound("project not found")
			}
			return err
		}
	}
	if _, err := s.backend.GetSampleType(ctx, in.SampleTypeID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("sample type not found")
		}
		return err
	}
	for _, depID := range in.DepartmentIDs {
		if _, err := s.backend.GetDepartment(ctx, depID); err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				return errors.NotFound("department not found").WithDetails("department_id", depID)
			}
			return err
		}
	}
	for _, ttID := range in.TestTypeIDs {
		if _, err := s.backend.GetTestType(ctx, ttID); err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				return errors.NotFound("test type not found").WithDetails("test_type_id", ttID)
			}
			return err
		}
	}
	return nil
}
