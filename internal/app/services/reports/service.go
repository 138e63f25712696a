// Package reports owns the report lifecycle: generation from a
// committed result sheet, validation, finalization, and key-gated
// public access.
package reports

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// sequencing retries absorb duplicate report numbers when two
// generators race within the same year.
const maxSequenceRetries = 5

// Service owns the report lifecycle.
type Service struct {
	backend storage.Backend
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a report service.
func New(backend storage.Backend, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reports")
	}
	return &Service{backend: backend, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Generate freezes a committed result sheet into a new proposed
// report. The snapshot and its fingerprint never change afterward.
func (s *Service) Generate(ctx context.Context, entryID int64, actor identity.Actor, notes string) (report.Report, error) {
	entry, err := s.backend.GetEntry(ctx, entryID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return report.Report{}, errors.NotFound("result sheet not found")
		}
		return report.Report{}, err
	}
	if !entry.IsCommitted {
		return report.Report{}, errors.BadRequest("result sheet must be committed before a report can be generated")
	}

	existing, err := s.backend.ListReportsByEntry(ctx, entry.ID)
	if err != nil {
		return report.Report{}, err
	}
	for _, r := range existing {
		if r.Status == report.StatusProposed {
			return report.Report{}, errors.Conflict("a proposed report already exists for this result sheet").
				WithDetails("report_id", r.ID)
		}
	}

	snapshot, err := s.buildSnapshot(ctx, entry.ID, entry.SampleID)
	if err != nil {
		return report.Report{}, err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return report.Report{}, fmt.Errorf("encode report snapshot: %w", err)
	}
	fingerprint, err := Fingerprint(data)
	if err != nil {
		return report.Report{}, err
	}

	var created report.Report
	for attempt := 0; attempt < maxSequenceRetries; attempt++ {
		err = s.backend.WithinTx(ctx, func(tx storage.Backend) error {
			year := s.now().Year()
			seq, err := tx.MaxReportSeq(ctx, year)
			if err != nil {
				return err
			}
			created, err = tx.CreateReport(ctx, report.Report{
				ResultEntryID: entry.ID,
				Number:        fmt.Sprintf("RPT-%d-%03d", year, seq+1),
				Status:        report.StatusProposed,
				Data:          data,
				Fingerprint:   fingerprint,
				Notes:         notes,
				CreatedBy:     actor.EffectiveUserID(),
			})
			return err
		})
		if err == nil {
			break
		}
		if !stderrors.Is(err, storage.ErrDuplicate) {
			return report.Report{}, err
		}
	}
	if err != nil {
		return report.Report{}, errors.Internal("could not allocate a report number").WithCause(err)
	}

	s.log.WithField("report_id", created.ID).
		WithField("report_number", created.Number).
		WithField("entry_id", entry.ID).
		Info("report generated")
	return created, nil
}

// Validate approves a proposed report. The lab validates and finalizes
// in one step, so both timestamp pairs are stamped here and the report
// lands directly in the finalized state.
func (s *Service) Validate(ctx context.Context, reportID int64, actor identity.Actor) (report.Report, error) {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return report.Report{}, err
	}
	if r.Status != report.StatusProposed {
		return report.Report{}, errors.Conflict(fmt.Sprintf("report is %s, only proposed reports can be validated", r.Status))
	}
	if !actor.Role.Elevated() {
		return report.Report{}, errors.Forbidden("only lab managers and administrators may validate reports")
	}

	now := s.now()
	userID := actor.EffectiveUserID()
	r.Status = report.StatusFinalized
	r.ValidatedAt = &now
	r.ValidatedBy = &userID
	r.FinalizedAt = &now
	r.FinalizedBy = &userID

	updated, err := s.backend.UpdateReport(ctx, r)
	if err != nil {
		return report.Report{}, err
	}
	s.log.WithField("report_id", updated.ID).WithField("report_number", updated.Number).Info("report validated and finalized")
	return updated, nil
}

// Finalize moves a validated report to finalized. Reports that went
// through Validate are already finalized and cannot pass here again.
func (s *Service) Finalize(ctx context.Context, reportID int64, actor identity.Actor) (report.Report, error) {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return report.Report{}, err
	}
	if r.Status != report.StatusValidated {
		return report.Report{}, errors.Conflict(fmt.Sprintf("report is %s, only validated reports can be finalized", r.Status))
	}
	if !actor.Role.Elevated() {
		return report.Report{}, errors.Forbidden("only lab managers and administrators may finalize reports")
	}

	now := s.now()
	userID := actor.EffectiveUserID()
	r.Status = report.StatusFinalized
	r.FinalizedAt = &now
	r.FinalizedBy = &userID

	updated, err := s.backend.UpdateReport(ctx, r)
	if err != nil {
		return report.Report{}, err
	}
	s.log.WithField("report_id", updated.ID).Info("report finalized")
	return updated, nil
}

// Delete removes a report. Manager or administrator only, and only
// proposed reports may be deleted.
func (s *Service) Delete(ctx context.Context, reportID int64, actor identity.Actor) error {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if r.Status != report.StatusProposed {
		return errors.Conflict("only proposed reports can be deleted")
	}
	if !actor.Role.Elevated() {
		return errors.Forbidden("only lab managers and administrators may delete reports")
	}
	if err := s.backend.DeleteReport(ctx, r.ID); err != nil {
		return err
	}
	s.log.WithField("report_id", r.ID).WithField("report_number", r.Number).Info("report deleted")
	return nil
}

// IssueViewKey returns the report's view key, minting one on first
// use. Keys exist only for finalized reports.
func (s *Service) IssueViewKey(ctx context.Context, reportID int64) (string, error) {
	r, err := s.Get(ctx, reportID)
	if err != nil {
		return "", err
	}
	if r.Status != report.StatusFinalized {
		return "", errors.Conflict("view keys are issued for finalized reports only")
	}
	if r.ViewKey != nil {
		return *r.ViewKey, nil
	}

	for attempt := 0; attempt < maxSequenceRetries; attempt++ {
		key, err := NewViewKey()
		if err != nil {
			return "", err
		}
		r.ViewKey = &key
		if _, err := s.backend.UpdateReport(ctx, r); err != nil {
			if stderrors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return "", err
		}
		s.log.WithField("report_id", r.ID).Info("view key issued")
		return key, nil
	}
	return "", errors.Internal("could not allocate a view key")
}

// PublicView is the customer-facing projection of a finalized report.
type PublicView struct {
	ReportNumber string          `json:"report_number"`
	Data         json.RawMessage `json:"report_data"`
	Fingerprint  string          `json:"fingerprint"`
	FinalizedAt  *time.Time      `json:"finalized_at,omitempty"`
}

// GetPublic resolves a finalized report through (sample code, view
// key). Every mismatch returns the same not-found error so callers
// cannot tell which part was wrong.
func (s *Service) GetPublic(ctx context.Context, sampleCode, viewKey string) (PublicView, error) {
	notFound := errors.NotFound("report not found")

	sampleCode = strings.TrimSpace(sampleCode)
	if sampleCode == "" || strings.TrimSpace(viewKey) == "" {
		return PublicView{}, notFound
	}
	sm, err := s.backend.GetSampleByCode(ctx, sampleCode)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return PublicView{}, notFound
		}
		return PublicView{}, err
	}
	entry, err := s.backend.GetEntryBySample(ctx, sm.ID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return PublicView{}, notFound
		}
		return PublicView{}, err
	}
	r, err := s.backend.GetReportByEntryAndKey(ctx, entry.ID, viewKey)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return PublicView{}, notFound
		}
		return PublicView{}, err
	}
	if r.Status != report.StatusFinalized {
		return PublicView{}, notFound
	}

	return PublicView{
		ReportNumber: r.Number,
		Data:         r.Data,
		Fingerprint:  r.Fingerprint,
		FinalizedAt:  r.FinalizedAt,
	}, nil
}

// Get returns a report by id.
func (s *Service) Get(ctx context.Context, reportID int64) (report.Report, error) {
	r, err := s.backend.GetReport(ctx, reportID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return report.Report{}, errors.NotFound("report not found")
		}
		return report.Report{}, err
	}
	return r, nil
}

// List returns all reports.
func (s *Service) List(ctx context.Context) ([]report.Report, error) {
	return s.backend.ListReports(ctx)
}

// ListByEntry returns the reports generated from one result sheet.
func (s *Service) ListByEntry(ctx context.Context, entryID int64) ([]report.Report, error) {
	return s.backend.ListReportsByEntry(ctx, entryID)
}

// buildSnapshot copies the sample, customer and value data into the
// frozen report payload. Each linked department carries the full value
// list; values are not scoped per department.
func (s *Service) buildSnapshot(ctx context.Context, entryID, sampleID int64) (report.Snapshot, error) {
	sm, err := s.backend.GetSample(ctx, sampleID)
	if err != nil {
		return report.Snapshot{}, err
	}
	cust, err := s.backend.GetCustomer(ctx, sm.CustomerID)
	if err != nil {
		return report.Snapshot{}, err
	}
	values, err := s.backend.ListValues(ctx, entryID)
	if err != nil {
		return report.Snapshot{}, err
	}

	snapValues := make([]report.SnapshotValue, 0, len(values))
	for _, v := range values {
		snapValues = append(snapValues, report.SnapshotValue{
			ID:       v.ID,
			TestType: v.TestType,
			Value:    v.Value,
			Unit:     v.Unit,
			UnitType: v.UnitType,
			Notes:    v.Notes,
		})
	}

	groups := make([]report.DepartmentGroup, 0, len(sm.DepartmentIDs))
	for _, depID := range sm.DepartmentIDs {
		dep, err := s.backend.GetDepartment(ctx, depID)
		if err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				continue
			}
			return report.Snapshot{}, err
		}
		groups = append(groups, report.DepartmentGroup{Department: dep.Name, Values: snapValues})
	}

	return report.Snapshot{
		SampleCode:   sm.Code,
		SampleName:   sm.Name,
		CustomerCode: cust.Code,
		CustomerName: cust.Name,
		Values:       snapValues,
		Departments:  groups,
		GeneratedAt:  s.now().Format(time.RFC3339),
	}, nil
}
