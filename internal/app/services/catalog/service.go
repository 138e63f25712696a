// Package catalog manages the lab's reference data.
package catalog

import (
	"context"
	stderrors "errors"
	"strings"

	domain "github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Service manages departments, sample types and test types.
type Service struct {
	backend storage.Backend
	log     *logger.Logger
}

// New constructs a catalog service.
func New(backend storage.Backend, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{backend: backend, log: log}
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Validation("name is required")
	}
	return name, nil
}

// CreateDepartment adds a department.
func (s *Service) CreateDepartment(ctx context.Context, name, description string) (domain.Department, error) {
	name, err := requireName(name)
	if err != nil {
		return domain.Department{}, err
	}
	return s.backend.CreateDepartment(ctx, domain.Department{Name: name, Description: description, Active: true})
}

// UpdateDepartment edits a department.
func (s *Service) UpdateDepartment(ctx context.Context, id int64, name, description string, active bool) (domain.Department, error) {
	name, err := requireName(name)
	if err != nil {
		return domain.Department{}, err
	}
	d, err := s.backend.GetDepartment(ctx, id)
	if err != nil {
		return domain.Department{}, notFoundOr(err, "department not found")
	}
	d.Name = name
	d.Description = description
	d.Active = active
	return s.backend.UpdateDepartment(ctx, d)
}

// GetDepartment returns a department.
func (s *Service) GetDepartment(ctx context.Context, id int64) (domain.Department, error) {
	d, err := s.backend.GetDepartment(ctx, id)
	if err != nil {
		return domain.Department{}, notFoundOr(err, "department not found")
	}
	return d, nil
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.backend.ListDepartments(ctx)
}

// DeleteDepartment removes a department.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	if err := s.backend.DeleteDepartment(ctx, id); err != nil {
		return notFoundOr(err, "department not found")
	}
	return nil
}

// CreateSampleType adds a sample type.
func (s *Service) CreateSampleType(ctx context.Context, name, description string) (domain.SampleType, error) {
	name, err := requireName(name)
	if err != nil {
		return domain.SampleType{}, err
	}
	return s.backend.CreateSampleType(ctx, domain.SampleType{Name: name, Description: description, Active: true})
}

// UpdateSampleType edits a sample type.
func (s *Service) UpdateSampleType(ctx context.Context, id int64, name, description string, active bool) (domain.SampleType, error) {
	name, err := requireName(name)
	if err != nil {
		return domain.SampleType{}, err
	}
	st, err := s.backend.GetSampleType(ctx, id)
	if err != nil {
		return domain.SampleType{}, notFoundOr(err, "sample type not found")
	}
	st.Name = name
	st.Description = description
	st.Active = active
	return s.backend.UpdateSampleType(ctx, st)
}

// ListSampleTypes returns all sample types.
func (s *Service) ListSampleTypes(ctx context.Context) ([]domain.SampleType, error) {
	return s.backend.ListSampleTypes(ctx)
}

// DeleteSampleType removes a sample type.
func (s *Service) DeleteSampleType(ctx context.Context, id int64) error {
	if err := s.backend.DeleteSampleType(ctx, id); err != nil {
		return notFoundOr(err, "sample type not found")
	}
	return nil
}

// TestTypeInput carries test type fields.
type TestTypeInput struct {
	Name         string
	DepartmentID *int64
	Unit         string
	UnitType     string
	Description  string
	Active       bool
}

// CreateTestType adds an analysis the lab can perform.
func (s *Service) CreateTestType(ctx context.Context, in TestTypeInput) (domain.TestType, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return domain.TestType{}, err
	}
	if in.DepartmentID != nil {
		if _, err := s.backend.GetDepartment(ctx, *in.DepartmentID); err != nil {
			return domain.TestType{}, notFoundOr(err, "department not found")
		}
	}
	return s.backend.CreateTestType(ctx, domain.TestType{
		Name:         name,
		DepartmentID: in.DepartmentID,
		Unit:         in.Unit,
		UnitType:     in.UnitType,
		Description:  in.Description,
		Active:       true,
	})
}

// UpdateTestType edits a test type.
func (s *Service) UpdateTestType(ctx context.Context, id int64, in TestTypeInput) (domain.TestType, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return domain.TestType{}, err
	}
	tt, err := s.backend.GetTestType(ctx, id)
	if err != nil {
		return domain.TestType{}, notFoundOr(err, "test type not found")
	}
	if in.DepartmentID != nil {
		if _, err := s.backend.GetDepartment(ctx, *in.DepartmentID); err != nil {
			return domain.TestType{}, notFoundOr(err, "department not found")
		}
	}
	tt.Name = name
	tt.DepartmentID = in.DepartmentID
	tt.Unit = in.Unit
	tt.UnitType = in.UnitType
	tt.Description = in.Description
	tt.Active = in.Active
	return s.backend.UpdateTestType(ctx, tt)
}

// ListTestTypes returns all test types.
func (s *Service) ListTestTypes(ctx context.Context) ([]domain.TestType, error) {
	return s.backend.ListTestTypes(ctx)
}

// DeleteTestType removes a test type.
func (s *Service) DeleteTestType(ctx context.Context, id int64) error {
	if err := s.backend.DeleteTestType(ctx, id); err != nil {
		return notFoundOr(err, "test type not found")
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound(msg)
	}
	return err
}
