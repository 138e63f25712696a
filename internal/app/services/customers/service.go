// Package customers manages customer and project master data.
package customers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/project"
	"github.com/atlaslab/labmanager/internal/app/services/idgen"
	"github.com/atlaslab/labmanager/internal/app/services/notify"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Service manages customers and their projects.
type Service struct {
	backend  storage.Backend
	notifier notify.Notifier
	log      *logger.Logger
}

// New constructs a customer service.
func New(backend storage.Backend, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("customers")
	}
	return &Service{backend: backend, log: log}
}

// WithNotifier enables best-effort welcome notices for new customers.
func (s *Service) WithNotifier(n notify.Notifier) *Service {
	s.notifier = n
	return s
}

// CustomerInput carries the mutable customer fields.
type CustomerInput struct {
	Name         string
	ContactName  string
	ContactEmail string
	ContactPhone string
	Address      string
	Notes        string
	Active       *bool
}

// CreateCustomer registers a customer with a generated 5-character code.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (customer.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return customer.Customer{}, errors.Validation("customer name is required")
	}
	code, err := idgen.CustomerCode(ctx, s.backend)
	if err != nil {
		return customer.Customer{}, err
	}

	created, err := s.backend.CreateCustomer(ctx, customer.Customer{
		Code:         code,
		Name:         strings.TrimSpace(in.Name),
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Address:      in.Address,
		Notes:        in.Notes,
		Active:       true,
	})
	if err != nil {
		return customer.Customer{}, err
	}
	s.log.WithField("customer_id", created.ID).WithField("code", created.Code).Info("customer created")

	if s.notifier != nil {
		subject := fmt.Sprintf("Welcome, %s", created.Name)
		body := fmt.Sprintf("Customer account %s has been created for %s.", created.Code, created.Name)
		notify.SendAsync(s.notifier, s.log, subject, body)
	}
	return created, nil
}

// UpdateCustomer edits a customer. The code is immutable.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) (customer.Customer, error) {
	existing, err := s.GetCustomer(ctx, id)
	if err != nil {
		return customer.Customer{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return customer.Customer{}, errors.Validation("customer name is required")
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.ContactName = in.ContactName
	existing.ContactEmail = in.ContactEmail
	existing.ContactPhone = in.ContactPhone
	existing.Address = in.Address
	existing.Notes = in.Notes
	if in.Active != nil {
		existing.Active = *in.Active
	}

	updated, err := s.backend.UpdateCustomer(ctx, existing)
	if err != nil {
		return customer.Customer{}, err
	}
	return updated, nil
}

// GetCustomer returns a customer by id.
func (s *Service) GetCustomer(ctx context.Context, id int64) (customer.Customer, error) {
	c, err := s.backend.GetCustomer(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return customer.Customer{}, errors.NotFound("customer not found")
		}
		return customer.Customer{}, err
	}
	return c, nil
}

// ListCustomers returns all customers.
func (s *Service) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	return s.backend.ListCustomers(ctx)
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	return s.backend.DeleteCustomer(ctx, id)
}

// ProjectInput carries the mutable project fields.
type ProjectInput struct {
	CustomerID  int64
	Name        string
	Description string
	Active      *bool
}

// CreateProject registers a project with a generated 8-character code.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (project.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return project.Project{}, errors.Validation("project name is required")
	}
	if _, err := s.GetCustomer(ctx, in.CustomerID); err != nil {
		return project.Project{}, err
	}
	code, err := idgen.ProjectCode(ctx, s.backend)
	if err != nil {
		return project.Project{}, err
	}

	created, err := s.backend.CreateProject(ctx, project.Project{
		Code:        code,
		CustomerID:  in.CustomerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Active:      true,
	})
	if err != nil {
		return project.Project{}, err
	}
	s.log.WithField("project_id", created.ID).WithField("code", created.Code).Info("project created")
	return created, nil
}

// UpdateProject edits a project. Code and owning customer are fixed.
func (s *Service) UpdateProject(ctx context.Context, id int64, in ProjectInput) (project.Project, error) {
	existing, err := s.GetProject(ctx, id)
	if err != nil {
		return project.Project{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return project.Project{}, errors.Validation("project name is required")
	}

	existing.Name = strings.TrimSpace(in.Name)
	existing.Description = in.Description
	if in.Active != nil {
		existing.Active = *in.Active
	}
	return s.backend.UpdateProject(ctx, existing)
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id int64) (project.Project, error) {
	p, err := s.backend.GetProject(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return project.Project{}, errors.NotFound("project not found")
		}
		return project.Project{}, err
	}
	return p, nil
}

// ListProjects returns projects, optionally scoped to one customer.
func (s *Service) ListProjects(ctx context.Context, customerID int64) ([]project.Project, error) {
	return s.backend.ListProjects(ctx, customerID)
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.backend.DeleteProject(ctx, id)
}
