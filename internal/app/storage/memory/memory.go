package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/project"
	"github.com/atlaslab/labmanager/internal/app/storage"
)

// Store is an in-memory implementation of the storage backend. It is
// safe for concurrent use and is primarily intended for tests and
// local development.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	nextID int64

	users  map[int64]identity.User
	logins map[int64][]identity.LoginRecord

	customers map[int64]customer.Customer
	projects  map[int64]project.Project

	departments map[int64]catalog.Department
	sampleTypes map[int64]catalog.SampleType
	testTypes   map[int64]catalog.TestType

	samples    map[int64]sampleRec
	entries    map[int64]entryRec
	values     map[int64]valueRec
	reports    map[int64]reportRec
	activities map[int64][]activityRec

	settings    settingsRec
	requestLogs []requestLogRec
}

var _ storage.Backend = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		users:       make(map[int64]identity.User),
		logins:      make(map[int64][]identity.LoginRecord),
		customers:   make(map[int64]customer.Customer),
		projects:    make(map[int64]project.Project),
		departments: make(map[int64]catalog.Department),
		sampleTypes: make(map[int64]catalog.SampleType),
		testTypes:   make(map[int64]catalog.TestType),
		samples:     make(map[int64]sampleRec),
		entries:     make(map[int64]entryRec),
		values:      make(map[int64]valueRec),
		reports:     make(map[int64]reportRec),
		activities:  make(map[int64][]activityRec),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// WithinTx serializes fn against all other transactions. The memory
// backend cannot roll back, so fn must keep its writes short and
// self-consistent; services only use it for mutate-plus-ledger
// sequences.
func (s *Store) WithinTx(_ context.Context, fn func(storage.Backend) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return identity.User{}, fmt.Errorf("user %s: %w", u.Email, storage.ErrDuplicate)
		}
	}

	u.ID = s.nextIDLocked()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return identity.User{}, fmt.Errorf("user %d: %w", u.ID, storage.ErrNotFound)
	}
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return identity.User{}, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return identity.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RecordLogin(_ context.Context, rec identity.LoginRecord) (identity.LoginRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextIDLocked()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.logins[rec.UserID] = append(s.logins[rec.UserID], rec)
	return rec, nil
}

func (s *Store) ListLogins(_ context.Context, userID int64, limit int) ([]identity.LoginRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.logins[userID]
	out := make([]identity.LoginRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CustomerStore implementation ------------------------------------------------

func (s *Store) CreateCustomer(_ context.Context, c customer.Customer) (customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if existing.Code == c.Code {
			return customer.Customer{}, fmt.Errorf("customer code %s: %w", c.Code, storage.ErrDuplicate)
		}
	}

	c.ID = s.nextIDLocked()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c customer.Customer) (customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.customers[c.ID]
	if !ok {
		return customer.Customer{}, fmt.Errorf("customer %d: %w", c.ID, storage.ErrNotFound)
	}
	c.Code = original.Code
	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return customer.Customer{}, fmt.Errorf("customer %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCustomerByCode(_ context.Context, code string) (customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.Code == code {
			return c, nil
		}
	}
	return customer.Customer{}, fmt.Errorf("customer code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) ListCustomers(_ context.Context) ([]customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("customer %d: %w", id, storage.ErrNotFound)
	}
	delete(s.customers, id)
	return nil
}

// ProjectStore implementation -------------------------------------------------

func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.projects {
		if existing.Code == p.Code {
			return project.Project{}, fmt.Errorf("project code %s: %w", p.Code, storage.ErrDuplicate)
		}
	}

	p.ID = s.nextIDLocked()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.projects[p.ID]
	if !ok {
		return project.Project{}, fmt.Errorf("project %d: %w", p.ID, storage.ErrNotFound)
	}
	p.Code = original.Code
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id int64) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) GetProjectByCode(_ context.Context, code string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.Code == code {
			return p, nil
		}
	}
	return project.Project{}, fmt.Errorf("project code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) ListProjects(_ context.Context, customerID int64) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]project.Project, 0)
	for _, p := range s.projects {
		if customerID == 0 || p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
	}
	delete(s.projects, id)
	return nil
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) CreateDepartment(_ context.Context, d catalog.Department) (catalog.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.nextIDLocked()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.departments[d.ID] = d
	return d, nil
}

func (s *Store) UpdateDepartment(_ context.Context, d catalog.Department) (catalog.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.departments[d.ID]
	if !ok {
		return catalog.Department{}, fmt.Errorf("department %d: %w", d.ID, storage.ErrNotFound)
	}
	d.CreatedAt = original.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	s.departments[d.ID] = d
	return d, nil
}

func (s *Store) GetDepartment(_ context.Context, id int64) (catalog.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.departments[id]
	if !ok {
		return catalog.Department{}, fmt.Errorf("department %d: %w", id, storage.ErrNotFound)
	}
	return d, nil
}

func (s *Store) ListDepartments(_ context.Context) ([]catalog.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteDepartment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[id]; !ok {
		return fmt.Errorf("department %d: %w", id, storage.ErrNotFound)
	}
	delete(s.departments, id)
	return nil
}

func (s *Store) CreateSampleType(_ context.Context, st catalog.SampleType) (catalog.SampleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = s.nextIDLocked()
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	s.sampleTypes[st.ID] = st
	return st, nil
}

func (s *Store) UpdateSampleType(_ context.Context, st catalog.SampleType) (catalog.SampleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.sampleTypes[st.ID]
	if !ok {
		return catalog.SampleType{}, fmt.Errorf("sample type %d: %w", st.ID, storage.ErrNotFound)
	}
	st.CreatedAt = original.CreatedAt
	st.UpdatedAt = time.Now().UTC()
	s.sampleTypes[st.ID] = st
	return st, nil
}

func (s *Store) GetSampleType(_ context.Context, id int64) (catalog.SampleType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sampleTypes[id]
	if !ok {
		return catalog.SampleType{}, fmt.Errorf("sample type %d: %w", id, storage.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListSampleTypes(_ context.Context) ([]catalog.SampleType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.SampleType, 0, len(s.sampleTypes))
	for _, st := range s.sampleTypes {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSampleType(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sampleTypes[id]; !ok {
		return fmt.Errorf("sample type %d: %w", id, storage.ErrNotFound)
	}
	delete(s.sampleTypes, id)
	return nil
}

func (s *Store) CreateTestType(_ context.Context, tt catalog.TestType) (catalog.TestType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tt.ID = s.nextIDLocked()
	now := time.Now().UTC()
	tt.CreatedAt = now
	tt.UpdatedAt = now
	s.testTypes[tt.ID] = tt
	return tt, nil
}

func (s *Store) UpdateTestType(_ context.Context, tt catalog.TestType) (catalog.TestType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.testTypes[tt.ID]
	if !ok {
		return catalog.TestType{}, fmt.Errorf("test type %d: %w", tt.ID, storage.ErrNotFound)
	}
	tt.CreatedAt = original.CreatedAt
	tt.UpdatedAt = time.Now().UTC()
	s.testTypes[tt.ID] = tt
	return tt, nil
}

func (s *Store) GetTestType(_ context.Context, id int64) (catalog.TestType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tt, ok := s.testTypes[id]
	if !ok {
		return catalog.TestType{}, fmt.Errorf("test type %d: %w", id, storage.ErrNotFound)
	}
	return tt, nil
}

func (s *Store) ListTestTypes(_ context.Context) ([]catalog.TestType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.TestType, 0, len(s.testTypes))
	for _, tt := range s.testTypes {
		out = append(out, tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteTestType(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.testTypes[id]; !ok {
		return fmt.Errorf("test type %d: %w", id, storage.ErrNotFound)
	}
	delete(s.testTypes, id)
	return nil
}
