package storage

import (
	"context"
	"errors"
	"time"

	"github.com/atlaslab/labmanager/internal/app/domain/activity"
	"github.com/atlaslab/labmanager/internal/app/domain/catalog"
	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/domain/org"
	"github.com/atlaslab/labmanager/internal/app/domain/project"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/domain/result"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
)

// Sentinel errors every store implementation maps its backend errors to.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate")
)

// UserStore persists user accounts and login history.
type UserStore interface {
	CreateUser(ctx context.Context, u identity.User) (identity.User, error)
	UpdateUser(ctx context.Context, u identity.User) (identity.User, error)
	GetUser(ctx context.Context, id int64) (identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	ListUsers(ctx context.Context) ([]identity.User, error)

	RecordLogin(ctx context.Context, rec identity.LoginRecord) (identity.LoginRecord, error)
	ListLogins(ctx context.Context, userID int64, limit int) ([]identity.LoginRecord, error)
}

// CustomerStore persists customer master data.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error)
	UpdateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error)
	GetCustomer(ctx context.Context, id int64) (customer.Customer, error)
	GetCustomerByCode(ctx context.Context, code string) (customer.Customer, error)
	ListCustomers(ctx context.Context) ([]customer.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

// ProjectStore persists project records.
type ProjectStore interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	UpdateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id int64) (project.Project, error)
	GetProjectByCode(ctx context.Context, code string) (project.Project, error)
	ListProjects(ctx context.Context, customerID int64) ([]project.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

// SampleStore persists samples.
type SampleStore interface {
	CreateSample(ctx context.Context, s sample.Sample) (sample.Sample, error)
	UpdateSample(ctx context.Context, s sample.Sample) (sample.Sample, error)
	GetSample(ctx context.Context, id int64) (sample.Sample, error)
	GetSampleByCode(ctx context.Context, code string) (sample.Sample, error)
	ListSamples(ctx context.Context) ([]sample.Sample, error)
	DeleteSample(ctx context.Context, id int64) error
}

// CatalogStore persists departments, sample types and test types.
type CatalogStore interface {
	CreateDepartment(ctx context.Context, d catalog.Department) (catalog.Department, error)
	UpdateDepartment(ctx context.Context, d catalog.Department) (catalog.Department, error)
	GetDepartment(ctx context.Context, id int64) (catalog.Department, error)
	ListDepartments(ctx context.Context) ([]catalog.Department, error)
	DeleteDepartment(ctx context.Context, id int64) error

	CreateSampleType(ctx context.Context, st catalog.SampleType) (catalog.SampleType, error)
	UpdateSampleType(ctx context.Context, st catalog.SampleType) (catalog.SampleType, error)
	GetSampleType(ctx context.Context, id int64) (catalog.SampleType, error)
	ListSampleTypes(ctx context.Context) ([]catalog.SampleType, error)
	DeleteSampleType(ctx context.Context, id int64) error

	CreateTestType(ctx context.Context, tt catalog.TestType) (catalog.TestType, error)
	UpdateTestType(ctx context.Context, tt catalog.TestType) (catalog.TestType, error)
	GetTestType(ctx context.Context, id int64) (catalog.TestType, error)
	ListTestTypes(ctx context.Context) ([]catalog.TestType, error)
	DeleteTestType(ctx context.Context, id int64) error
}

// ResultStore persists result sheets and their values.
type ResultStore interface {
	CreateEntry(ctx context.Context, e result.Entry) (result.Entry, error)
	UpdateEntry(ctx context.Context, e result.Entry) (result.Entry, error)
	GetEntry(ctx context.Context, id int64) (result.Entry, error)
	GetEntryBySample(ctx context.Context, sampleID int64) (result.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error

	CreateValue(ctx context.Context, v result.Value) (result.Value, error)
	UpdateValue(ctx context.Context, v result.Value) (result.Value, error)
	GetValue(ctx context.Context, id int64) (result.Value, error)
	ListValues(ctx context.Context, entryID int64) ([]result.Value, error)
	DeleteValue(ctx context.Context, id int64) error
}

// ReportStore persists reports.
type ReportStore interface {
	CreateReport(ctx context.Context, r report.Report) (report.Report, error)
	UpdateReport(ctx context.Context, r report.Report) (report.Report, error)
	GetReport(ctx context.Context, id int64) (report.Report, error)
	GetReportByEntryAndKey(ctx context.Context, entryID int64, viewKey string) (report.Report, error)
	ListReports(ctx context.Context) ([]report.Report, error)
	ListReportsByEntry(ctx context.Context, entryID int64) ([]report.Report, error)
	// MaxReportSeq returns the highest sequence number already issued
	// for the given year, 0 when none exist.
	MaxReportSeq(ctx context.Context, year int) (int, error)
	DeleteReport(ctx context.Context, id int64) error
}

// ActivityStore persists the append-only sample activity ledger.
type ActivityStore interface {
	AppendActivity(ctx context.Context, a activity.Activity) (activity.Activity, error)
	ListActivities(ctx context.Context, sampleID int64) ([]activity.Activity, error)
}

// SettingsStore persists organization settings and request logs.
type SettingsStore interface {
	GetSettings(ctx context.Context) (org.Settings, error)
	SaveSettings(ctx context.Context, s org.Settings) (org.Settings, error)

	AppendRequestLog(ctx context.Context, rl org.RequestLog) error
	PurgeRequestLogs(ctx context.Context, before time.Time) (int64, error)
}

// Backend is the full persistence surface. WithinTx runs fn against a
// Backend whose writes commit or roll back together; implementations
// without native transactions serialize instead.
type Backend interface {
	UserStore
	CustomerStore
	ProjectStore
	SampleStore
	CatalogStore
	ResultStore
	ReportStore
	ActivityStore
	SettingsStore

	WithinTx(ctx context.Context, fn func(Backend) error) error
}
