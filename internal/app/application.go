package app

import (
	"context"
	"fmt"

	"github.com/atlaslab/labmanager/internal/app/services/activities"
	catalogsvc "github.com/atlaslab/labmanager/internal/app/services/catalog"
	customersvc "github.com/atlaslab/labmanager/internal/app/services/customers"
	"github.com/atlaslab/labmanager/internal/app/services/identitysvc"
	"github.com/atlaslab/labmanager/internal/app/services/notify"
	reportsvc "github.com/atlaslab/labmanager/internal/app/services/reports"
	resultsvc "github.com/atlaslab/labmanager/internal/app/services/results"
	"github.com/atlaslab/labmanager/internal/app/services/retention"
	samplesvc "github.com/atlaslab/labmanager/internal/app/services/samples"
	searchsvc "github.com/atlaslab/labmanager/internal/app/services/search"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/app/storage/memory"
	"github.com/atlaslab/labmanager/internal/app/system"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Options configures the application. A nil Backend defaults to the
// in-memory store; a nil Notifier disables outbound messages.
type Options struct {
	Backend       storage.Backend
	Notifier      notify.Notifier
	Identity      identitysvc.Config
	Retention     retention.Config
	PublicBaseURL string
}

// Application ties the domain services together and manages the
// lifecycle of background jobs.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Backend    storage.Backend
	Identity   *identitysvc.Service
	Customers  *customersvc.Service
	Catalog    *catalogsvc.Service
	Samples    *samplesvc.Service
	Results    *resultsvc.Service
	Reports    *reportsvc.Service
	Deliverer  *reportsvc.Deliverer
	Search     *searchsvc.Service
	Activities *activities.Service
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	backend := opts.Backend
	if backend == nil {
		backend = memory.New()
		log.Warn("no storage backend configured; using in-memory store")
	}

	acts := activities.New(backend, log)
	reports := reportsvc.New(backend, log)

	a := &Application{
		manager:    system.NewManager(),
		log:        log,
		Backend:    backend,
		Identity:   identitysvc.New(backend, opts.Identity, log),
		Customers:  customersvc.New(backend, log).WithNotifier(opts.Notifier),
		Catalog:    catalogsvc.New(backend, log),
		Samples:    samplesvc.New(backend, acts, log).WithNotifier(opts.Notifier),
		Results:    resultsvc.New(backend, acts, log),
		Reports:    reports,
		Deliverer:  reportsvc.NewDeliverer(reports, opts.Notifier, opts.PublicBaseURL),
		Search:     searchsvc.New(backend, log),
		Activities: acts,
	}

	if opts.Retention.RequestLogDays > 0 {
		job := retention.New(backend, opts.Retention, log)
		if err := a.manager.Register(retentionService{job}); err != nil {
			return nil, fmt.Errorf("register retention job: %w", err)
		}
	}
	return a, nil
}

// Attach registers an additional lifecycle-managed service. Call
// before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// retentionService adapts the cron job to the lifecycle interface.
type retentionService struct {
	job *retention.Job
}

func (r retentionService) Name() string { return "retention" }

func (r retentionService) Start(context.Context) error { return r.job.Start() }

func (r retentionService) Stop(context.Context) error {
	r.job.Stop()
	return nil
}
