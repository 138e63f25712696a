// Package app composes the laboratory backend into a running application.
//
// It is a wiring layer, not a business logic layer. Business rules live in
// internal/app/services/; this package owns the shared pieces they are built
// from and the surfaces that expose them:
//
//	internal/app/
//	├── application.go      # Application struct, service wiring, lifecycle
//	├── domain/             # Domain models (pure data structures)
//	├── storage/            # Store interfaces plus memory and postgres backends
//	├── services/           # Business logic (samples, results, reports, ...)
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Ordered start/stop of background services
//	├── runtime/            # Process assembly (config, DB, middleware, server)
//	└── metrics/            # Prometheus collectors
//
// Adding a new domain means: model under domain/, store interface in
// storage/interfaces.go with both backend implementations, a service under
// services/, wiring in application.go and handlers in httpapi/.
package app
