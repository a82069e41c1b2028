// Package app composes the registry's services into a running application.
//
// The layering mirrors the rest of internal/app:
//
//	internal/app/
//	├── application.go      # Application struct, store defaulting, wiring
//	├── domain/             # Domain models (pure data structures)
//	├── storage/            # Store interfaces, memory and postgres backends
//	├── services/           # Business logic (packages, releases, snippets, ...)
//	├── httpapi/            # HTTP handlers and routing
//	├── seed/               # Fixture seeding and upstream autoload
//	├── system/             # Background service lifecycle management
//	├── runtime/            # Process wiring: config, middleware, HTTP server
//	└── metrics/            # Prometheus collectors
//
// Services hold business rules and depend only on the storage interfaces;
// handlers translate HTTP to service calls; application.go wires concrete
// stores into services and manages background service lifecycle.
//
// When adding a new domain: create models in domain/, add a store interface
// to storage/interfaces.go, implement it in storage/memory (and postgres if
// it should be durable), create the service in services/, wire it in
// application.go, and expose it from httpapi/.
package app
