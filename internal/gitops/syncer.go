package gitops

import "context"

// AppStatus is the sync and health state of one application.
type AppStatus struct {
	// SyncStatus is the controller's sync state, e.g. Synced or OutOfSync.
	SyncStatus string

	// HealthStatus is the aggregate health, e.g. Healthy, Progressing,
	// Degraded, or Missing.
	HealthStatus string
}

// Ready reports whether the application is synced and healthy.
func (s AppStatus) Ready() bool {
	return s.SyncStatus == "Synced" && s.HealthStatus == "Healthy"
}

// Syncer abstracts the two ways of driving the delivery controller. The
// direct API strategy talks to the controller's REST endpoint; the degraded
// strategy manipulates application resources through the cluster API when
// the endpoint is unreachable.
type Syncer interface {
	// Strategy names the strategy for logs.
	Strategy() string

	// AppExists reports whether the application has been created yet.
	AppExists(ctx context.Context, app string) (bool, error)

	// Sync requests a refresh and sync of the application with pruning.
	Sync(ctx context.Context, app string) error

	// Status reads the application's current sync and health state.
	Status(ctx context.Context, app string) (AppStatus, error)

	// EnableAutoSync turns on automated sync with pruning and self-heal.
	EnableAutoSync(ctx context.Context, app string) error
}
