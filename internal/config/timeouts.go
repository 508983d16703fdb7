package config

import (
	"os"
	"time"
)

// Timeouts bounds every blocking wait in the orchestrator. Values can be
// overridden through environment variables for slow accounts or CI.
type Timeouts struct {
	// DeploymentWait bounds the wait for the ArgoCD server deployment to
	// become available after installation.
	DeploymentWait time.Duration

	// SyncPollInterval is the readiness polling interval inside a wave.
	SyncPollInterval time.Duration

	// AppExistAttempts and AppExistDelay bound the wait for an application
	// to appear after its ApplicationSet is synced. The same bounds apply to
	// both sync strategies.
	AppExistAttempts int
	AppExistDelay    time.Duration

	// DegradedSleep is the fixed sleep slice used by the degraded sync
	// strategy between status reads, calibrated to typical convergence time.
	DegradedSleep time.Duration
}

// LoadTimeouts returns the default timeouts with environment overrides applied.
func LoadTimeouts() *Timeouts {
	t := &Timeouts{
		DeploymentWait:   5 * time.Minute,
		SyncPollInterval: 5 * time.Second,
		AppExistAttempts: 12,
		AppExistDelay:    5 * time.Second,
		DegradedSleep:    30 * time.Second,
	}

	t.DeploymentWait = durationEnv("INFRACTL_DEPLOYMENT_WAIT", t.DeploymentWait)
	t.SyncPollInterval = durationEnv("INFRACTL_SYNC_POLL_INTERVAL", t.SyncPollInterval)
	t.DegradedSleep = durationEnv("INFRACTL_DEGRADED_SLEEP", t.DegradedSleep)

	return t
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
