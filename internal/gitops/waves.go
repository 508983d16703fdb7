// Package gitops drives the ordered, health-gated rollout of the delivery
// controller's applications after bootstrap.
package gitops

import (
	"fmt"
	"time"
)

// WaveState is the lifecycle state of a sync wave.
type WaveState string

const (
	// WavePending means the wave never started syncing; a wave result in
	// this state marks where an aborted rollout stopped.
	WavePending WaveState = "Pending"
	// WaveSyncing means the wave's applications are being synced.
	WaveSyncing WaveState = "Syncing"
	// WaveHealthy means every application in the wave reported healthy.
	WaveHealthy WaveState = "Healthy"
	// WaveTimedOut means the wave did not become healthy within its budget.
	// The rollout advances anyway; later waves may not depend on it.
	WaveTimedOut WaveState = "TimedOut"
)

// SyncWave is one ordered group of applications. Waves run strictly by
// ascending ordinal; a wave starts only after the previous one reached a
// terminal state.
type SyncWave struct {
	// Ordinal fixes the wave's position in the rollout.
	Ordinal int

	// Apps are the application names synced together in this wave.
	Apps []string

	// Timeout bounds the wait for the whole wave to become healthy.
	Timeout time.Duration

	// Managed waves get auto-sync enabled once the rollout completes, so
	// the controller keeps reconciling them without operator action.
	Managed bool
}

// WaveResult records the outcome of one wave.
type WaveResult struct {
	Wave     SyncWave
	State    WaveState
	Duration time.Duration
}

// DefaultWaves returns the standard rollout order for an environment. The
// provisioning agent and its providers must settle before infrastructure,
// and infrastructure before workloads.
func DefaultWaves(env string) []SyncWave {
	return []SyncWave{
		{
			Ordinal: 1,
			Apps: []string{
				fmt.Sprintf("crossplane-%s", env),
				fmt.Sprintf("crossplane-providers-%s", env),
			},
			Timeout: 10 * time.Minute,
			Managed: false,
		},
		{
			Ordinal: 2,
			Apps:    []string{fmt.Sprintf("infrastructure-%s", env)},
			Timeout: 15 * time.Minute,
			Managed: true,
		},
		{
			Ordinal: 3,
			Apps:    []string{fmt.Sprintf("workloads-%s", env)},
			Timeout: 5 * time.Minute,
			Managed: true,
		},
	}
}
