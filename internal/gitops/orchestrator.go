package gitops

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/stackinfra/infractl/internal/config"
	"github.com/stackinfra/infractl/internal/util/retry"
)

// Orchestrator runs sync waves in order, gating each wave on the health of
// the previous one. A wave that exceeds its budget is recorded as timed out
// and the rollout advances; only infrastructure errors abort it.
type Orchestrator struct {
	syncer   Syncer
	log      logr.Logger
	timeouts *config.Timeouts

	// pollInterval is the status polling cadence inside a wave. The
	// degraded strategy polls more slowly since its status lags anyway.
	pollInterval time.Duration
}

// NewOrchestrator creates an Orchestrator for the given sync strategy.
func NewOrchestrator(syncer Syncer, log logr.Logger, timeouts *config.Timeouts) *Orchestrator {
	interval := timeouts.SyncPollInterval
	if syncer.Strategy() == "degraded" {
		interval = timeouts.DegradedSleep
	}
	return &Orchestrator{
		syncer:       syncer,
		log:          log.WithValues("strategy", syncer.Strategy()),
		timeouts:     timeouts,
		pollInterval: interval,
	}
}

// SyncWaves runs the waves by ascending ordinal. After the last wave, every
// application in a managed wave gets auto-sync enabled, regardless of
// whether its wave timed out. An aborted rollout returns the results up to
// and including the failed wave, so the summary shows where it stopped.
func (o *Orchestrator) SyncWaves(ctx context.Context, waves []SyncWave) ([]WaveResult, error) {
	ordered := make([]SyncWave, len(waves))
	copy(ordered, waves)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	results := make([]WaveResult, 0, len(ordered))
	for _, wave := range ordered {
		result, err := o.runWave(ctx, wave)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}

	if err := o.enableAutoSync(ctx, ordered); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) runWave(ctx context.Context, wave SyncWave) (WaveResult, error) {
	log := o.log.WithValues("wave", wave.Ordinal)
	start := time.Now()
	result := WaveResult{Wave: wave, State: WavePending}

	log.Info("starting wave", "apps", wave.Apps, "timeout", wave.Timeout)

	apps, err := o.waitForApps(ctx, wave, log)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	if len(apps) == 0 {
		log.Info("no applications present, marking wave timed out")
		result.State = WaveTimedOut
		result.Duration = time.Since(start)
		return result, nil
	}

	result.State = WaveSyncing
	for _, app := range apps {
		log.Info("requesting sync", "app", app)
		if err := o.syncer.Sync(ctx, app); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("wave %d: %w", wave.Ordinal, err)
		}
	}

	healthy, err := o.waitForHealth(ctx, apps, wave.Timeout, log)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("wave %d: %w", wave.Ordinal, err)
	}

	result.Duration = time.Since(start)
	if healthy {
		result.State = WaveHealthy
		log.Info("wave healthy", "duration", result.Duration.Round(time.Second))
	} else {
		result.State = WaveTimedOut
		log.Info("wave timed out, advancing", "duration", result.Duration.Round(time.Second))
	}
	return result, nil
}

// waitForApps waits for each application of the wave to be created by the
// controller. Applications that never appear are dropped from the wave with
// a log line; the ones that exist still sync.
func (o *Orchestrator) waitForApps(ctx context.Context, wave SyncWave, log logr.Logger) ([]string, error) {
	var present []string
	for _, app := range wave.Apps {
		exists := false
		err := retry.Do(ctx, func() error {
			found, err := o.syncer.AppExists(ctx, app)
			if err != nil {
				return retry.Fatal(err)
			}
			if !found {
				return fmt.Errorf("application %s not created yet", app)
			}
			exists = true
			return nil
		},
			retry.WithMaxRetries(o.timeouts.AppExistAttempts-1),
			retry.WithFixedDelay(o.timeouts.AppExistDelay),
		)
		if err != nil && retry.IsFatal(err) {
			return nil, err
		}
		if exists {
			present = append(present, app)
		} else {
			log.Info("application never appeared, skipping", "app", app)
		}
	}
	return present, nil
}

func (o *Orchestrator) waitForHealth(ctx context.Context, apps []string, timeout time.Duration, log logr.Logger) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		allReady := true
		for _, app := range apps {
			status, err := o.syncer.Status(ctx, app)
			if err != nil {
				return false, err
			}
			log.V(1).Info("application status", "app", app,
				"sync", status.SyncStatus, "health", status.HealthStatus)
			if !status.Ready() {
				allReady = false
			}
		}
		if allReady {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) enableAutoSync(ctx context.Context, waves []SyncWave) error {
	for _, wave := range waves {
		if !wave.Managed {
			continue
		}
		for _, app := range wave.Apps {
			exists, err := o.syncer.AppExists(ctx, app)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			o.log.Info("enabling auto-sync", "app", app)
			if err := o.syncer.EnableAutoSync(ctx, app); err != nil {
				return err
			}
		}
	}
	return nil
}

// TimedOutWaves returns the ordinals of waves that timed out, for the run
// summary.
func TimedOutWaves(results []WaveResult) []int {
	var ordinals []int
	for _, result := range results {
		if result.State == WaveTimedOut {
			ordinals = append(ordinals, result.Wave.Ordinal)
		}
	}
	return ordinals
}
