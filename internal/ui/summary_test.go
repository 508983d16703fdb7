package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stackinfra/infractl/internal/bootstrap"
	"github.com/stackinfra/infractl/internal/gitops"
)

func successfulReport() *bootstrap.RunReport {
	return &bootstrap.RunReport{
		Results: []bootstrap.PhaseResult{
			{Name: "cluster", Status: bootstrap.StatusSkipped},
			{Name: "discovery", Status: bootstrap.StatusSucceeded, Duration: 3 * time.Second},
			{Name: "trust", Status: bootstrap.StatusSucceeded, Duration: time.Second},
		},
	}
}

func TestRenderRunSummary_Success(t *testing.T) {
	t.Parallel()
	waves := []gitops.WaveResult{
		{
			Wave:     gitops.SyncWave{Ordinal: 1, Apps: []string{"crossplane-dev"}},
			State:    gitops.WaveHealthy,
			Duration: 42 * time.Second,
		},
	}

	out := RenderRunSummary("stack-dev", successfulReport(), waves)

	assert.Contains(t, out, "stack-dev")
	assert.Contains(t, out, "discovery")
	assert.Contains(t, out, "already satisfied")
	assert.Contains(t, out, "crossplane-dev")
	assert.Contains(t, out, "Bootstrap completed")
	assert.NotContains(t, out, "Bootstrap failed")
}

func TestRenderRunSummary_FatalFailure(t *testing.T) {
	t.Parallel()
	report := &bootstrap.RunReport{
		Results: []bootstrap.PhaseResult{
			{Name: "cluster", Status: bootstrap.StatusSucceeded, Duration: time.Minute},
			{Name: "trust", Status: bootstrap.StatusFailedFatal, Err: errors.New("role creation denied")},
			{Name: "artifacts", Status: bootstrap.StatusNotAttempted},
		},
	}

	out := RenderRunSummary("stack-prod", report, nil)

	assert.Contains(t, out, "Bootstrap failed at trust")
	assert.Contains(t, out, "role creation denied")
	assert.Contains(t, out, "not attempted")
	assert.NotContains(t, out, "Sync waves")
}

func TestRenderRunSummary_Warnings(t *testing.T) {
	t.Parallel()
	report := successfulReport()
	report.Warn("sync wave %d timed out", 2)

	out := RenderRunSummary("stack-dev", report, nil)

	assert.Contains(t, out, "Warnings")
	assert.Contains(t, out, "sync wave 2 timed out")
}
