package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	t.Setenv("INFRACTL_DEPLOYMENT_WAIT", "")
	t.Setenv("INFRACTL_SYNC_POLL_INTERVAL", "")
	t.Setenv("INFRACTL_DEGRADED_SLEEP", "")

	timeouts := LoadTimeouts()

	assert.Equal(t, 5*time.Minute, timeouts.DeploymentWait)
	assert.Equal(t, 5*time.Second, timeouts.SyncPollInterval)
	assert.Equal(t, 12, timeouts.AppExistAttempts)
	assert.Equal(t, 5*time.Second, timeouts.AppExistDelay)
	assert.Equal(t, 30*time.Second, timeouts.DegradedSleep)
}

func TestLoadTimeouts_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INFRACTL_DEPLOYMENT_WAIT", "10m")
	t.Setenv("INFRACTL_SYNC_POLL_INTERVAL", "2s")
	t.Setenv("INFRACTL_DEGRADED_SLEEP", "1m")

	timeouts := LoadTimeouts()

	assert.Equal(t, 10*time.Minute, timeouts.DeploymentWait)
	assert.Equal(t, 2*time.Second, timeouts.SyncPollInterval)
	assert.Equal(t, time.Minute, timeouts.DegradedSleep)
}

func TestLoadTimeouts_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("INFRACTL_DEPLOYMENT_WAIT", "not-a-duration")
	t.Setenv("INFRACTL_SYNC_POLL_INTERVAL", "-5s")

	timeouts := LoadTimeouts()

	assert.Equal(t, 5*time.Minute, timeouts.DeploymentWait)
	assert.Equal(t, 5*time.Second, timeouts.SyncPollInterval)
}
