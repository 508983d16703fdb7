package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Environment
		wantErr bool
	}{
		{input: "dev", want: EnvDev},
		{input: "prod", want: EnvProd},
		{input: "staging", wantErr: true},
		{input: "", wantErr: true},
		{input: "DEV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("input="+tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("INFRACTL_CLUSTER_NAME", "")
	t.Setenv("INFRACTL_REGION", "")
	t.Setenv("AWS_REGION", "")

	cfg := New(EnvDev)

	assert.Equal(t, "stack-dev", cfg.ClusterName)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, EnvDev, cfg.Environment)
	assert.NotEmpty(t, cfg.ArgoCDChartVersion)
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INFRACTL_CLUSTER_NAME", "custom-cluster")
	t.Setenv("INFRACTL_REGION", "eu-central-1")

	cfg := New(EnvProd)

	assert.Equal(t, "custom-cluster", cfg.ClusterName)
	assert.Equal(t, "eu-central-1", cfg.Region)
}

func TestNew_AWSRegionFallback(t *testing.T) {
	t.Setenv("INFRACTL_REGION", "")
	t.Setenv("AWS_REGION", "ap-southeast-2")

	cfg := New(EnvDev)

	assert.Equal(t, "ap-southeast-2", cfg.Region)
}

func TestNew_FlagsTakePrecedence(t *testing.T) {
	t.Setenv("INFRACTL_CLUSTER_NAME", "from-env")
	t.Setenv("INFRACTL_REGION", "eu-central-1")

	cfg := New(EnvProd,
		WithClusterName("from-flag"),
		WithRegion("us-west-2"),
	)

	assert.Equal(t, "from-flag", cfg.ClusterName)
	assert.Equal(t, "us-west-2", cfg.Region)
}

func TestNew_EmptyOptionsKeepDefaults(t *testing.T) {
	cfg := New(EnvDev, WithClusterName(""), WithRegion(""))

	assert.Equal(t, "stack-dev", cfg.ClusterName)
	assert.Equal(t, "us-east-1", cfg.Region)
}
