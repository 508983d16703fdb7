// Package config holds the run configuration for the bootstrap orchestrator.
package config

import (
	"fmt"
	"os"
)

// Environment is a deployment environment.
type Environment string

const (
	// EnvDev is the development environment.
	EnvDev Environment = "dev"
	// EnvProd is the production environment.
	EnvProd Environment = "prod"
)

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvDev, EnvProd:
		return Environment(s), nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected dev or prod)", s)
	}
}

// Config is the resolved configuration for one bootstrap run. It is
// assembled once from flags, environment variables, and defaults, and is
// read-only afterwards.
type Config struct {
	Environment Environment
	ClusterName string
	Region      string

	SkipClusterCreate bool
	SkipGitPush       bool
	SkipSync          bool

	// ArgoCDServer is the ArgoCD API base URL. When set, the sync
	// orchestrator uses the direct API strategy; otherwise it falls back to
	// the degraded in-cluster strategy.
	ArgoCDServer string

	// ArgoCDChartVersion pins the argo-cd Helm chart.
	ArgoCDChartVersion string
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithClusterName overrides the derived cluster name.
func WithClusterName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.ClusterName = name
		}
	}
}

// WithRegion overrides the default region.
func WithRegion(region string) Option {
	return func(c *Config) {
		if region != "" {
			c.Region = region
		}
	}
}

// Load builds a Config for the given environment, optionally layering a YAML
// configuration file. Resolution order for each value: option (flag) >
// INFRACTL_* environment variable > config file > default. AWS_REGION is
// honoured as a secondary fallback for the region.
func Load(env Environment, filePath string, opts ...Option) (*Config, error) {
	var fc *FileConfig
	if filePath != "" {
		loaded, err := LoadFile(filePath)
		if err != nil {
			return nil, err
		}
		fc = loaded
	}
	return newConfig(env, fc, opts...), nil
}

// New builds a Config without a configuration file.
func New(env Environment, opts ...Option) *Config {
	return newConfig(env, nil, opts...)
}

func newConfig(env Environment, fc *FileConfig, opts ...Option) *Config {
	cfg := &Config{
		Environment:        env,
		ClusterName:        fmt.Sprintf("stack-%s", env),
		Region:             "us-east-1",
		ArgoCDChartVersion: "7.7.11",
	}

	fc.apply(cfg)

	if v := os.Getenv("INFRACTL_CLUSTER_NAME"); v != "" {
		cfg.ClusterName = v
	}
	if v := os.Getenv("INFRACTL_REGION"); v != "" {
		cfg.Region = v
	} else if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Region = v
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
