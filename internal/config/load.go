package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Every field is
// optional; unset fields fall through to environment variables and defaults.
type FileConfig struct {
	ClusterName string `yaml:"clusterName"`
	Region      string `yaml:"region"`
	ArgoCD      struct {
		Server       string `yaml:"server"`
		ChartVersion string `yaml:"chartVersion"`
	} `yaml:"argocd"`
}

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*FileConfig, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &fc, nil
}

// apply copies the file's set values onto the config. Nil-safe so callers
// without a file share the same layering path.
func (fc *FileConfig) apply(cfg *Config) {
	if fc == nil {
		return
	}
	if fc.ClusterName != "" {
		cfg.ClusterName = fc.ClusterName
	}
	if fc.Region != "" {
		cfg.Region = fc.Region
	}
	if fc.ArgoCD.Server != "" {
		cfg.ArgoCDServer = fc.ArgoCD.Server
	}
	if fc.ArgoCD.ChartVersion != "" {
		cfg.ArgoCDChartVersion = fc.ArgoCD.ChartVersion
	}
}
