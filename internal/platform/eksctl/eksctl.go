// Package eksctl shells out to eksctl for the one operation the cloud SDK
// does not cover: creating the managed cluster from a declarative template.
package eksctl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/stackinfra/infractl/internal/artifacts"
	"github.com/stackinfra/infractl/internal/bootstrap"
)

const phaseName = "cluster"

// CommandRunner executes an external command and returns its combined
// output. Injectable for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Service wraps cluster lifecycle operations backed by eksctl and the aws
// CLI.
type Service struct {
	region   string
	run      CommandRunner
	observer bootstrap.Observer
}

// NewService creates a Service for the given region.
func NewService(region string, observer bootstrap.Observer) *Service {
	return &Service{region: region, run: execRunner, observer: observer}
}

// ClusterExists reports whether the named cluster exists in the region.
func (s *Service) ClusterExists(ctx context.Context, name string) (bool, error) {
	_, err := s.run(ctx, "eksctl", "get", "cluster", "--name", name, "--region", s.region)
	if err != nil {
		if strings.Contains(err.Error(), "ResourceNotFoundException") ||
			strings.Contains(err.Error(), "does not exist") {
			return false, nil
		}
		return false, fmt.Errorf("failed to query cluster %s: %w", name, err)
	}
	return true, nil
}

// CreateCluster renders the cluster template for the given name and creates
// the cluster. An existing cluster is skipped with a warning, never treated
// as failure.
func (s *Service) CreateCluster(ctx context.Context, name, templatePath string) error {
	exists, err := s.ClusterExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		bootstrap.LogResourceExists(s.observer, phaseName, "cluster", name, s.region)
		return nil
	}

	rendered, err := s.renderTemplate(name, templatePath)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "cluster-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to stage cluster config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(rendered); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage cluster config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage cluster config: %w", err)
	}

	bootstrap.LogResourceCreating(s.observer, phaseName, "cluster", name)
	if _, err := s.run(ctx, "eksctl", "create", "cluster", "-f", tmp.Name()); err != nil {
		return fmt.Errorf("failed to create cluster %s: %w", name, err)
	}
	bootstrap.LogResourceCreated(s.observer, phaseName, "cluster", name, s.region)
	return nil
}

// renderTemplate substitutes the cluster name and region into the cluster
// template. Rendering fails closed on unresolved placeholders.
func (s *Service) renderTemplate(name, templatePath string) ([]byte, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster template %s: %w", templatePath, err)
	}
	return artifacts.Render("cluster", string(raw), map[string]string{
		"cluster_name": name,
		"region":       s.region,
	})
}

// UpdateKubeconfig writes the kubeconfig entry for the cluster so the
// in-cluster phases can connect.
func (s *Service) UpdateKubeconfig(ctx context.Context, name string) error {
	_, err := s.run(ctx, "aws", "eks", "update-kubeconfig", "--name", name, "--region", s.region)
	if err != nil {
		return fmt.Errorf("failed to update kubeconfig for %s: %w", name, err)
	}
	return nil
}
