package config

import "path/filepath"

// Paths resolves the fixed locations inside the platform repository that the
// orchestrator reads templates from and writes artifacts to.
type Paths struct {
	// Root is the repository root, normally resolved via git.
	Root string
}

// NewPaths creates a Paths anchored at the given repository root.
func NewPaths(root string) Paths {
	return Paths{Root: root}
}

// K8s is the top-level kubernetes directory.
func (p Paths) K8s() string {
	return filepath.Join(p.Root, "k8s")
}

// Infrastructure is the declarative infrastructure directory.
func (p Paths) Infrastructure() string {
	return filepath.Join(p.K8s(), "infrastructure")
}

// ArgoCD holds the ArgoCD project and ApplicationSet manifests.
func (p Paths) ArgoCD() string {
	return filepath.Join(p.K8s(), "argocd")
}

// Platform holds the bootstrap inputs (cluster template, boundary policy).
func (p Paths) Platform() string {
	return filepath.Join(p.K8s(), "bootstrap", "platform")
}

// EksctlConfig is the cluster creation template consumed by eksctl.
func (p Paths) EksctlConfig() string {
	return filepath.Join(p.Platform(), "cluster.yaml")
}

// Overlay is the per-environment patch directory the generated artifacts
// are written into.
func (p Paths) Overlay(env Environment) string {
	return filepath.Join(p.Infrastructure(), "overlays", string(env), "patches")
}

// ImportedResources is the generated import descriptor artifact.
func (p Paths) ImportedResources(env Environment) string {
	return filepath.Join(p.Overlay(env), "imported-resources.yaml")
}

// EnvironmentConfig is the generated environment configuration overlay.
func (p Paths) EnvironmentConfig(env Environment) string {
	return filepath.Join(p.Overlay(env), "environment-config.yaml")
}
