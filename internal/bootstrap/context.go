// Package bootstrap provides the shared phase model, run context, and
// observability types for the bootstrap orchestrator.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/stackinfra/infractl/internal/config"
)

// ClusterContext holds every cloud identifier a bootstrap run discovers or
// creates. It is progressively populated by the discovery and trust phases
// and then consumed read-only by artifact generation.
type ClusterContext struct {
	AccountID   string
	Region      string
	Environment string
	ClusterName string

	VPCID string

	// OIDCProvider is the cluster's federated issuer host and path, without
	// the https:// scheme. OIDCID is its trailing path segment.
	OIDCProvider string
	OIDCID       string

	// Subnet IDs keyed by availability zone suffix ("a", "b", "c").
	PrivateSubnets map[string]string
	PublicSubnets  map[string]string

	InternetGatewayID string
	NATGatewayID      string
	SecurityGroupID   string
	HostedZoneID      string

	// ProvisionerRoleARN is set once the trust phase has ensured the role.
	ProvisionerRoleARN string
}

// NewClusterContext creates a ClusterContext seeded from the run config.
func NewClusterContext(cfg *config.Config) *ClusterContext {
	return &ClusterContext{
		Region:         cfg.Region,
		Environment:    string(cfg.Environment),
		ClusterName:    cfg.ClusterName,
		PrivateSubnets: make(map[string]string),
		PublicSubnets:  make(map[string]string),
	}
}

// ProvisionerRoleName is the IAM role assumed by the in-cluster provisioning
// agent. The name is shared with the agent's controller configuration and
// must not vary per environment.
func (cc *ClusterContext) ProvisionerRoleName() string {
	return "crossplane-provider-aws"
}

// PermissionBoundaryName is the managed policy capping the provisioner role.
func (cc *ClusterContext) PermissionBoundaryName() string {
	return "crossplaneBoundary"
}

// PermissionBoundaryARN returns the boundary policy ARN in this account.
func (cc *ClusterContext) PermissionBoundaryARN() string {
	return fmt.Sprintf("arn:aws:iam::%s:policy/%s", cc.AccountID, cc.PermissionBoundaryName())
}

// ProvisionerRoleARNDefault returns the role ARN derived from the account ID
// and the fixed role name, used when the role pre-exists.
func (cc *ClusterContext) ProvisionerRoleARNDefault() string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", cc.AccountID, cc.ProvisionerRoleName())
}

// OIDCProviderARN returns the IAM OIDC provider ARN for the cluster issuer.
func (cc *ClusterContext) OIDCProviderARN() string {
	return fmt.Sprintf("arn:aws:iam::%s:oidc-provider/%s", cc.AccountID, cc.OIDCProvider)
}

// SecurityGroupName is the managed resources security group owned by the
// orchestrator.
func (cc *ClusterContext) SecurityGroupName() string {
	return cc.ClusterName + "-crossplane-managed"
}

// HostedZoneName is the private DNS zone owned by the orchestrator. Route53
// stores zone names with a trailing dot.
func (cc *ClusterContext) HostedZoneName() string {
	return cc.ClusterName + ".internal."
}

// ArgoCDSecretName is the Secrets Manager entry holding the delivery
// controller admin credential.
func (cc *ClusterContext) ArgoCDSecretName() string {
	return cc.ClusterName + "/argocd/admin"
}

// Context wraps the dependencies and state shared by all bootstrap phases.
type Context struct {
	context.Context
	Config   *config.Config
	Cluster  *ClusterContext
	Observer Observer
	Timeouts *config.Timeouts
}

// NewContext creates a bootstrap context for one run.
func NewContext(ctx context.Context, cfg *config.Config) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Cluster:  NewClusterContext(cfg),
		Observer: NewConsoleObserver(),
		Timeouts: config.LoadTimeouts(),
	}
}
