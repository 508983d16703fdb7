// Package trust establishes the federated trust relationship between the
// cluster's OIDC issuer and the IAM role assumed by the in-cluster
// provisioning agent.
//
// The role carries AdministratorAccess on purpose: the agent manages
// arbitrary infrastructure on behalf of the platform. The permission
// boundary is the actual security control. It caps what the role can ever
// exercise and denies removing or loosening itself.
package trust

import (
	"context"
	_ "embed"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/stackinfra/infractl/internal/bootstrap"
	awsplat "github.com/stackinfra/infractl/internal/platform/aws"
)

const (
	phaseName = "trust"

	// adminPolicyARN is the policy attached to the provisioner role,
	// capped by the permission boundary.
	adminPolicyARN = "arn:aws:iam::aws:policy/AdministratorAccess"
)

//go:embed permission_boundary.json
var permissionBoundaryDocument string

// ConfigError indicates trust configuration could not be established.
type ConfigError struct {
	Step  string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("trust configuration failed: %s: %v", e.Step, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// Configurer creates the permission boundary and the provisioner role.
type Configurer struct {
	iam      awsplat.IAMAPI
	observer bootstrap.Observer
}

// New creates a Configurer.
func New(iamClient awsplat.IAMAPI, observer bootstrap.Observer) *Configurer {
	return &Configurer{iam: iamClient, observer: observer}
}

// RoleExists reports whether the provisioner role already exists.
func (c *Configurer) RoleExists(ctx context.Context, cc *bootstrap.ClusterContext) (bool, error) {
	_, err := c.iam.GetRole(ctx, &iam.GetRoleInput{
		RoleName: awssdk.String(cc.ProvisionerRoleName()),
	})
	if err != nil {
		if awsplat.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up role %s: %w", cc.ProvisionerRoleName(), err)
	}
	return true, nil
}

// ConfigureTrust ensures the permission boundary and the provisioner role
// exist and returns the role ARN. Re-running against an already configured
// account is a no-op: existing resources are skipped with a warning, never
// treated as failure.
func (c *Configurer) ConfigureTrust(ctx context.Context, cc *bootstrap.ClusterContext) (string, error) {
	if err := c.ensureBoundary(ctx, cc); err != nil {
		return "", err
	}
	return c.ensureRole(ctx, cc)
}

func (c *Configurer) ensureBoundary(ctx context.Context, cc *bootstrap.ClusterContext) error {
	name := cc.PermissionBoundaryName()

	_, err := c.iam.GetPolicy(ctx, &iam.GetPolicyInput{
		PolicyArn: awssdk.String(cc.PermissionBoundaryARN()),
	})
	if err == nil {
		bootstrap.LogResourceExists(c.observer, phaseName, "permission boundary", name, cc.PermissionBoundaryARN())
		return nil
	}
	if !awsplat.IsNotFound(err) {
		return &ConfigError{Step: "look up permission boundary", Cause: err}
	}

	bootstrap.LogResourceCreating(c.observer, phaseName, "permission boundary", name)
	_, err = c.iam.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     awssdk.String(name),
		PolicyDocument: awssdk.String(permissionBoundaryDocument),
		Description:    awssdk.String("Ceiling policy for the Crossplane provisioner role"),
	})
	if err != nil {
		if awsplat.IsAlreadyExists(err) {
			bootstrap.LogResourceExists(c.observer, phaseName, "permission boundary", name, cc.PermissionBoundaryARN())
			return nil
		}
		return &ConfigError{Step: "create permission boundary", Cause: err}
	}

	bootstrap.LogResourceCreated(c.observer, phaseName, "permission boundary", name, cc.PermissionBoundaryARN())
	return nil
}

func (c *Configurer) ensureRole(ctx context.Context, cc *bootstrap.ClusterContext) (string, error) {
	name := cc.ProvisionerRoleName()

	out, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: awssdk.String(name)})
	if err == nil {
		arn := awssdk.ToString(out.Role.Arn)
		bootstrap.LogResourceExists(c.observer, phaseName, "role", name, arn)
		return arn, nil
	}
	if !awsplat.IsNotFound(err) {
		return "", &ConfigError{Step: "look up role", Cause: err}
	}

	trustPolicy, err := BuildTrustPolicy(cc)
	if err != nil {
		return "", &ConfigError{Step: "build trust policy", Cause: err}
	}

	bootstrap.LogResourceCreating(c.observer, phaseName, "role", name)
	created, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 awssdk.String(name),
		AssumeRolePolicyDocument: awssdk.String(trustPolicy),
		PermissionsBoundary:      awssdk.String(cc.PermissionBoundaryARN()),
		Description:              awssdk.String("IRSA role for the Crossplane AWS provider"),
	})
	if err != nil {
		if awsplat.IsAlreadyExists(err) {
			bootstrap.LogResourceExists(c.observer, phaseName, "role", name, cc.ProvisionerRoleARNDefault())
			return cc.ProvisionerRoleARNDefault(), nil
		}
		return "", &ConfigError{Step: "create role", Cause: err}
	}

	_, err = c.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  awssdk.String(name),
		PolicyArn: awssdk.String(adminPolicyARN),
	})
	if err != nil {
		return "", &ConfigError{Step: "attach role policy", Cause: err}
	}

	arn := awssdk.ToString(created.Role.Arn)
	bootstrap.LogResourceCreated(c.observer, phaseName, "role", name, arn)
	return arn, nil
}
