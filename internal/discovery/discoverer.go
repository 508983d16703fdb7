// Package discovery resolves the cloud identifiers an environment is built
// from. Resources provided by the cluster bootstrapper (the cluster, its
// VPC, the federated issuer, the gateways) must already exist; resources the
// orchestrator owns (the managed security group, the private DNS zone) are
// created with stable names so repeated runs converge on the same
// identifiers.
package discovery

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/stackinfra/infractl/internal/bootstrap"
	awsplat "github.com/stackinfra/infractl/internal/platform/aws"
)

const phaseName = "discovery"

// Error indicates a resource that must pre-exist could not be found. Nothing
// downstream can proceed without its identifier, so discovery errors are
// always fatal.
type Error struct {
	Resource string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery failed: %s: %v", e.Resource, e.Cause)
	}
	return fmt.Sprintf("discovery failed: %s not found", e.Resource)
}

func (e *Error) Unwrap() error { return e.Cause }

// Discoverer resolves and, where owned, creates the environment's cloud
// resources.
type Discoverer struct {
	clients  *awsplat.Clients
	observer bootstrap.Observer
}

// New creates a Discoverer.
func New(clients *awsplat.Clients, observer bootstrap.Observer) *Discoverer {
	return &Discoverer{clients: clients, observer: observer}
}

// Discover populates the cluster context with every identifier, creating the
// owned supporting resources if they are missing. Safe to re-run: unchanged
// cloud state yields identical identifiers and no mutation.
func (d *Discoverer) Discover(ctx context.Context, cc *bootstrap.ClusterContext) error {
	missing, err := d.Lookup(ctx, cc)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	if err := d.CreateOwned(ctx, cc); err != nil {
		return err
	}
	missing, err = d.Lookup(ctx, cc)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &Error{Resource: strings.Join(missing, ", ")}
	}
	return nil
}

// Lookup resolves every identifier without mutating cloud state. It returns
// the names of owned resources that do not exist yet; the caller decides
// whether to create them. Resources owned by the upstream cluster
// bootstrapper that are absent produce a fatal *Error instead.
func (d *Discoverer) Lookup(ctx context.Context, cc *bootstrap.ClusterContext) ([]string, error) {
	if err := d.lookupAccount(ctx, cc); err != nil {
		return nil, err
	}
	if err := d.lookupCluster(ctx, cc); err != nil {
		return nil, err
	}
	if err := d.lookupSubnets(ctx, cc); err != nil {
		return nil, err
	}
	if err := d.lookupGateways(ctx, cc); err != nil {
		return nil, err
	}

	var missing []string

	sgID, err := d.findSecurityGroup(ctx, cc)
	if err != nil {
		return nil, err
	}
	if sgID == "" {
		missing = append(missing, "security group "+cc.SecurityGroupName())
	}
	cc.SecurityGroupID = sgID

	zoneID, err := d.findHostedZone(ctx, cc)
	if err != nil {
		return nil, err
	}
	if zoneID == "" {
		missing = append(missing, "hosted zone "+cc.HostedZoneName())
	}
	cc.HostedZoneID = zoneID

	return missing, nil
}

// CreateOwned creates the orchestrator-owned supporting resources that
// Lookup reported missing. At most one security group and one hosted zone
// are created per run.
func (d *Discoverer) CreateOwned(ctx context.Context, cc *bootstrap.ClusterContext) error {
	if cc.SecurityGroupID == "" {
		if err := d.createSecurityGroup(ctx, cc); err != nil {
			return err
		}
	}
	if cc.HostedZoneID == "" {
		if err := d.createHostedZone(ctx, cc); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discoverer) lookupAccount(ctx context.Context, cc *bootstrap.ClusterContext) error {
	out, err := d.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to resolve account identity: %w", err)
	}
	cc.AccountID = awssdk.ToString(out.Account)
	return nil
}

func (d *Discoverer) lookupCluster(ctx context.Context, cc *bootstrap.ClusterContext) error {
	out, err := d.clients.EKS.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: awssdk.String(cc.ClusterName),
	})
	if err != nil {
		if awsplat.IsNotFound(err) {
			return &Error{Resource: "cluster " + cc.ClusterName, Cause: err}
		}
		return fmt.Errorf("failed to describe cluster %s: %w", cc.ClusterName, err)
	}

	cluster := out.Cluster
	if cluster.ResourcesVpcConfig == nil || awssdk.ToString(cluster.ResourcesVpcConfig.VpcId) == "" {
		return &Error{Resource: "VPC for cluster " + cc.ClusterName}
	}
	cc.VPCID = awssdk.ToString(cluster.ResourcesVpcConfig.VpcId)

	if cluster.Identity == nil || cluster.Identity.Oidc == nil {
		return &Error{Resource: "OIDC issuer for cluster " + cc.ClusterName}
	}
	issuer := awssdk.ToString(cluster.Identity.Oidc.Issuer)
	if issuer == "" {
		return &Error{Resource: "OIDC issuer for cluster " + cc.ClusterName}
	}
	cc.OIDCProvider = strings.TrimPrefix(issuer, "https://")
	parts := strings.Split(cc.OIDCProvider, "/")
	cc.OIDCID = parts[len(parts)-1]

	return nil
}

func (d *Discoverer) lookupSubnets(ctx context.Context, cc *bootstrap.ClusterContext) error {
	out, err := d.clients.EC2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{vpcFilter("vpc-id", cc.VPCID)},
	})
	if err != nil {
		return fmt.Errorf("failed to describe subnets for %s: %w", cc.VPCID, err)
	}
	if len(out.Subnets) == 0 {
		return &Error{Resource: "subnets in VPC " + cc.VPCID}
	}
	cc.PrivateSubnets, cc.PublicSubnets = PartitionSubnets(out.Subnets)
	return nil
}

func (d *Discoverer) lookupGateways(ctx context.Context, cc *bootstrap.ClusterContext) error {
	igws, err := d.clients.EC2.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: []ec2types.Filter{vpcFilter("attachment.vpc-id", cc.VPCID)},
	})
	if err != nil {
		return fmt.Errorf("failed to describe internet gateways: %w", err)
	}
	if len(igws.InternetGateways) == 0 {
		return &Error{Resource: "internet gateway for VPC " + cc.VPCID}
	}
	cc.InternetGatewayID = awssdk.ToString(igws.InternetGateways[0].InternetGatewayId)

	nats, err := d.clients.EC2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []ec2types.Filter{
			vpcFilter("vpc-id", cc.VPCID),
			vpcFilter("state", "available"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to describe NAT gateways: %w", err)
	}
	if len(nats.NatGateways) == 0 {
		return &Error{Resource: "NAT gateway for VPC " + cc.VPCID}
	}
	cc.NATGatewayID = awssdk.ToString(nats.NatGateways[0].NatGatewayId)

	return nil
}

func (d *Discoverer) findSecurityGroup(ctx context.Context, cc *bootstrap.ClusterContext) (string, error) {
	out, err := d.clients.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			vpcFilter("group-name", cc.SecurityGroupName()),
			vpcFilter("vpc-id", cc.VPCID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe security group %s: %w", cc.SecurityGroupName(), err)
	}
	if len(out.SecurityGroups) == 0 {
		return "", nil
	}
	return awssdk.ToString(out.SecurityGroups[0].GroupId), nil
}

func (d *Discoverer) createSecurityGroup(ctx context.Context, cc *bootstrap.ClusterContext) error {
	name := cc.SecurityGroupName()
	bootstrap.LogResourceCreating(d.observer, phaseName, "security group", name)

	out, err := d.clients.EC2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   awssdk.String(name),
		Description: awssdk.String("Managed resources boundary for " + cc.ClusterName),
		VpcId:       awssdk.String(cc.VPCID),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSecurityGroup,
			Tags: []ec2types.Tag{
				{Key: awssdk.String("infractl/cluster"), Value: awssdk.String(cc.ClusterName)},
				{Key: awssdk.String("infractl/environment"), Value: awssdk.String(cc.Environment)},
			},
		}},
	})
	if err != nil {
		if awsplat.IsAlreadyExists(err) {
			id, lookupErr := d.findSecurityGroup(ctx, cc)
			if lookupErr != nil {
				return lookupErr
			}
			cc.SecurityGroupID = id
			bootstrap.LogResourceExists(d.observer, phaseName, "security group", name, id)
			return nil
		}
		return fmt.Errorf("failed to create security group %s: %w", name, err)
	}

	cc.SecurityGroupID = awssdk.ToString(out.GroupId)
	bootstrap.LogResourceCreated(d.observer, phaseName, "security group", name, cc.SecurityGroupID)
	return nil
}

func (d *Discoverer) findHostedZone(ctx context.Context, cc *bootstrap.ClusterContext) (string, error) {
	name := cc.HostedZoneName()
	out, err := d.clients.Route53.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  awssdk.String(name),
		MaxItems: awssdk.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list hosted zones: %w", err)
	}
	for _, zone := range out.HostedZones {
		if awssdk.ToString(zone.Name) != name {
			continue
		}
		if zone.Config == nil || !zone.Config.PrivateZone {
			continue
		}
		return strings.TrimPrefix(awssdk.ToString(zone.Id), "/hostedzone/"), nil
	}
	return "", nil
}

func (d *Discoverer) createHostedZone(ctx context.Context, cc *bootstrap.ClusterContext) error {
	name := cc.HostedZoneName()
	bootstrap.LogResourceCreating(d.observer, phaseName, "hosted zone", name)

	// A stable caller reference makes retried creates converge on the same
	// zone instead of minting duplicates.
	out, err := d.clients.Route53.CreateHostedZone(ctx, &route53.CreateHostedZoneInput{
		Name:            awssdk.String(name),
		CallerReference: awssdk.String(cc.ClusterName + "-private-zone"),
		HostedZoneConfig: &r53types.HostedZoneConfig{
			PrivateZone: true,
			Comment:     awssdk.String("Private zone for " + cc.ClusterName),
		},
		VPC: &r53types.VPC{
			VPCId:     awssdk.String(cc.VPCID),
			VPCRegion: r53types.VPCRegion(cc.Region),
		},
	})
	if err != nil {
		if awsplat.IsAlreadyExists(err) {
			id, lookupErr := d.findHostedZone(ctx, cc)
			if lookupErr != nil {
				return lookupErr
			}
			cc.HostedZoneID = id
			bootstrap.LogResourceExists(d.observer, phaseName, "hosted zone", name, id)
			return nil
		}
		return fmt.Errorf("failed to create hosted zone %s: %w", name, err)
	}

	cc.HostedZoneID = strings.TrimPrefix(awssdk.ToString(out.HostedZone.Id), "/hostedzone/")
	bootstrap.LogResourceCreated(d.observer, phaseName, "hosted zone", name, cc.HostedZoneID)
	return nil
}

func vpcFilter(name, value string) ec2types.Filter {
	return ec2types.Filter{
		Name:   awssdk.String(name),
		Values: []string{value},
	}
}
