package discovery

import (
	"context"
	"fmt"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackinfra/infractl/internal/bootstrap"
	awsplat "github.com/stackinfra/infractl/internal/platform/aws"
)

type nopObserver struct{}

func (nopObserver) Printf(string, ...interface{}) {}
func (nopObserver) Event(bootstrap.Event)         {}

// fakeCloud is the mutable cloud state backing the mock clients.
type fakeCloud struct {
	securityGroupID string
	hostedZoneID    string

	createdSecurityGroups int
	createdHostedZones    int
}

func newTestClients(cloud *fakeCloud) *awsplat.Clients {
	return &awsplat.Clients{
		STS: &awsplat.MockSTS{
			GetCallerIdentityFunc: func(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
				return &sts.GetCallerIdentityOutput{Account: awssdk.String("123456789012")}, nil
			},
		},
		EKS: &awsplat.MockEKS{
			DescribeClusterFunc: func(_ context.Context, params *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
				return &eks.DescribeClusterOutput{
					Cluster: &ekstypes.Cluster{
						Name: params.Name,
						ResourcesVpcConfig: &ekstypes.VpcConfigResponse{
							VpcId: awssdk.String("vpc-0abc"),
						},
						Identity: &ekstypes.Identity{
							Oidc: &ekstypes.OIDC{
								Issuer: awssdk.String("https://oidc.eks.us-east-1.amazonaws.com/id/ABCDEF"),
							},
						},
					},
				}, nil
			},
		},
		EC2: &awsplat.MockEC2{
			DescribeSubnetsFunc: func(_ context.Context, _ *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
				return &ec2.DescribeSubnetsOutput{
					Subnets: []ec2types.Subnet{
						{
							SubnetId:            awssdk.String("subnet-priv-a"),
							AvailabilityZone:    awssdk.String("us-east-1a"),
							MapPublicIpOnLaunch: awssdk.Bool(false),
						},
						{
							SubnetId:            awssdk.String("subnet-pub-a"),
							AvailabilityZone:    awssdk.String("us-east-1a"),
							MapPublicIpOnLaunch: awssdk.Bool(true),
						},
					},
				}, nil
			},
			DescribeInternetGatewaysFunc: func(_ context.Context, _ *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
				return &ec2.DescribeInternetGatewaysOutput{
					InternetGateways: []ec2types.InternetGateway{
						{InternetGatewayId: awssdk.String("igw-1")},
					},
				}, nil
			},
			DescribeNatGatewaysFunc: func(_ context.Context, _ *ec2.DescribeNatGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
				return &ec2.DescribeNatGatewaysOutput{
					NatGateways: []ec2types.NatGateway{
						{NatGatewayId: awssdk.String("nat-1")},
					},
				}, nil
			},
			DescribeSecurityGroupsFunc: func(_ context.Context, _ *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
				if cloud.securityGroupID == "" {
					return &ec2.DescribeSecurityGroupsOutput{}, nil
				}
				return &ec2.DescribeSecurityGroupsOutput{
					SecurityGroups: []ec2types.SecurityGroup{
						{GroupId: awssdk.String(cloud.securityGroupID)},
					},
				}, nil
			},
			CreateSecurityGroupFunc: func(_ context.Context, _ *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
				cloud.createdSecurityGroups++
				cloud.securityGroupID = "sg-created"
				return &ec2.CreateSecurityGroupOutput{GroupId: awssdk.String("sg-created")}, nil
			},
		},
		Route53: &awsplat.MockRoute53{
			ListHostedZonesByNameFunc: func(_ context.Context, _ *route53.ListHostedZonesByNameInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error) {
				if cloud.hostedZoneID == "" {
					return &route53.ListHostedZonesByNameOutput{}, nil
				}
				return &route53.ListHostedZonesByNameOutput{
					HostedZones: []r53types.HostedZone{{
						Id:     awssdk.String("/hostedzone/" + cloud.hostedZoneID),
						Name:   awssdk.String("stack-dev.internal."),
						Config: &r53types.HostedZoneConfig{PrivateZone: true},
					}},
				}, nil
			},
			CreateHostedZoneFunc: func(_ context.Context, _ *route53.CreateHostedZoneInput, _ ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error) {
				cloud.createdHostedZones++
				cloud.hostedZoneID = "Z0CREATED"
				return &route53.CreateHostedZoneOutput{
					HostedZone: &r53types.HostedZone{
						Id: awssdk.String("/hostedzone/Z0CREATED"),
					},
				}, nil
			},
		},
		Region: "us-east-1",
	}
}

func newClusterContext() *bootstrap.ClusterContext {
	return &bootstrap.ClusterContext{
		Region:         "us-east-1",
		Environment:    "dev",
		ClusterName:    "stack-dev",
		PrivateSubnets: map[string]string{},
		PublicSubnets:  map[string]string{},
	}
}

func TestLookup_PopulatesContext(t *testing.T) {
	t.Parallel()
	cloud := &fakeCloud{securityGroupID: "sg-existing", hostedZoneID: "Z0EXISTING"}
	d := New(newTestClients(cloud), nopObserver{})
	cc := newClusterContext()

	missing, err := d.Lookup(context.Background(), cc)

	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, "123456789012", cc.AccountID)
	assert.Equal(t, "vpc-0abc", cc.VPCID)
	assert.Equal(t, "oidc.eks.us-east-1.amazonaws.com/id/ABCDEF", cc.OIDCProvider)
	assert.Equal(t, "ABCDEF", cc.OIDCID)
	assert.Equal(t, "subnet-priv-a", cc.PrivateSubnets["a"])
	assert.Equal(t, "subnet-pub-a", cc.PublicSubnets["a"])
	assert.Equal(t, "igw-1", cc.InternetGatewayID)
	assert.Equal(t, "nat-1", cc.NATGatewayID)
	assert.Equal(t, "sg-existing", cc.SecurityGroupID)
	assert.Equal(t, "Z0EXISTING", cc.HostedZoneID)
}

func TestLookup_ReportsMissingOwnedResources(t *testing.T) {
	t.Parallel()
	cloud := &fakeCloud{}
	d := New(newTestClients(cloud), nopObserver{})
	cc := newClusterContext()

	missing, err := d.Lookup(context.Background(), cc)

	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestLookup_MissingClusterIsFatal(t *testing.T) {
	t.Parallel()
	clients := newTestClients(&fakeCloud{})
	clients.EKS = &awsplat.MockEKS{
		DescribeClusterFunc: func(_ context.Context, _ *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
			return nil, &ekstypes.ResourceNotFoundException{}
		},
	}
	d := New(clients, nopObserver{})

	_, err := d.Lookup(context.Background(), newClusterContext())

	var discErr *Error
	require.ErrorAs(t, err, &discErr)
	assert.Contains(t, discErr.Resource, "stack-dev")
}

func TestLookup_MissingNATGatewayIsFatal(t *testing.T) {
	t.Parallel()
	clients := newTestClients(&fakeCloud{})
	clients.EC2.(*awsplat.MockEC2).DescribeNatGatewaysFunc = func(_ context.Context, _ *ec2.DescribeNatGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
		return &ec2.DescribeNatGatewaysOutput{}, nil
	}
	d := New(clients, nopObserver{})

	_, err := d.Lookup(context.Background(), newClusterContext())

	var discErr *Error
	require.ErrorAs(t, err, &discErr)
	assert.Contains(t, discErr.Resource, "NAT gateway")
}

func TestDiscover_CreatesOwnedResources(t *testing.T) {
	t.Parallel()
	cloud := &fakeCloud{}
	d := New(newTestClients(cloud), nopObserver{})
	cc := newClusterContext()

	err := d.Discover(context.Background(), cc)

	require.NoError(t, err)
	assert.Equal(t, 1, cloud.createdSecurityGroups)
	assert.Equal(t, 1, cloud.createdHostedZones)
	assert.Equal(t, "sg-created", cc.SecurityGroupID)
	assert.Equal(t, "Z0CREATED", cc.HostedZoneID)
}

func TestDiscover_IsIdempotent(t *testing.T) {
	t.Parallel()
	cloud := &fakeCloud{securityGroupID: "sg-existing", hostedZoneID: "Z0EXISTING"}
	d := New(newTestClients(cloud), nopObserver{})
	cc := newClusterContext()

	require.NoError(t, d.Discover(context.Background(), cc))
	require.NoError(t, d.Discover(context.Background(), cc))

	assert.Zero(t, cloud.createdSecurityGroups)
	assert.Zero(t, cloud.createdHostedZones)
}

func TestCreateOwned_RecoversFromConcurrentCreate(t *testing.T) {
	t.Parallel()
	cloud := &fakeCloud{hostedZoneID: "Z0EXISTING"}
	clients := newTestClients(cloud)
	clients.EC2.(*awsplat.MockEC2).CreateSecurityGroupFunc = func(_ context.Context, _ *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
		// Another run created it between lookup and create.
		cloud.securityGroupID = "sg-other-run"
		return nil, &smithy.GenericAPIError{Code: "InvalidGroup.Duplicate", Message: "duplicate"}
	}
	d := New(clients, nopObserver{})
	cc := newClusterContext()

	_, err := d.Lookup(context.Background(), cc)
	require.NoError(t, err)
	require.NoError(t, d.CreateOwned(context.Background(), cc))

	assert.Equal(t, "sg-other-run", cc.SecurityGroupID)
}

func TestLookup_WrapsUnexpectedErrors(t *testing.T) {
	t.Parallel()
	clients := newTestClients(&fakeCloud{})
	clients.STS = &awsplat.MockSTS{
		GetCallerIdentityFunc: func(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, fmt.Errorf("credentials expired")
		},
	}
	d := New(clients, nopObserver{})

	_, err := d.Lookup(context.Background(), newClusterContext())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "account identity")
}
