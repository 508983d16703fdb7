package discovery

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
)

func subnet(id, az string, public bool) ec2types.Subnet {
	return ec2types.Subnet{
		SubnetId:            awssdk.String(id),
		AvailabilityZone:    awssdk.String(az),
		MapPublicIpOnLaunch: awssdk.Bool(public),
	}
}

func TestPartitionSubnets(t *testing.T) {
	t.Parallel()

	private, public := PartitionSubnets([]ec2types.Subnet{
		subnet("subnet-priv-a", "us-east-1a", false),
		subnet("subnet-priv-b", "us-east-1b", false),
		subnet("subnet-priv-c", "us-east-1c", false),
		subnet("subnet-pub-a", "us-east-1a", true),
		subnet("subnet-pub-b", "us-east-1b", true),
	})

	assert.Equal(t, map[string]string{
		"a": "subnet-priv-a",
		"b": "subnet-priv-b",
		"c": "subnet-priv-c",
	}, private)
	assert.Equal(t, map[string]string{
		"a": "subnet-pub-a",
		"b": "subnet-pub-b",
	}, public)
}

func TestPartitionSubnets_TwoZoneVPC(t *testing.T) {
	t.Parallel()

	private, public := PartitionSubnets([]ec2types.Subnet{
		subnet("subnet-priv-a", "eu-west-1a", false),
		subnet("subnet-priv-b", "eu-west-1b", false),
	})

	assert.Len(t, private, 2)
	assert.Empty(t, public)
	assert.Empty(t, private["c"])
}

func TestPartitionSubnets_SkipsIncompleteEntries(t *testing.T) {
	t.Parallel()

	private, public := PartitionSubnets([]ec2types.Subnet{
		{SubnetId: awssdk.String("subnet-no-az")},
		{AvailabilityZone: awssdk.String("us-east-1a")},
		subnet("subnet-ok", "us-east-1b", false),
	})

	assert.Equal(t, map[string]string{"b": "subnet-ok"}, private)
	assert.Empty(t, public)
}

func TestPartitionSubnets_Empty(t *testing.T) {
	t.Parallel()

	private, public := PartitionSubnets(nil)

	assert.NotNil(t, private)
	assert.NotNil(t, public)
	assert.Empty(t, private)
	assert.Empty(t, public)
}
