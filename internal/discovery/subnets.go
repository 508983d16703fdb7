package discovery

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// PartitionSubnets splits the VPC subnets into private and public buckets
// keyed by availability-zone suffix (a, b, c). A subnet that maps a public
// IP on launch routes through the internet gateway and is public; everything
// else is private. Each subnet belongs to exactly one zone and one
// visibility class, so the partition is exhaustive and disjoint.
func PartitionSubnets(subnets []ec2types.Subnet) (private, public map[string]string) {
	private = make(map[string]string)
	public = make(map[string]string)

	for _, subnet := range subnets {
		az := aws.ToString(subnet.AvailabilityZone)
		id := aws.ToString(subnet.SubnetId)
		if az == "" || id == "" {
			continue
		}
		suffix := az[len(az)-1:]

		if aws.ToBool(subnet.MapPublicIpOnLaunch) {
			public[suffix] = id
		} else {
			private[suffix] = id
		}
	}

	return private, public
}
