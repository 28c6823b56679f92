package posture

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/secgate-io/secgate/internal/models"
)

// collectSecurityGroupContexts lists all EC2 security groups in the region
// and builds one context per group. A group is considered open to the world
// when any inbound rule allows 0.0.0.0/0 or ::/0; the ports those rules cover
// are recorded in open_ports.
func collectSecurityGroupContexts(ctx context.Context, client ec2APIClient, base contextBase) ([]*models.EvalContext, error) {
	out, err := client.DescribeSecurityGroups(ctx, &ec2svc.DescribeSecurityGroupsInput{})
	if err != nil {
		return nil, fmt.Errorf("describe security groups in %s: %w", base.region, err)
	}

	contexts := make([]*models.EvalContext, 0, len(out.SecurityGroups))
	for _, sg := range out.SecurityGroups {
		groupID := aws.ToString(sg.GroupId)

		var openPorts []any
		seen := map[int]bool{}
		for _, perm := range sg.IpPermissions {
			if !permitsWorld(perm) {
				continue
			}
			port := 0
			if perm.FromPort != nil {
				port = int(aws.ToInt32(perm.FromPort))
			}
			if !seen[port] {
				seen[port] = true
				openPorts = append(openPorts, port)
			}
		}

		contexts = append(contexts, base.newContext("sg/"+groupID, models.Attributes{
			"type":          "security_group",
			"id":            groupID,
			"name":          aws.ToString(sg.GroupName),
			"open_to_world": len(openPorts) > 0,
			"open_ports":    openPorts,
		}))
	}
	return contexts, nil
}

// permitsWorld reports whether an inbound permission includes an any-address
// CIDR range, IPv4 or IPv6.
func permitsWorld(perm ec2types.IpPermission) bool {
	for _, ipRange := range perm.IpRanges {
		if aws.ToString(ipRange.CidrIp) == "0.0.0.0/0" {
			return true
		}
	}
	for _, ipv6Range := range perm.Ipv6Ranges {
		if aws.ToString(ipv6Range.CidrIpv6) == "::/0" {
			return true
		}
	}
	return false
}
