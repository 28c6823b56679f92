package posture

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3APIClient is the narrow S3 interface used by the posture collector.
// It covers bucket listing, policy status inspection, and encryption status.
type s3APIClient interface {
	ListBuckets(ctx context.Context, params *s3svc.ListBucketsInput, optFns ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error)
	GetBucketPolicyStatus(ctx context.Context, params *s3svc.GetBucketPolicyStatusInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyStatusOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3svc.GetBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error)
}

// ec2APIClient is the narrow EC2 interface used for security group collection.
type ec2APIClient interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2svc.DescribeSecurityGroupsInput, optFns ...func(*ec2svc.Options)) (*ec2svc.DescribeSecurityGroupsOutput, error)
}

// iamAPIClient is the narrow IAM interface used for user collection. It
// embeds ListUsersAPIClient so the SDK paginator can be used directly.
type iamAPIClient interface {
	iamsvc.ListUsersAPIClient
	ListMFADevices(ctx context.Context, params *iamsvc.ListMFADevicesInput, optFns ...func(*iamsvc.Options)) (*iamsvc.ListMFADevicesOutput, error)
	GetLoginProfile(ctx context.Context, params *iamsvc.GetLoginProfileInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetLoginProfileOutput, error)
}

// rdsAPIClient is the narrow RDS interface used for instance collection.
type rdsAPIClient interface {
	DescribeDBInstances(ctx context.Context, params *rdssvc.DescribeDBInstancesInput, optFns ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error)
}

// elbAPIClient is the narrow ELBv2 interface used for load balancer
// collection. DescribeListeners is needed to check listener protocols.
type elbAPIClient interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2svc.DescribeLoadBalancersInput, optFns ...func(*elbv2svc.Options)) (*elbv2svc.DescribeLoadBalancersOutput, error)
	DescribeListeners(ctx context.Context, params *elbv2svc.DescribeListenersInput, optFns ...func(*elbv2svc.Options)) (*elbv2svc.DescribeListenersOutput, error)
}

// postureClients bundles all AWS service clients used by the collector.
type postureClients struct {
	S3    s3APIClient
	EC2   ec2APIClient
	IAM   iamAPIClient
	RDS   rdsAPIClient
	ELBv2 elbAPIClient
}

// postureClientFactory creates postureClients from an AWS config.
// Injection point: tests replace this with a function returning fake clients.
type postureClientFactory func(cfg aws.Config) *postureClients

// newDefaultPostureClients creates production AWS SDK clients from cfg.
func newDefaultPostureClients(cfg aws.Config) *postureClients {
	return &postureClients{
		S3:    s3svc.NewFromConfig(cfg),
		EC2:   ec2svc.NewFromConfig(cfg),
		IAM:   iamsvc.NewFromConfig(cfg),
		RDS:   rdssvc.NewFromConfig(cfg),
		ELBv2: elbv2svc.NewFromConfig(cfg),
	}
}
