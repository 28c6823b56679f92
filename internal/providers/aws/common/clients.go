package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSClient is the subset of STS operations used by the loader. Narrow
// per-service interfaces keep mocking in unit tests trivial: a struct that
// satisfies the interface and returns canned data is all a test needs.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// ClientSet holds the account-level clients shared by every collector.
// Service-specific clients (S3, EC2, IAM, ...) live with the collectors that
// use them.
type ClientSet struct {
	STS STSClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS: sts.NewFromConfig(cfg),
	}
}
