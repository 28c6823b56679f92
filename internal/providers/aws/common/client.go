package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. Posture collection operates on one
// ProfileConfig at a time.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the region all service calls for this profile are made in.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients scoped to Region.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations. It is the sole entry point for
// AWS credential management across the provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string for the default profile and an empty region to
	// keep the region configured on the profile.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// ConfigForRegion clones cfg's SDK config with the target region set.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config
}
