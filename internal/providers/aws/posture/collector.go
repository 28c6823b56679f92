// Package posture collects AWS resource state and turns each resource into
// an evaluation context. One context is produced per bucket, security group,
// IAM user, database instance, and load balancer, so the gate can score each
// resource independently.
package posture

import (
	"context"

	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/providers/aws/common"
)

// ContextCollector gathers AWS resource contexts for gate evaluation.
type ContextCollector interface {
	Collect(ctx context.Context, profile *common.ProfileConfig, provider common.AWSClientProvider) ([]*models.EvalContext, error)
}

// DefaultContextCollector is the production ContextCollector.
// S3 and IAM are global services and are collected against us-east-1;
// security groups, RDS instances, and load balancers are collected in the
// profile's region.
type DefaultContextCollector struct {
	factory postureClientFactory
}

// NewDefaultContextCollector returns a collector wired to production AWS SDK
// clients.
func NewDefaultContextCollector() *DefaultContextCollector {
	return &DefaultContextCollector{factory: newDefaultPostureClients}
}

// NewDefaultContextCollectorWithFactory returns a collector that uses the
// supplied factory, allowing tests to inject fake clients.
func NewDefaultContextCollectorWithFactory(f postureClientFactory) *DefaultContextCollector {
	return &DefaultContextCollector{factory: f}
}

// Collect gathers resource contexts for the given profile. Per-service
// failures are non-fatal: a service that cannot be listed contributes no
// contexts and the remaining services are still collected.
func (c *DefaultContextCollector) Collect(
	ctx context.Context,
	profile *common.ProfileConfig,
	provider common.AWSClientProvider,
) ([]*models.EvalContext, error) {
	// Global clients: us-east-1 is the canonical region for S3 and IAM.
	globalClients := c.factory(provider.ConfigForRegion(profile, "us-east-1"))
	regionalClients := c.factory(provider.ConfigForRegion(profile, profile.Region))

	base := contextBase{
		accountID: profile.AccountID,
		profile:   profile.ProfileName,
		region:    profile.Region,
	}

	var contexts []*models.EvalContext

	if ecs, err := collectS3Contexts(ctx, globalClients.S3, base); err == nil {
		contexts = append(contexts, ecs...)
	}
	if ecs, err := collectIAMContexts(ctx, globalClients.IAM, base); err == nil {
		contexts = append(contexts, ecs...)
	}
	if ecs, err := collectSecurityGroupContexts(ctx, regionalClients.EC2, base); err == nil {
		contexts = append(contexts, ecs...)
	}
	if ecs, err := collectRDSContexts(ctx, regionalClients.RDS, base); err == nil {
		contexts = append(contexts, ecs...)
	}
	if ecs, err := collectELBContexts(ctx, regionalClients.ELBv2, base); err == nil {
		contexts = append(contexts, ecs...)
	}

	return contexts, nil
}

// contextBase carries the account identity shared by every collected context.
type contextBase struct {
	accountID string
	profile   string
	region    string
}

// newContext builds an EvalContext skeleton with the shared subject and
// environment attributes filled in. Collectors add resource attributes.
func (b contextBase) newContext(name string, resource models.Attributes) *models.EvalContext {
	return &models.EvalContext{
		Name: name,
		Subject: models.Attributes{
			"account_id": b.accountID,
			"profile":    b.profile,
		},
		Resource: resource,
		Environment: models.Attributes{
			"provider":   "aws",
			"region":     b.region,
			"account_id": b.accountID,
		},
	}
}
