// Package awssecurity provides the built-in AWS security gate policy.
// It covers the baseline posture checks for the resources the posture
// collector produces: S3 buckets, security groups, IAM users, RDS instances,
// and load balancers.
//
// Convention: every built-in policy lives in internal/policypacks/<domain>/pack.go
// and exposes a single New() func returning a compiled *policy.Policy.
package awssecurity

import (
	"github.com/secgate-io/secgate/internal/condition"
	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/policy"
)

// New returns the built-in AWS security policy.
func New() *policy.Policy {
	return policy.MustCompile(&policy.Document{
		Version: policy.SupportedVersion,
		Name:    "aws-security-baseline",
		Rules: []policy.RuleSpec{
			{
				ID:          "s3-public-bucket",
				Description: "S3 bucket policy allows public access",
				Category:    models.CategoryAccessControl,
				Severity:    models.SeverityCritical,
				Weight:      50,
				Critical:    true,
				Priority:    100,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "s3_bucket"},
						{Attribute: "resource.public", Operator: condition.OpEqual, Value: true},
					},
				},
			},
			{
				ID:          "s3-unencrypted-bucket",
				Description: "S3 bucket has no default server-side encryption",
				Category:    models.CategoryEncryption,
				Severity:    models.SeverityHigh,
				Weight:      25,
				Priority:    80,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "s3_bucket"},
						{Attribute: "resource.encryption_enabled", Operator: condition.OpEqual, Value: false},
					},
				},
			},
			{
				ID:          "sg-open-ssh",
				Description: "Security group exposes SSH to the internet",
				Category:    models.CategoryNetwork,
				Severity:    models.SeverityCritical,
				Weight:      50,
				Critical:    true,
				Priority:    100,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "security_group"},
						{Attribute: "resource.open_ports", Operator: condition.OpContains, Value: 22},
					},
				},
			},
			{
				ID:          "sg-open-to-world",
				Description: "Security group allows inbound traffic from any address",
				Category:    models.CategoryNetwork,
				Severity:    models.SeverityHigh,
				Weight:      25,
				Priority:    80,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "security_group"},
						{Attribute: "resource.open_to_world", Operator: condition.OpEqual, Value: true},
					},
				},
			},
			{
				ID:          "iam-console-user-without-mfa",
				Description: "IAM user with console access has no MFA device",
				Category:    models.CategoryAccessControl,
				Severity:    models.SeverityHigh,
				Weight:      30,
				Priority:    80,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "iam_user"},
						{Attribute: "resource.has_login_profile", Operator: condition.OpEqual, Value: true},
						{Attribute: "resource.mfa_enabled", Operator: condition.OpEqual, Value: false},
					},
				},
			},
			{
				ID:          "rds-unencrypted-storage",
				Description: "RDS instance storage is not encrypted at rest",
				Category:    models.CategoryEncryption,
				Severity:    models.SeverityHigh,
				Weight:      30,
				Priority:    80,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "rds_instance"},
						{Attribute: "resource.storage_encrypted", Operator: condition.OpEqual, Value: false},
					},
				},
			},
			{
				ID:          "rds-publicly-accessible",
				Description: "RDS instance is reachable from the public internet",
				Category:    models.CategoryNetwork,
				Severity:    models.SeverityCritical,
				Weight:      50,
				Critical:    true,
				Priority:    100,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "rds_instance"},
						{Attribute: "resource.publicly_accessible", Operator: condition.OpEqual, Value: true},
					},
				},
			},
			{
				ID:          "elb-insecure-listeners",
				Description: "Internet-facing load balancer accepts non-TLS traffic",
				Category:    models.CategoryNetwork,
				Severity:    models.SeverityMedium,
				Weight:      15,
				Priority:    60,
				Condition: condition.Condition{
					All: []condition.Condition{
						{Attribute: "resource.type", Operator: condition.OpEqual, Value: "load_balancer"},
						{Attribute: "resource.scheme", Operator: condition.OpEqual, Value: "internet-facing"},
						{Attribute: "resource.https_only", Operator: condition.OpEqual, Value: false},
					},
				},
			},
		},
	})
}
