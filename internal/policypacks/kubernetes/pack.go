// Package kubernetes provides the built-in Kubernetes workload gate policy.
// It scores the pod contexts produced by the kubernetes collector against
// baseline workload security checks.
package kubernetes

import (
	"github.com/secgate-io/secgate/internal/condition"
	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/policy"
)

// New returns the built-in Kubernetes workload policy.
func New() *policy.Policy {
	return policy.MustCompile(&policy.Document{
		Version: policy.SupportedVersion,
		Name:    "kubernetes-workload-baseline",
		Rules: []policy.RuleSpec{
			{
				ID:          "pod-privileged-container",
				Description: "Pod runs at least one privileged container",
				Category:    models.CategoryAccessControl,
				Severity:    models.SeverityCritical,
				Weight:      50,
				Critical:    true,
				Priority:    100,
				Condition: condition.Condition{
					Attribute: "resource.privileged", Operator: condition.OpEqual, Value: true,
				},
			},
			{
				ID:          "pod-host-network",
				Description: "Pod shares the node network namespace",
				Category:    models.CategoryNetwork,
				Severity:    models.SeverityHigh,
				Weight:      30,
				Priority:    80,
				Condition: condition.Condition{
					Attribute: "resource.host_network", Operator: condition.OpEqual, Value: true,
				},
			},
			{
				ID:          "pod-host-pid",
				Description: "Pod shares the node PID namespace",
				Category:    models.CategoryAccessControl,
				Severity:    models.SeverityHigh,
				Weight:      30,
				Priority:    80,
				Condition: condition.Condition{
					Attribute: "resource.host_pid", Operator: condition.OpEqual, Value: true,
				},
			},
			{
				ID:          "pod-runs-as-root",
				Description: "Pod does not require containers to run as non-root",
				Category:    models.CategoryConfiguration,
				Severity:    models.SeverityMedium,
				Weight:      15,
				Priority:    60,
				Condition: condition.Condition{
					Attribute: "resource.run_as_non_root", Operator: condition.OpEqual, Value: false,
				},
			},
			{
				ID:          "pod-unpinned-image",
				Description: "Pod uses an image without a pinned tag",
				Category:    models.CategoryIntegrity,
				Severity:    models.SeverityMedium,
				Weight:      15,
				Priority:    60,
				Condition: condition.Condition{
					Attribute: "resource.latest_image", Operator: condition.OpEqual, Value: true,
				},
			},
			{
				ID:          "pod-workload-in-default-namespace",
				Description: "Pod runs in the default namespace",
				Category:    models.CategoryConfiguration,
				Severity:    models.SeverityLow,
				Weight:      5,
				Priority:    40,
				Condition: condition.Condition{
					Attribute: "resource.namespace", Operator: condition.OpEqual, Value: "default",
				},
			},
		},
	})
}
