package posture

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/secgate-io/secgate/internal/models"
)

// collectELBContexts builds one context per load balancer in the region with
// its scheme and whether every listener terminates TLS. Listener lookups are
// non-fatal: when DescribeListeners fails the balancer is recorded with
// https_only false.
func collectELBContexts(ctx context.Context, client elbAPIClient, base contextBase) ([]*models.EvalContext, error) {
	out, err := client.DescribeLoadBalancers(ctx, &elbv2svc.DescribeLoadBalancersInput{})
	if err != nil {
		return nil, fmt.Errorf("describe load balancers in %s: %w", base.region, err)
	}

	contexts := make([]*models.EvalContext, 0, len(out.LoadBalancers))
	for _, lb := range out.LoadBalancers {
		name := aws.ToString(lb.LoadBalancerName)
		contexts = append(contexts, base.newContext("elb/"+name, models.Attributes{
			"type":       "load_balancer",
			"name":       name,
			"scheme":     string(lb.Scheme),
			"https_only": listenersAllSecure(ctx, client, aws.ToString(lb.LoadBalancerArn)),
		}))
	}
	return contexts, nil
}

// listenersAllSecure returns true when the balancer has at least one listener
// and every listener uses a TLS-terminating protocol (HTTPS or TLS).
func listenersAllSecure(ctx context.Context, client elbAPIClient, arn string) bool {
	out, err := client.DescribeListeners(ctx, &elbv2svc.DescribeListenersInput{
		LoadBalancerArn: aws.String(arn),
	})
	if err != nil || len(out.Listeners) == 0 {
		return false
	}
	for _, l := range out.Listeners {
		switch l.Protocol {
		case elbv2types.ProtocolEnumHttps, elbv2types.ProtocolEnumTls:
		default:
			return false
		}
	}
	return true
}
