package posture

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/secgate-io/secgate/internal/models"
)

// collectRDSContexts builds one context per RDS database instance in the
// region with its encryption, accessibility, and availability attributes.
func collectRDSContexts(ctx context.Context, client rdsAPIClient, base contextBase) ([]*models.EvalContext, error) {
	out, err := client.DescribeDBInstances(ctx, &rdssvc.DescribeDBInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe DB instances in %s: %w", base.region, err)
	}

	contexts := make([]*models.EvalContext, 0, len(out.DBInstances))
	for _, db := range out.DBInstances {
		id := aws.ToString(db.DBInstanceIdentifier)
		contexts = append(contexts, base.newContext("rds/"+id, models.Attributes{
			"type":                "rds_instance",
			"id":                  id,
			"engine":              aws.ToString(db.Engine),
			"storage_encrypted":   aws.ToBool(db.StorageEncrypted),
			"publicly_accessible": aws.ToBool(db.PubliclyAccessible),
			"multi_az":            aws.ToBool(db.MultiAZ),
		}))
	}
	return contexts, nil
}
