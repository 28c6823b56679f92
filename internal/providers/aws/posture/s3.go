package posture

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/secgate-io/secgate/internal/models"
)

// collectS3Contexts lists all S3 buckets in the account and builds one
// context per bucket with its public-access status (GetBucketPolicyStatus)
// and whether default server-side encryption is configured.
func collectS3Contexts(ctx context.Context, client s3APIClient, base contextBase) ([]*models.EvalContext, error) {
	out, err := client.ListBuckets(ctx, &s3svc.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list S3 buckets: %w", err)
	}

	contexts := make([]*models.EvalContext, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		contexts = append(contexts, base.newContext("s3://"+name, models.Attributes{
			"type":               "s3_bucket",
			"name":               name,
			"public":             isBucketPublic(ctx, client, name),
			"encryption_enabled": isBucketEncryptionEnabled(ctx, client, name),
		}))
	}
	return contexts, nil
}

// isBucketPublic returns true only when GetBucketPolicyStatus reports the
// bucket's policy as public. Buckets without a bucket policy return a
// NoSuchBucketPolicy error, which is treated as not public. All other errors
// are also treated as not public to avoid false positives.
func isBucketPublic(ctx context.Context, client s3APIClient, name string) bool {
	out, err := client.GetBucketPolicyStatus(ctx, &s3svc.GetBucketPolicyStatusInput{
		Bucket: aws.String(name),
	})
	if err != nil || out.PolicyStatus == nil {
		return false
	}
	return aws.ToBool(out.PolicyStatus.IsPublic)
}

// isBucketEncryptionEnabled returns true when GetBucketEncryption returns a
// valid server-side encryption configuration for the bucket. A missing
// configuration or any other error is treated as "encryption not configured".
func isBucketEncryptionEnabled(ctx context.Context, client s3APIClient, name string) bool {
	_, err := client.GetBucketEncryption(ctx, &s3svc.GetBucketEncryptionInput{
		Bucket: aws.String(name),
	})
	return err == nil
}
