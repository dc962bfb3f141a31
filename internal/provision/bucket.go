package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// EnsureBucket verifies the archive bucket exists and creates it in the
// given region when the lookup reports it missing. Any other lookup
// failure is returned as-is.
func (p *Provisioner) EnsureBucket(ctx context.Context, bucket, region string) error {
	_, err := p.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		p.log.Infow("bucket exists", "bucket", bucket)
		return nil
	}
	if !isBucketNotFound(err) {
		return fmt.Errorf("failed to look up bucket %s: %w", bucket, err)
	}

	p.log.Infow("bucket does not exist, creating", "bucket", bucket, "region", region)

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint.
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := p.s3.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}
