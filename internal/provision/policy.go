package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/opsden/trailkeeper/internal/policy"
)

// EnsureBucketPolicy merges the CloudTrail delivery statements into the
// bucket's policy and writes the result back. A bucket without a policy
// gets a fresh one. Statements not owned by this tool are carried over
// unchanged, so running the step again leaves the policy as it was.
func (p *Provisioner) EnsureBucketPolicy(ctx context.Context, bucket, prefix, accountID string) error {
	var existing []byte
	out, err := p.s3.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		existing = []byte(aws.ToString(out.Policy))
		p.log.Infow("existing bucket policy found", "bucket", bucket)
	case isNoBucketPolicy(err):
		p.log.Infow("bucket has no policy attached", "bucket", bucket)
	default:
		return fmt.Errorf("failed to fetch policy for bucket %s: %w", bucket, err)
	}

	doc, merge, err := policy.Compose(existing, bucket, prefix, accountID)
	if err != nil {
		return err
	}
	for _, sid := range merge.Kept {
		p.log.Infow("maintaining policy statement", "sid", sid)
	}
	for _, sid := range merge.Replaced {
		p.log.Infow("stripping policy statement", "sid", sid)
	}
	p.log.Infow("adding cloudtrail policy statements",
		"bucket", bucket, "sids", []string{policy.SidAclCheck, policy.SidWrite})

	encoded, err := doc.Encode()
	if err != nil {
		return err
	}
	if _, err := p.s3.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(encoded),
	}); err != nil {
		return fmt.Errorf("failed to put policy on bucket %s: %w", bucket, err)
	}
	return nil
}
