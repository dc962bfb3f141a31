package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
)

// EnsureTrail makes sure the given region has a trail delivering to the
// bucket, then starts logging on it. The first trail homed in the region
// is updated in place; a region with none gets a new trail named Default.
// Shadow copies of multi-region trails are not considered.
func (p *Provisioner) EnsureTrail(ctx context.Context, region, bucket, prefix string) error {
	client := p.trails(region)

	described, err := client.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{
		IncludeShadowTrails: aws.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("failed to describe trails in %s: %w", region, err)
	}

	var name string
	if len(described.TrailList) == 0 {
		name = DefaultTrailName
		p.log.Infow("no trail in region, creating", "region", region, "trail", name)
		if _, err := client.CreateTrail(ctx, &cloudtrail.CreateTrailInput{
			Name:                       aws.String(name),
			S3BucketName:               aws.String(bucket),
			S3KeyPrefix:                aws.String(prefix),
			IncludeGlobalServiceEvents: aws.Bool(true),
		}); err != nil {
			return fmt.Errorf("failed to create trail %s in %s: %w", name, region, err)
		}
	} else {
		name = aws.ToString(described.TrailList[0].Name)
		p.log.Infow("updating existing trail", "region", region, "trail", name)
		if _, err := client.UpdateTrail(ctx, &cloudtrail.UpdateTrailInput{
			Name:                       aws.String(name),
			S3BucketName:               aws.String(bucket),
			S3KeyPrefix:                aws.String(prefix),
			IncludeGlobalServiceEvents: aws.Bool(true),
		}); err != nil {
			return fmt.Errorf("failed to update trail %s in %s: %w", name, region, err)
		}
	}

	if _, err := client.StartLogging(ctx, &cloudtrail.StartLoggingInput{
		Name: aws.String(name),
	}); err != nil {
		return fmt.Errorf("failed to start logging for trail %s in %s: %w", name, region, err)
	}
	return nil
}

// EnsureTrails runs EnsureTrail across the given regions in order,
// stopping at the first failure.
func (p *Provisioner) EnsureTrails(ctx context.Context, regionNames []string, bucket, prefix string) error {
	for _, region := range regionNames {
		p.log.Infow("ensuring cloudtrail delivery",
			"region", region, "destination", bucket+prefix)
		if err := p.EnsureTrail(ctx, region, bucket, prefix); err != nil {
			return err
		}
	}
	return nil
}
