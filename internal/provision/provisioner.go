// Package provision drives the three provisioning steps against AWS:
// ensuring the archive bucket exists, attaching the CloudTrail delivery
// policy to it, and enabling a logging trail in every region.
//
// All AWS access goes through the narrow client interfaces in this
// package, so the steps can be exercised against fakes.
package provision

import (
	"context"

	"go.uber.org/zap"
)

// DefaultTrailName is the name given to trails created in regions that
// have none yet.
const DefaultTrailName = "Default"

// Provisioner runs the provisioning steps. The zero value is not usable,
// construct one with New.
type Provisioner struct {
	s3     S3API
	sts    STSAPI
	trails CloudTrailFactory
	log    *zap.SugaredLogger
}

// New creates a Provisioner using the given S3 and STS clients, a
// factory for region-homed CloudTrail clients, and a logger.
func New(s3c S3API, stsc STSAPI, trails CloudTrailFactory, log *zap.SugaredLogger) *Provisioner {
	return &Provisioner{s3: s3c, sts: stsc, trails: trails, log: log}
}

// Provision runs the full pipeline: ensure the archive bucket, attach
// its delivery policy, and enable a started trail in every region of
// trailRegions. The caller's account ID is resolved after the bucket
// step, used in the policy, and returned for later use.
func (p *Provisioner) Provision(ctx context.Context, bucket, prefix, region string, trailRegions []string) (string, error) {
	if err := p.EnsureBucket(ctx, bucket, region); err != nil {
		return "", err
	}

	accountID, err := ResolveAccountID(ctx, p.sts)
	if err != nil {
		return "", err
	}
	p.log.Infow("resolved caller account", "account", accountID)

	if err := p.EnsureBucketPolicy(ctx, bucket, prefix, accountID); err != nil {
		return "", err
	}
	if err := p.EnsureTrails(ctx, trailRegions, bucket, prefix); err != nil {
		return "", err
	}
	return accountID, nil
}
