// Command trailkeeper points CloudTrail at an S3 archive bucket: it
// ensures the bucket exists, attaches the delivery policy to it, and
// enables a logging trail in every region CloudTrail is available in.
//
// Run with: trailkeeper --bucket your-archive-bucket
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	"github.com/opsden/trailkeeper/internal/config"
	"github.com/opsden/trailkeeper/internal/logging"
	"github.com/opsden/trailkeeper/internal/provision"
	"github.com/opsden/trailkeeper/internal/regions"
	"github.com/opsden/trailkeeper/internal/version"
)

func main() {
	cfg := config.Load()

	var showVersion bool
	flag.StringVar(&cfg.Bucket, "b", cfg.Bucket, "S3 bucket CloudTrail logs are sent to, created when missing")
	flag.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "S3 bucket CloudTrail logs are sent to, created when missing")
	flag.StringVar(&cfg.Prefix, "p", cfg.Prefix, "prefix for the log path in the bucket")
	flag.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "prefix for the log path in the bucket")
	flag.StringVar(&cfg.Region, "region", cfg.Region, "home region for the bucket and API calls")
	flag.StringVar(&cfg.Credentials, "credentials", cfg.Credentials, "AWS credentials file, defaults to the SDK credential chain")
	flag.StringVar(&cfg.Regions, "regions", cfg.Regions, "comma-separated region override, defaults to every CloudTrail region")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flag.BoolVar(&cfg.Verify, "verify", cfg.Verify, "after provisioning, inspect the newest delivered log file")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s\n", config.App, version.Version)
		return
	}

	if cfg.Bucket == "" {
		usage()
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "\n   ERROR: %v\n\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s --bucket <name> [options]\n\n", config.App)
	fmt.Fprintln(os.Stderr, "Enables CloudTrail logging to an S3 bucket in every region.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	log := logging.New(cfg.LogLevel, cfg.Debug).With("run_id", uuid.NewString())
	defer func() { _ = log.Sync() }()

	log.Infow("starting", "app", config.App, "version", version.Version,
		"bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", cfg.Region)

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Credentials != "" {
		provider, err := config.ReadCredentials(cfg.Credentials)
		if err != nil {
			return err
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	trails := func(region string) provision.CloudTrailAPI {
		return cloudtrail.NewFromConfig(awsCfg, func(o *cloudtrail.Options) {
			o.Region = region
		})
	}
	p := provision.New(s3.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), trails, log)

	trailRegions := regions.Parse(cfg.Regions)
	if len(trailRegions) == 0 {
		trailRegions = regions.CloudTrail()
	}
	accountID, err := p.Provision(ctx, cfg.Bucket, cfg.Prefix, cfg.Region, trailRegions)
	if err != nil {
		return err
	}

	if cfg.Verify {
		delivery, err := p.VerifyDelivery(ctx, cfg.Bucket, cfg.Prefix, accountID)
		switch {
		case errors.Is(err, provision.ErrNoDelivery):
			log.Infow("no log files delivered yet, delivery can lag by several minutes",
				"bucket", cfg.Bucket)
		case err != nil:
			return err
		default:
			log.Infow("delivery verified", "key", delivery.Key,
				"records", delivery.Records, "delivered", delivery.Delivered,
				"regions", delivery.Regions)
		}
	}

	log.Infow("done", "regions", len(trailRegions))
	return nil
}
