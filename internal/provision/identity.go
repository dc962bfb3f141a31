package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ResolveAccountID returns the AWS account ID of the acting credentials,
// taken from the caller identity ARN.
func ResolveAccountID(ctx context.Context, api STSAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	caller := aws.ToString(out.Arn)
	parsed, err := arn.Parse(caller)
	if err != nil {
		return "", fmt.Errorf("failed to parse caller ARN %q: %w", caller, err)
	}
	return parsed.AccountID, nil
}
