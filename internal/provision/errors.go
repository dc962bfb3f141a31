package provision

import (
	"errors"

	"github.com/aws/smithy-go"
)

// hasAPICode reports whether err is an AWS API error carrying one of the
// given error codes.
func hasAPICode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

// isBucketNotFound matches the responses S3 produces when a bucket does
// not exist. HeadBucket reports NotFound, other backends NoSuchBucket.
func isBucketNotFound(err error) bool {
	return hasAPICode(err, "NotFound", "NoSuchBucket")
}

// isNoBucketPolicy matches the response for a bucket that has no policy
// attached.
func isNoBucketPolicy(err error) bool {
	return hasAPICode(err, "NoSuchBucketPolicy")
}
