package provision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// apiError builds the service error shape the SDK surfaces, wrapped the
// way operation errors arrive at callers.
func apiError(code, message string) error {
	return fmt.Errorf("operation error: %w", &smithy.GenericAPIError{Code: code, Message: message})
}

func newTestProvisioner(s3c S3API, trails CloudTrailFactory) *Provisioner {
	return New(s3c, &fakeSTS{arn: "arn:aws:iam::123456789012:user/ops"}, trails, zap.NewNop().Sugar())
}

func fixedTrails(fakes map[string]*fakeTrail) CloudTrailFactory {
	return func(region string) CloudTrailAPI { return fakes[region] }
}

// -----------------------------------------------------------------------------
// In-memory S3
// -----------------------------------------------------------------------------

type fakeS3 struct {
	buckets  map[string]bool
	policies map[string]string
	objects  map[string][]types.Object
	bodies   map[string][]byte
	etags    map[string]string

	headErr      error
	getPolicyErr error

	created     []s3.CreateBucketInput
	putPolicies []string
	pageSize    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets:  map[string]bool{},
		policies: map[string]string{},
		objects:  map[string][]types.Object{},
		bodies:   map[string][]byte{},
		etags:    map[string]string{},
	}
}

func (f *fakeS3) HeadBucket(_ context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.buckets[aws.ToString(params.Bucket)] {
		return nil, apiError("NotFound", "bucket not found")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, params *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, *params)
	f.buckets[aws.ToString(params.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, params *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if f.getPolicyErr != nil {
		return nil, f.getPolicyErr
	}
	attached, ok := f.policies[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucketPolicy", "the bucket policy does not exist")
	}
	return &s3.GetBucketPolicyOutput{Policy: aws.String(attached)}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, params *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	f.policies[aws.ToString(params.Bucket)] = aws.ToString(params.Policy)
	f.putPolicies = append(f.putPolicies, aws.ToString(params.Policy))
	return &s3.PutBucketPolicyOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var matched []types.Object
	prefix := aws.ToString(params.Prefix)
	for _, obj := range f.objects[aws.ToString(params.Bucket)] {
		if strings.HasPrefix(aws.ToString(obj.Key), prefix) {
			matched = append(matched, obj)
		}
	}

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		start, _ = strconv.Atoi(token)
	}
	size := f.pageSize
	if size <= 0 {
		size = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	out := &s3.ListObjectsV2Output{
		Contents:    matched[start:end],
		IsTruncated: aws.Bool(end < len(matched)),
	}
	if end < len(matched) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	body, ok := f.bodies[key]
	if !ok {
		return nil, apiError("NoSuchKey", "the specified key does not exist")
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}
	if etag, ok := f.etags[key]; ok {
		out.ETag = aws.String(etag)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// In-memory CloudTrail, one per region
// -----------------------------------------------------------------------------

type fakeTrail struct {
	trails      []cttypes.Trail
	describeErr error

	described []cloudtrail.DescribeTrailsInput
	created   []cloudtrail.CreateTrailInput
	updated   []cloudtrail.UpdateTrailInput
	started   []string
}

func (f *fakeTrail) DescribeTrails(_ context.Context, params *cloudtrail.DescribeTrailsInput, _ ...func(*cloudtrail.Options)) (*cloudtrail.DescribeTrailsOutput, error) {
	f.described = append(f.described, *params)
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &cloudtrail.DescribeTrailsOutput{TrailList: f.trails}, nil
}

func (f *fakeTrail) CreateTrail(_ context.Context, params *cloudtrail.CreateTrailInput, _ ...func(*cloudtrail.Options)) (*cloudtrail.CreateTrailOutput, error) {
	f.created = append(f.created, *params)
	return &cloudtrail.CreateTrailOutput{Name: params.Name}, nil
}

func (f *fakeTrail) UpdateTrail(_ context.Context, params *cloudtrail.UpdateTrailInput, _ ...func(*cloudtrail.Options)) (*cloudtrail.UpdateTrailOutput, error) {
	f.updated = append(f.updated, *params)
	return &cloudtrail.UpdateTrailOutput{Name: params.Name}, nil
}

func (f *fakeTrail) StartLogging(_ context.Context, params *cloudtrail.StartLoggingInput, _ ...func(*cloudtrail.Options)) (*cloudtrail.StartLoggingOutput, error) {
	f.started = append(f.started, aws.ToString(params.Name))
	return &cloudtrail.StartLoggingOutput{}, nil
}

// -----------------------------------------------------------------------------
// STS
// -----------------------------------------------------------------------------

type fakeSTS struct {
	arn   string
	err   error
	calls int
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Arn: aws.String(f.arn)}, nil
}

// Ensure fakes satisfy the client interfaces.
var (
	_ S3API         = (*fakeS3)(nil)
	_ CloudTrailAPI = (*fakeTrail)(nil)
	_ STSAPI        = (*fakeSTS)(nil)
)
