package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoDelivery indicates the delivery prefix holds no log files yet.
// Expected for several minutes after a trail starts, so callers treat it
// as a condition to report rather than a failure.
var ErrNoDelivery = errors.New("no log files delivered yet")

// Delivery describes what a verification scan found.
type Delivery struct {
	// Key is the object key of the newest log file.
	Key string

	// Records is the number of events in that file.
	Records int

	// Delivered is when CloudTrail wrote the file.
	Delivered time.Time

	// Regions lists the regions that have delivered at least one file,
	// sorted by name.
	Regions []string
}

// DeliveryPrefix returns the key prefix CloudTrail delivers log files
// under for the given account. A configured trail prefix nests the
// AWSLogs tree beneath it; a leading slash on the prefix is dropped
// since S3 keys carry none.
func DeliveryPrefix(prefix, accountID string) string {
	base := fmt.Sprintf("AWSLogs/%s/CloudTrail/", accountID)
	if prefix == "" {
		return base
	}
	return strings.TrimPrefix(prefix, "/") + "/" + base
}

// VerifyDelivery scans the delivery prefix for the newest CloudTrail log
// file, decodes it, and checks its content against the object ETag. It
// reports an error when no log files have arrived, which is expected for
// several minutes after a trail starts.
func (p *Provisioner) VerifyDelivery(ctx context.Context, bucket, prefix, accountID string) (Delivery, error) {
	keyPrefix := DeliveryPrefix(prefix, accountID)
	p.log.Infow("scanning for delivered log files", "bucket", bucket, "prefix", keyPrefix)

	var (
		newestKey string
		newestAt  time.Time
	)
	seen := map[string]bool{}
	paginator := s3.NewListObjectsV2Paginator(p.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Delivery{}, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, keyPrefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if region := deliveryRegion(aws.ToString(obj.Key), keyPrefix); region != "" {
				seen[region] = true
			}
			if newestKey == "" || obj.LastModified.After(newestAt) {
				newestKey = aws.ToString(obj.Key)
				newestAt = *obj.LastModified
			}
		}
	}
	if newestKey == "" {
		return Delivery{}, fmt.Errorf("s3://%s/%s: %w", bucket, keyPrefix, ErrNoDelivery)
	}

	out, err := p.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(newestKey),
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to fetch log file %s: %w", newestKey, err)
	}
	defer func() { _ = out.Body.Close() }()

	body := newChecksumReader(out.Body)
	records, err := countRecords(body)
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to read log file %s: %w", newestKey, err)
	}
	// Drain so the checksum covers the whole object.
	if _, err := io.Copy(io.Discard, body); err != nil {
		return Delivery{}, fmt.Errorf("failed to read log file %s: %w", newestKey, err)
	}
	if etag := strings.Trim(aws.ToString(out.ETag), `"`); isMD5ETag(etag) && !strings.EqualFold(etag, body.Sum()) {
		return Delivery{}, fmt.Errorf("log file %s does not match its etag", newestKey)
	}

	regionNames := make([]string, 0, len(seen))
	for region := range seen {
		regionNames = append(regionNames, region)
	}
	sort.Strings(regionNames)

	return Delivery{Key: newestKey, Records: records, Delivered: newestAt, Regions: regionNames}, nil
}

// deliveryRegion extracts the region segment of a delivered log key,
// which CloudTrail lays out as <prefix><region>/<yyyy>/<mm>/<dd>/<file>.
func deliveryRegion(key, keyPrefix string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	region, _, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return region
}

// countRecords decompresses a delivered log file and counts the events
// in its Records array.
func countRecords(r io.Reader) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var payload struct {
		Records []jsoniter.RawMessage `json:"Records"`
	}
	if err := json.NewDecoder(gz).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode log payload: %w", err)
	}
	return len(payload.Records), nil
}
