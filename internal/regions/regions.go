// Package regions enumerates the AWS regions in which CloudTrail is
// available, using the SDK's bundled endpoint metadata so no network
// call is needed.
package regions

import (
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws/endpoints"
)

// CloudTrail returns the names of every region of the standard AWS
// partition that offers CloudTrail, sorted for a stable walk order.
func CloudTrail() []string {
	service, ok := endpoints.AwsPartition().Services()[endpoints.CloudtrailServiceID]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(service.Regions()))
	for name := range service.Regions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits a comma-separated region list, trimming whitespace and
// discarding empty entries. An all-empty list yields nil, which callers
// treat as no override.
func Parse(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
