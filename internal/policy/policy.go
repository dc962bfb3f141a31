// Package policy builds the S3 bucket policy that authorizes CloudTrail
// log delivery, merging it idempotently with whatever policy the bucket
// already carries.
package policy

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version is the policy language version stamped on every composed document.
const Version = "2012-10-17"

// Statement identifiers for the two statements this package manages. Any
// existing statement whose Sid begins with one of the unversioned prefixes
// is considered ours and is replaced during a merge, so older revisions
// with different date suffixes are cleaned up too.
const (
	SidAclCheck = "AWSCloudTrailAclCheck20131101"
	SidWrite    = "AWSCloudTrailWrite20131101"

	sidPrefixAclCheck = "AWSCloudTrailAclCheck"
	sidPrefixWrite    = "AWSCloudTrailWrite"
)

// trailAccounts are the per-region AWS accounts CloudTrail delivers log
// files from, per the CloudTrail bucket policy documentation.
var trailAccounts = []string{
	"arn:aws:iam::903692715234:root",
	"arn:aws:iam::859597730677:root",
	"arn:aws:iam::814480443879:root",
	"arn:aws:iam::216624486486:root",
	"arn:aws:iam::086441151436:root",
	"arn:aws:iam::388731089494:root",
	"arn:aws:iam::284668455005:root",
	"arn:aws:iam::113285607260:root",
	"arn:aws:iam::035351147821:root",
}

// TrailAccounts returns the CloudTrail delivery account principals.
func TrailAccounts() []string {
	accounts := make([]string, len(trailAccounts))
	copy(accounts, trailAccounts)
	return accounts
}

// -----------------------------------------------------------------------------
// Document model
// -----------------------------------------------------------------------------

// Document is a bucket policy document. Statements carried over from an
// existing policy stay raw so their content survives a merge unchanged.
type Document struct {
	Version   string                `json:"Version"`
	Statement []jsoniter.RawMessage `json:"Statement"`
}

// Statement is one of the policy statements this package generates.
type Statement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal Principal                    `json:"Principal"`
	Action    string                       `json:"Action"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

// Principal identifies the AWS accounts a statement applies to.
type Principal struct {
	AWS []string `json:"AWS"`
}

// Encode renders the document as indented JSON, the form S3 accepts for
// PutBucketPolicy.
func (d *Document) Encode() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	return string(data), nil
}

// -----------------------------------------------------------------------------
// Generated statements
// -----------------------------------------------------------------------------

// AclCheckStatement grants CloudTrail permission to read the bucket ACL
// before delivering log files.
func AclCheckStatement(bucket string) Statement {
	return Statement{
		Sid:       SidAclCheck,
		Effect:    "Allow",
		Principal: Principal{AWS: TrailAccounts()},
		Action:    "s3:GetBucketAcl",
		Resource:  fmt.Sprintf("arn:aws:s3:::%s", bucket),
	}
}

// WriteStatement grants CloudTrail permission to put log files under the
// account's AWSLogs key space, requiring bucket-owner-full-control so the
// bucket owner keeps access to delivered objects.
//
// The prefix is appended to the bucket name verbatim. Callers that want a
// key prefix inside the bucket must pass it with a leading slash.
func WriteStatement(bucket, prefix, accountID string) Statement {
	return Statement{
		Sid:       SidWrite,
		Effect:    "Allow",
		Principal: Principal{AWS: TrailAccounts()},
		Action:    "s3:PutObject",
		Resource:  fmt.Sprintf("arn:aws:s3:::%s%s/AWSLogs/%s/*", bucket, prefix, accountID),
		Condition: map[string]map[string]string{
			"StringEquals": {"s3:x-amz-acl": "bucket-owner-full-control"},
		},
	}
}

// -----------------------------------------------------------------------------
// Merge
// -----------------------------------------------------------------------------

// Merge reports what Compose did with the statements of an existing policy.
type Merge struct {
	// Kept lists the Sids of statements carried over unchanged. A statement
	// with no Sid is reported as the empty string.
	Kept []string

	// Replaced lists the Sids of statements stripped in favor of the
	// freshly generated CloudTrail statements.
	Replaced []string
}

// Compose merges the CloudTrail statements into an existing policy document.
//
// Statements owned by this tool, identified by Sid prefix, are dropped and
// regenerated. All other statements are carried over with their content
// unchanged. Passing an empty existing policy composes a fresh document.
// Composing the output again yields the identical document.
func Compose(existing []byte, bucket, prefix, accountID string) (*Document, Merge, error) {
	doc := &Document{Version: Version, Statement: []jsoniter.RawMessage{}}
	var merge Merge

	if len(existing) > 0 {
		var prior Document
		if err := json.Unmarshal(existing, &prior); err != nil {
			return nil, Merge{}, fmt.Errorf("failed to parse existing bucket policy: %w", err)
		}
		for _, raw := range prior.Statement {
			sid := statementSid(raw)
			if ownsSid(sid) {
				merge.Replaced = append(merge.Replaced, sid)
				continue
			}
			merge.Kept = append(merge.Kept, sid)
			doc.Statement = append(doc.Statement, raw)
		}
	}

	for _, generated := range []Statement{
		AclCheckStatement(bucket),
		WriteStatement(bucket, prefix, accountID),
	} {
		data, err := json.Marshal(generated)
		if err != nil {
			return nil, Merge{}, fmt.Errorf("failed to encode %s statement: %w", generated.Sid, err)
		}
		doc.Statement = append(doc.Statement, jsoniter.RawMessage(data))
	}

	return doc, merge, nil
}

// ownsSid reports whether a statement Sid marks a statement managed by
// this tool.
func ownsSid(sid string) bool {
	return strings.HasPrefix(sid, sidPrefixAclCheck) || strings.HasPrefix(sid, sidPrefixWrite)
}

// statementSid extracts the Sid of a raw statement. Statements without a
// Sid, or with one that is not a string, yield the empty string and are
// treated as foreign.
func statementSid(raw jsoniter.RawMessage) string {
	var stmt struct {
		Sid string `json:"Sid"`
	}
	if err := json.Unmarshal(raw, &stmt); err != nil {
		return ""
	}
	return stmt.Sid
}
