package config

import (
	"bufio"
	"fmt"
	"os"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

var credentialRe = regexp.MustCompile(`\s*(aws_access_key_id|aws_secret_access_key)\s*=\s*(\S+)\s*`)

// ReadCredentials extracts an access key pair from an AWS credentials file
// and returns it as a static credential provider. Profile sections are not
// interpreted; the last value seen for each key wins.
func ReadCredentials(file string) (aws.CredentialsProvider, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keyID := ""
	secret := ""

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		match := credentialRe.FindStringSubmatch(scanner.Text())
		if len(match) != 3 {
			continue
		}
		switch match[1] {
		case "aws_access_key_id":
			keyID = match[2]
		case "aws_secret_access_key":
			secret = match[2]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if keyID == "" {
		return nil, fmt.Errorf("invalid AWS credentials in %s: missing 'aws_access_key_id'", file)
	}
	if secret == "" {
		return nil, fmt.Errorf("invalid AWS credentials in %s: missing 'aws_secret_access_key'", file)
	}

	return credentials.NewStaticCredentialsProvider(keyID, secret, ""), nil
}
