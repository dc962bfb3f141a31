package provision

import (
	"context"
	"errors"
	"testing"
)

func TestResolveAccountID_User(t *testing.T) {
	api := &fakeSTS{arn: "arn:aws:iam::123456789012:user/deployer"}

	got, err := ResolveAccountID(context.Background(), api)
	if err != nil {
		t.Fatalf("ResolveAccountID() error: %v", err)
	}
	if got != "123456789012" {
		t.Errorf("account = %q, want 123456789012", got)
	}
}

func TestResolveAccountID_AssumedRole(t *testing.T) {
	api := &fakeSTS{arn: "arn:aws:sts::210987654321:assumed-role/ops/session"}

	got, err := ResolveAccountID(context.Background(), api)
	if err != nil {
		t.Fatalf("ResolveAccountID() error: %v", err)
	}
	if got != "210987654321" {
		t.Errorf("account = %q, want 210987654321", got)
	}
}

func TestResolveAccountID_CallFails(t *testing.T) {
	api := &fakeSTS{err: errors.New("no credentials")}

	if _, err := ResolveAccountID(context.Background(), api); err == nil {
		t.Fatal("expected identity failure to propagate")
	}
}

func TestResolveAccountID_MalformedARN(t *testing.T) {
	api := &fakeSTS{arn: "not-an-arn"}

	if _, err := ResolveAccountID(context.Background(), api); err == nil {
		t.Fatal("expected malformed ARN to fail")
	}
}
