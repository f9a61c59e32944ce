package awsiot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

func TestPresignAppendsSessionToken(t *testing.T) {
	creds := credentials.NewStaticCredentialsProvider("AKID", "SECRET", "TOKEN/with+chars")
	p := NewPresigner("abc-ats.iot.us-east-1.amazonaws.com", "us-east-1", creds)
	p.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	u, err := p.Presign(context.Background())
	if err != nil {
		t.Fatalf("Presign() error = %v", err)
	}

	if u.Scheme != "wss" || u.Host != "abc-ats.iot.us-east-1.amazonaws.com" || u.Path != "/mqtt" {
		t.Errorf("unexpected url %s", u)
	}
	q := u.Query()
	if q.Get("X-Amz-Security-Token") != "TOKEN/with+chars" {
		t.Errorf("session token = %q", q.Get("X-Amz-Security-Token"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Error("missing signature")
	}
	if !strings.Contains(q.Get("X-Amz-Credential"), "/us-east-1/iotdevicegateway/aws4_request") {
		t.Errorf("credential scope = %q", q.Get("X-Amz-Credential"))
	}
	if q.Get("X-Amz-Date") != "20240101T000000Z" {
		t.Errorf("date = %q", q.Get("X-Amz-Date"))
	}
}

type failingProvider struct{}

func (failingProvider) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{}, errors.New("no identity")
}

func TestPresignCredentialError(t *testing.T) {
	p := NewPresigner("host", "us-east-1", failingProvider{})
	if _, err := p.Presign(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBrokerURL(t *testing.T) {
	p := &Presigner{Endpoint: "example.iot"}
	if got := p.BrokerURL().String(); got != "wss://example.iot/mqtt" {
		t.Errorf("BrokerURL() = %q", got)
	}
}

