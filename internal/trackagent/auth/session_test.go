package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity/types"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

type fakeIdentity struct {
	getIDCalls    int
	getCredsCalls int
	getIDErr      error
	getCredsErr   error
	expiry        time.Time
	regions       []string
}

func (f *fakeIdentity) factory(region string) IdentityAPI {
	f.regions = append(f.regions, region)
	return f
}

func (f *fakeIdentity) GetId(ctx context.Context, in *cognitoidentity.GetIdInput, _ ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error) {
	f.getIDCalls++
	if f.getIDErr != nil {
		return nil, f.getIDErr
	}
	return &cognitoidentity.GetIdOutput{IdentityId: aws.String("us-east-1:identity-" + aws.ToString(in.IdentityPoolId)[10:])}, nil
}

func (f *fakeIdentity) GetCredentialsForIdentity(ctx context.Context, in *cognitoidentity.GetCredentialsForIdentityInput, _ ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error) {
	f.getCredsCalls++
	if f.getCredsErr != nil {
		return nil, f.getCredsErr
	}
	return &cognitoidentity.GetCredentialsForIdentityOutput{
		IdentityId: in.IdentityId,
		Credentials: &types.Credentials{
			AccessKeyId:  aws.String("AKID"),
			SecretKey:    aws.String("SECRET"),
			SessionToken: aws.String("TOKEN"),
			Expiration:   aws.Time(f.expiry),
		},
	}, nil
}

func TestAuthenticateRejectsBlankPool(t *testing.T) {
	for _, pool := range []string{"", "   ", "\t\n"} {
		f := &fakeIdentity{}
		s := NewSession(f.factory)
		_, err := s.Authenticate(context.Background(), pool)
		if !errors.Is(err, core.ErrConfiguration) {
			t.Errorf("Authenticate(%q) error = %v, want configuration error", pool, err)
		}
		if f.getIDCalls+f.getCredsCalls != 0 {
			t.Errorf("Authenticate(%q) made network calls", pool)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeIdentity{expiry: now.Add(time.Hour)}
	s := NewSession(f.factory)
	s.now = func() time.Time { return now }

	creds, err := s.Authenticate(context.Background(), " us-east-1:pool-1 ")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.Region != "us-east-1" || !creds.Expiry.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected credentials %+v", creds)
	}
	if s.IdentityID() != "us-east-1:identity-pool-1" {
		t.Errorf("IdentityID() = %q", s.IdentityID())
	}
	if !s.Valid() {
		t.Error("Valid() = false after authenticate")
	}
	if len(f.regions) != 1 || f.regions[0] != "us-east-1" {
		t.Errorf("client regions = %v", f.regions)
	}

	// A second authenticate reuses the identity id.
	if _, err := s.Authenticate(context.Background(), "us-east-1:pool-1"); err != nil {
		t.Fatal(err)
	}
	if f.getIDCalls != 1 || f.getCredsCalls != 2 {
		t.Errorf("calls GetId=%d GetCredentials=%d, want 1 and 2", f.getIDCalls, f.getCredsCalls)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeIdentity
		wantID   string
		idCalls  int
		crdCalls int
	}{
		{"get id fails", &fakeIdentity{getIDErr: errors.New("down")}, "", 1, 0},
		{"get credentials fails", &fakeIdentity{getCredsErr: errors.New("down")}, "us-east-1:identity-pool-1", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.fake.factory)
			_, err := s.Authenticate(context.Background(), "us-east-1:pool-1")
			if !errors.Is(err, core.ErrTransientNetwork) {
				t.Errorf("error = %v, want transient", err)
			}
			if s.IdentityID() != tt.wantID {
				t.Errorf("IdentityID() = %q, want %q", s.IdentityID(), tt.wantID)
			}
			if tt.fake.getIDCalls != tt.idCalls || tt.fake.getCredsCalls != tt.crdCalls {
				t.Errorf("calls = %d/%d", tt.fake.getIDCalls, tt.fake.getCredsCalls)
			}
			if s.Valid() {
				t.Error("Valid() = true after failure")
			}
		})
	}
}

func TestRetrieveRefreshesExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeIdentity{expiry: now.Add(30 * time.Second)}
	s := NewSession(f.factory)
	s.now = func() time.Time { return now }

	if _, err := s.Retrieve(context.Background()); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("Retrieve() before authenticate error = %v", err)
	}

	if _, err := s.Authenticate(context.Background(), "us-east-1:pool-1"); err != nil {
		t.Fatal(err)
	}

	// Inside the refresh window, so Retrieve exchanges again.
	f.expiry = now.Add(time.Hour)
	creds, err := s.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if f.getCredsCalls != 2 || !creds.CanExpire || !creds.Expires.Equal(now.Add(time.Hour)) {
		t.Errorf("calls=%d creds=%+v", f.getCredsCalls, creds)
	}

	s.Invalidate()
	if s.Valid() {
		t.Error("Valid() = true after Invalidate")
	}
	if s.IdentityID() == "" {
		t.Error("Invalidate dropped the identity id")
	}
}

func TestRegionFromPoolID(t *testing.T) {
	tests := map[string]string{
		"us-east-1:abc": "us-east-1",
		" eu-west-1:x":  "eu-west-1",
		"":              "",
	}
	for in, want := range tests {
		if got := RegionFromPoolID(in); got != want {
			t.Errorf("RegionFromPoolID(%q) = %q, want %q", in, got, want)
		}
	}
}
