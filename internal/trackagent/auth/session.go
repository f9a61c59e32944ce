// Package auth exchanges a Cognito identity pool id for short-lived AWS
// credentials of an unauthenticated identity.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/log"
)

// IdentityAPI is the subset of the Cognito identity client used by Session.
type IdentityAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// ClientFactory returns an identity client for region.
type ClientFactory func(region string) IdentityAPI

// NewClientFactory builds anonymous Cognito identity clients from cfg.
func NewClientFactory(cfg aws.Config) ClientFactory {
	return func(region string) IdentityAPI {
		return cognitoidentity.NewFromConfig(cfg, func(o *cognitoidentity.Options) {
			o.Region = region
			o.Credentials = aws.AnonymousCredentials{}
		})
	}
}

// refreshWindow is how long before expiry credentials are treated as expired.
const refreshWindow = time.Minute

// Session holds the credentials and identity id for one identity pool.
// It implements aws.CredentialsProvider.
type Session struct {
	newClient ClientFactory
	now       func() time.Time

	mu         sync.Mutex
	poolID     string
	region     string
	identityID string
	creds      core.Credentials
}

var _ aws.CredentialsProvider = (*Session)(nil)

// NewSession returns an unauthenticated Session.
func NewSession(newClient ClientFactory) *Session {
	return &Session{
		newClient: newClient,
		now:       time.Now,
	}
}

// RegionFromPoolID returns the region prefix of an identity pool id.
func RegionFromPoolID(poolID string) string {
	region, _, _ := strings.Cut(strings.TrimSpace(poolID), ":")
	return region
}

// Authenticate exchanges poolID for credentials. It resolves the identity id
// first; both round trips must succeed. A blank poolID fails with
// core.ErrConfiguration before any call is made.
func (s *Session) Authenticate(ctx context.Context, poolID string) (core.Credentials, error) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return core.Credentials{}, fmt.Errorf("identity pool id is empty: %w", core.ErrConfiguration)
	}
	region := RegionFromPoolID(poolID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poolID != poolID {
		s.poolID = poolID
		s.region = region
		s.identityID = ""
		s.creds = core.Credentials{}
	}
	return s.exchangeLocked(ctx)
}

func (s *Session) exchangeLocked(ctx context.Context) (core.Credentials, error) {
	client := s.newClient(s.region)

	if s.identityID == "" {
		out, err := client.GetId(ctx, &cognitoidentity.GetIdInput{
			IdentityPoolId: aws.String(s.poolID),
		})
		if err != nil {
			return core.Credentials{}, fmt.Errorf("get identity id: %w: %w", core.ErrTransientNetwork, err)
		}
		if aws.ToString(out.IdentityId) == "" {
			return core.Credentials{}, fmt.Errorf("get identity id: empty identity id: %w", core.ErrTransientNetwork)
		}
		s.identityID = aws.ToString(out.IdentityId)
		log.Info("Resolved identity id", "identityID", s.identityID, "region", s.region)
	}

	out, err := client.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: aws.String(s.identityID),
	})
	if err != nil {
		return core.Credentials{}, fmt.Errorf("get credentials: %w: %w", core.ErrTransientNetwork, err)
	}
	if out.Credentials == nil || aws.ToString(out.Credentials.AccessKeyId) == "" {
		return core.Credentials{}, fmt.Errorf("get credentials: empty credentials: %w", core.ErrTransientNetwork)
	}

	s.creds = core.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Region:          s.region,
		Expiry:          aws.ToTime(out.Credentials.Expiration),
	}
	log.Debug("Obtained credentials", "identityID", s.identityID, "expiry", s.creds.Expiry)
	return s.creds, nil
}

// Valid reports whether the held credentials are usable now.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.creds.Expired(s.now(), refreshWindow)
}

// IdentityID returns the resolved identity id, empty before Authenticate.
func (s *Session) IdentityID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityID
}

// Region returns the region of the authenticated pool.
func (s *Session) Region() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// Invalidate drops the held credentials. The identity id is kept.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = core.Credentials{}
}

// Retrieve returns the held credentials, re-exchanging them when expired.
func (s *Session) Retrieve(ctx context.Context) (aws.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poolID == "" {
		return aws.Credentials{}, fmt.Errorf("session not authenticated: %w", core.ErrConfiguration)
	}
	creds := s.creds
	if creds.Expired(s.now(), refreshWindow) {
		var err error
		if creds, err = s.exchangeLocked(ctx); err != nil {
			return aws.Credentials{}, err
		}
	}

	return aws.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Source:          "CognitoIdentity",
		CanExpire:       !creds.Expiry.IsZero(),
		Expires:         creds.Expiry,
	}, nil
}
