// Package awsiot connects MQTT clients to the AWS IoT data endpoint over
// SigV4-signed websockets.
package awsiot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	// signingService is the SigV4 service name of the IoT data plane.
	signingService = "iotdevicegateway"

	mqttPath = "/mqtt"

	// emptyPayloadHash is the SHA-256 of an empty body.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	securityTokenParam = "X-Amz-Security-Token"
)

// HTTPPresigner is the subset of the v4 signer used to presign the URL.
type HTTPPresigner interface {
	PresignHTTP(ctx context.Context, credentials aws.Credentials, r *http.Request, payloadHash string,
		service string, region string, signingTime time.Time, optFns ...func(*v4.SignerOptions)) (string, http.Header, error)
}

// Presigner builds presigned websocket URLs for an IoT endpoint.
type Presigner struct {
	Endpoint    string
	Region      string
	Credentials aws.CredentialsProvider
	Signer      HTTPPresigner

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPresigner returns a Presigner using the default v4 signer.
func NewPresigner(endpoint, region string, creds aws.CredentialsProvider) *Presigner {
	return &Presigner{
		Endpoint:    endpoint,
		Region:      region,
		Credentials: creds,
		Signer:      v4.NewSigner(),
		Now:         time.Now,
	}
}

// BrokerURL returns the unsigned websocket URL of the endpoint.
func (p *Presigner) BrokerURL() *url.URL {
	return &url.URL{Scheme: "wss", Host: p.Endpoint, Path: mqttPath}
}

// Presign returns a wss URL carrying a SigV4 signature. The session token is
// appended after signing, as the IoT gateway excludes it from the signature.
func (p *Presigner) Presign(ctx context.Context) (*url.URL, error) {
	creds, err := p.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BrokerURL().String(), nil)
	if err != nil {
		return nil, err
	}

	unsessioned := creds
	unsessioned.SessionToken = ""

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	signed, _, err := p.Signer.PresignHTTP(ctx, unsessioned, req, emptyPayloadHash, signingService, p.Region, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("presign iot url: %w", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		return nil, err
	}
	if creds.SessionToken != "" {
		q := u.Query()
		q.Set(securityTokenParam, creds.SessionToken)
		u.RawQuery = q.Encode()
	}
	u.Scheme = "wss"
	return u, nil
}
