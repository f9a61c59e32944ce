// Package awscall runs AWS service calls under a time budget and maps their
// failures onto the tracking error taxonomy.
package awscall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// Invalidator drops cached credentials so the next call re-exchanges them.
type Invalidator interface {
	Invalidate()
}

// Caller applies a per-call timeout and invalidates credentials on auth failures.
type Caller struct {
	Timeout     time.Duration
	Invalidator Invalidator
}

// authErrorCodes are API error codes meaning the credentials were rejected.
var authErrorCodes = map[string]struct{}{
	"ExpiredTokenException":        {},
	"ExpiredToken":                 {},
	"UnrecognizedClientException":  {},
	"NotAuthorizedException":       {},
	"InvalidSignatureException":    {},
	"AccessDeniedException":        {},
	"InvalidClientTokenId":         {},
	"SignatureDoesNotMatch":        {},
	"UnauthorizedException":        {},
	"CredentialsExpiredException":  {},
	"IncompleteSignatureException": {},
}

// IsAuthError reports whether err means the call's credentials were rejected.
func IsAuthError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := authErrorCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}

// Do runs fn under the call budget. Failures other than cancellation are
// wrapped with core.ErrTransientNetwork.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.CallLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	if IsAuthError(err) && c.Invalidator != nil {
		c.Invalidator.Invalidate()
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrTransientNetwork, err)
}
