package auth

import (
	"github.com/aws/aws-sdk-go-v2/aws"
)

// CachedProvider wraps a Session in an aws.CredentialsCache whose
// invalidation also clears the session.
type CachedProvider struct {
	*aws.CredentialsCache
	session *Session
}

// NewCachedProvider returns a CachedProvider over s.
func NewCachedProvider(s *Session) *CachedProvider {
	return &CachedProvider{
		CredentialsCache: aws.NewCredentialsCache(s, func(o *aws.CredentialsCacheOptions) {
			o.ExpiryWindow = refreshWindow
		}),
		session: s,
	}
}

// Invalidate clears both the cache and the session credentials.
func (p *CachedProvider) Invalidate() {
	p.session.Invalidate()
	p.CredentialsCache.Invalidate()
}
