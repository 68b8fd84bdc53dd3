package session

import "time"

// DefaultExpiryBuffer absorbs the latency between checking a token and the
// server receiving it.
const DefaultExpiryBuffer = 60 * time.Second

// IsExpiredOrNear reports whether pair is expired at now or will expire
// within buffer. A pair without an access token or expiry is always expired.
func IsExpiredOrNear(pair CredentialPair, now time.Time, buffer time.Duration) bool {
	if pair.AccessToken == "" || pair.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(pair.ExpiresAt.Add(-buffer))
}
