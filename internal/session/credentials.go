package session

import (
	"fmt"
	"time"
)

// CredentialPair is the access/refresh token pair of a session together with
// the absolute expiry of the access token. The three fields are always
// replaced together.
type CredentialPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IsZero reports whether the pair holds no credential.
func (p CredentialPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == "" && p.ExpiresAt.IsZero()
}

// Equal reports whether both pairs carry the same tokens and expiry instant.
func (p CredentialPair) Equal(o CredentialPair) bool {
	return p.AccessToken == o.AccessToken &&
		p.RefreshToken == o.RefreshToken &&
		p.ExpiresAt.Equal(o.ExpiresAt)
}

// validate checks the fields a restored or freshly issued pair must carry.
func (p CredentialPair) validate() error {
	if p.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", ErrMalformedGrant)
	}
	if p.RefreshToken == "" {
		return fmt.Errorf("%w: missing refresh token", ErrMalformedGrant)
	}
	if p.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: missing expiry", ErrMalformedGrant)
	}
	return nil
}

// Grant is what the login and renewal collaborators return. Expiry is given
// either as an absolute instant or as a lifetime relative to issuance; when
// both are present the absolute instant wins.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	ExpiresAt    time.Time
}

// Pair converts the grant into a credential pair issued at issuedAt.
// RefreshToken may be empty; renewal fills it from the previous pair.
func (g Grant) Pair(issuedAt time.Time) (CredentialPair, error) {
	if g.AccessToken == "" {
		return CredentialPair{}, fmt.Errorf("%w: missing access token", ErrMalformedGrant)
	}

	expiresAt := g.ExpiresAt
	if expiresAt.IsZero() {
		if g.ExpiresIn <= 0 {
			return CredentialPair{}, fmt.Errorf("%w: no lifetime or absolute expiry", ErrMalformedGrant)
		}
		expiresAt = issuedAt.Add(g.ExpiresIn)
	}

	return CredentialPair{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    expiresAt.UTC().Round(0),
	}, nil
}
