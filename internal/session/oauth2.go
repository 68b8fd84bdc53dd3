package session

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource exposes the session as an oauth2.TokenSource, for SDKs that
// take one. Each Token call goes through the same expiry check and
// single-flight renewal as Execute.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.m.validToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	pair := ts.m.Pair()
	tok := &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}
	if pair.AccessToken == token {
		tok.Expiry = pair.ExpiresAt
	}
	return tok, nil
}
