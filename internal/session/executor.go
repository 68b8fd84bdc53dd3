package session

import (
	"context"
	"errors"
	"fmt"
)

// Operation is an outbound call made with an access token.
type Operation[T any] func(ctx context.Context, token string) (T, error)

// Execute runs op with a valid access token. An expired or nearly expired
// token is renewed first. If op fails with an error matching ErrUnauthorized
// the token is renewed once and op retried once; a second rejection is
// returned wrapped in ErrRetryExhausted.
func Execute[T any](ctx context.Context, m *Manager, op Operation[T]) (T, error) {
	var zero T

	token, err := m.validToken(ctx)
	if err != nil {
		return zero, err
	}

	v, err := op(ctx, token)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return v, err
	}

	m.logger.Debug("access token rejected, renewing before retry")
	token, err = m.renew(ctx, token)
	if err != nil {
		return zero, err
	}

	v, err = op(ctx, token)
	if err != nil && errors.Is(err, ErrUnauthorized) {
		return zero, fmt.Errorf("%w: %w", ErrRetryExhausted, err)
	}
	return v, err
}

// ExecuteWithRefresh is Execute for operations without a result.
func (m *Manager) ExecuteWithRefresh(ctx context.Context, op func(ctx context.Context, token string) error) error {
	_, err := Execute(ctx, m, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, op(ctx, token)
	})
	return err
}

// validToken returns the current access token, renewing it first when it is
// expired or inside the expiry buffer. A transient renewal failure still
// yields the old token while it has not actually expired.
func (m *Manager) validToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	state := m.state
	pair := m.pair
	m.mu.Unlock()

	switch state {
	case NoSession:
		return "", ErrNoSession
	case Terminated:
		return "", ErrSessionEnded
	}

	now := m.clock.Now()
	if !IsExpiredOrNear(pair, now, m.buffer) {
		return pair.AccessToken, nil
	}

	token, err := m.renew(ctx, pair.AccessToken)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, ErrTransient) && now.Before(pair.ExpiresAt) {
		m.logger.Debug("renewal failed inside expiry buffer, using current token", "error", err)
		return pair.AccessToken, nil
	}
	return "", err
}
